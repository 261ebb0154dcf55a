package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the runtime configuration.
type Config struct {
	Deepgram DeepgramConfig
	Audio    AudioConfig
	Rules    RulesConfig
	Session  SessionConfig
	LogLevel string
}

type DeepgramConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Language       string
	Punctuate      bool
	InterimResults bool
}

type AudioConfig struct {
	RecorderCommand  string
	InputFormat      string
	InputDevice      string
	SampleRate       int
	Channels         int
	ChunkCadence     time.Duration
	NoiseSuppression bool
}

type RulesConfig struct {
	Path           string
	IterationLimit int
}

type SessionConfig struct {
	// RecordingsDir receives a WAV artifact per session when set.
	RecordingsDir string
}

// Load resolves configuration from a .env file (when present) and the
// environment, with sensible defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Deepgram: DeepgramConfig{
			APIKey:         strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			BaseURL:        envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:          envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:       strings.TrimSpace(os.Getenv("DEEPGRAM_LANGUAGE")),
			Punctuate:      envBool("DEEPGRAM_PUNCTUATE", true),
			InterimResults: envBool("DEEPGRAM_INTERIM_RESULTS", true),
		},
		Audio: AudioConfig{
			RecorderCommand:  envOrDefault("VOICE2TEXT_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:      envOrDefault("VOICE2TEXT_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:      envOrDefault("VOICE2TEXT_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:       envInt("VOICE2TEXT_SAMPLE_RATE", 16000),
			Channels:         envInt("VOICE2TEXT_CHANNELS", 1),
			ChunkCadence:     time.Duration(envInt("VOICE2TEXT_CHUNK_CADENCE_MS", 250)) * time.Millisecond,
			NoiseSuppression: envBool("VOICE2TEXT_NOISE_SUPPRESSION", true),
		},
		Rules: RulesConfig{
			Path:           defaultRulesPath(),
			IterationLimit: envInt("VOICE2TEXT_RULE_ITERATION_LIMIT", 30),
		},
		Session: SessionConfig{
			RecordingsDir: strings.TrimSpace(os.Getenv("VOICE2TEXT_RECORDINGS_DIR")),
		},
		LogLevel: envOrDefault("VOICE2TEXT_LOG_LEVEL", "info"),
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.ChunkCadence <= 0 {
		cfg.Audio.ChunkCadence = 250 * time.Millisecond
	}
	if cfg.Rules.IterationLimit <= 0 {
		cfg.Rules.IterationLimit = 30
	}
	return cfg, nil
}

func defaultRulesPath() string {
	if path := strings.TrimSpace(os.Getenv("VOICE2TEXT_RULES_FILE")); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".config", "voice2text", "substitutions.rules")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

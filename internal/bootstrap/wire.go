package bootstrap

import (
	"os"

	"github.com/charmbracelet/log"

	"github.com/4KSHAT0p/voice2text/internal/audio"
	"github.com/4KSHAT0p/voice2text/internal/config"
	"github.com/4KSHAT0p/voice2text/internal/deepgram"
	"github.com/4KSHAT0p/voice2text/internal/ports"
	"github.com/4KSHAT0p/voice2text/internal/rules"
	"github.com/4KSHAT0p/voice2text/internal/session"
)

// Services is the assembled runtime graph.
type Services struct {
	Coordinator *session.Coordinator
	Config      config.Config
	Logger      *log.Logger
}

// Build wires all backend dependencies for the current runtime.
func Build(events ports.EventSink, clipboard ports.Clipboard) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "voice2text",
	})

	rulesEngine, err := rules.NewEngine(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		return Services{}, err
	}

	source := audio.NewSource(audio.Config{
		Command:          cfg.Audio.RecorderCommand,
		InputFormat:      cfg.Audio.InputFormat,
		InputDevice:      cfg.Audio.InputDevice,
		SampleRate:       cfg.Audio.SampleRate,
		Channels:         cfg.Audio.Channels,
		ChunkCadence:     cfg.Audio.ChunkCadence,
		NoiseSuppression: cfg.Audio.NoiseSuppression,
	}, logger.With("component", "audio"))

	channelFactory := func(apiKey string) ports.TranscriptionChannel {
		return deepgram.NewChannel(deepgram.Config{
			APIKey:         apiKey,
			BaseURL:        cfg.Deepgram.BaseURL,
			Model:          cfg.Deepgram.Model,
			Language:       cfg.Deepgram.Language,
			Punctuate:      cfg.Deepgram.Punctuate,
			InterimResults: cfg.Deepgram.InterimResults,
			SampleRate:     cfg.Audio.SampleRate,
			Channels:       cfg.Audio.Channels,
		}, logger.With("component", "deepgram"))
	}

	coordinator := session.NewCoordinator(
		source,
		channelFactory,
		rulesEngine,
		clipboard,
		events,
		logger.With("component", "session"),
		session.Config{
			RecordingsDir: cfg.Session.RecordingsDir,
			SampleRate:    cfg.Audio.SampleRate,
			Channels:      cfg.Audio.Channels,
		},
	)
	coordinator.SetAPIKey(cfg.Deepgram.APIKey)

	return Services{Coordinator: coordinator, Config: cfg, Logger: logger}, nil
}

package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/4KSHAT0p/voice2text/internal/audio"
	"github.com/4KSHAT0p/voice2text/internal/domain"
	"github.com/4KSHAT0p/voice2text/internal/ports"
)

// ErrMissingAPIKey rejects recording attempts made before a credential is
// configured. The message is user-facing.
var ErrMissingAPIKey = errors.New("Deepgram API key is required.")

// Config controls coordinator-owned behavior.
type Config struct {
	// RecordingsDir, when set, receives a WAV artifact of each session's
	// captured audio as a local fallback. Never part of the network path.
	RecordingsDir string
	SampleRate    int
	Channels      int
}

// Coordinator owns the push-to-talk state machine. It is the only mutator of
// session state: every action and channel callback funnels through one mutex,
// so events apply fully and in arrival order.
type Coordinator struct {
	source     ports.AudioSource
	newChannel ports.ChannelFactory
	rules      ports.RulesEngine
	clipboard  ports.Clipboard
	events     ports.EventSink
	log        *log.Logger
	cfg        Config

	mu         sync.Mutex
	state      domain.State
	apiKey     string
	channel    ports.TranscriptionChannel
	generation int
	finals     []string
	interim    string
	lastErr    string
	permission domain.PermissionStatus
}

func NewCoordinator(
	source ports.AudioSource,
	newChannel ports.ChannelFactory,
	rules ports.RulesEngine,
	clipboard ports.Clipboard,
	events ports.EventSink,
	logger *log.Logger,
	cfg Config,
) *Coordinator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return &Coordinator{
		source:     source,
		newChannel: newChannel,
		rules:      rules,
		clipboard:  clipboard,
		events:     events,
		log:        logger,
		cfg:        cfg,
		state:      domain.StateIdle,
		permission: domain.PermissionPrompt,
	}
}

// SetAPIKey updates the credential. The channel is rebound unless a
// connection is in use.
func (c *Coordinator) SetAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.apiKey = strings.TrimSpace(key)
	if c.state == domain.StateReady {
		c.channel = c.newChannel(c.apiKey)
	}
}

// Initialize acquires device permission, opens the audio source, and binds a
// transcription channel to the current credential. Recovers from Faulted.
func (c *Coordinator) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case domain.StateReady, domain.StateConnecting, domain.StateStreaming:
		return nil
	}

	c.setState(domain.StateInitializing)
	c.permission = c.source.CheckPermission(ctx)

	if err := c.source.Initialize(ctx); err != nil {
		code := domain.CodeForError(err)
		c.fail(code, err.Error())
		c.permission = c.source.CheckPermission(ctx)
		return err
	}

	c.permission = c.source.CheckPermission(ctx)
	c.channel = c.newChannel(c.apiKey)
	c.lastErr = ""
	c.setState(domain.StateReady)
	return nil
}

// StartRecording opens the transcription channel and, once it reports open,
// begins forwarding captured audio. Repeated calls while a session is
// connecting or streaming are no-ops.
func (c *Coordinator) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case domain.StateConnecting, domain.StateStreaming:
		c.log.Warn("start ignored: already recording")
		return nil
	case domain.StateReady:
	default:
		c.lastErr = domain.ErrorMessage(domain.ErrorCodeNotInitialized)
		c.events.SessionError(domain.ErrorCodeNotInitialized, c.lastErr)
		return domain.ErrNotInitialized
	}

	if c.apiKey == "" {
		c.lastErr = ErrMissingAPIKey.Error()
		c.events.SessionError(domain.ErrorCodeMissingCredential, c.lastErr)
		return ErrMissingAPIKey
	}

	c.interim = ""
	c.events.InterimTranscript("")
	c.generation++
	gen := c.generation
	channel := c.channel
	c.setState(domain.StateConnecting)

	channel.Connect(ctx, ports.ChannelHandlers{
		OnOpen:       func() { c.handleOpen(gen, channel) },
		OnTranscript: func(result domain.TranscriptionResult) { c.handleTranscript(gen, result) },
		OnError:      func(code domain.ErrorCode, message string) { c.handleError(gen, code, message) },
		OnClose:      func() { c.handleClose(gen) },
	})
	return nil
}

// StopRecording ends the active session: capture stops, the channel
// disconnects, and the interim transcript clears. Idempotent when no session
// is active.
func (c *Coordinator) StopRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != domain.StateConnecting && c.state != domain.StateStreaming {
		return nil
	}

	// Results still in flight for this session are dropped from here on.
	c.generation++
	c.finishSession()
	c.setState(domain.StateReady)
	return nil
}

// ClearTranscript resets accumulated and interim transcript text. Allowed in
// any state.
func (c *Coordinator) ClearTranscript() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.finals = nil
	c.interim = ""
	c.events.TranscriptChanged("")
	c.events.InterimTranscript("")
}

// CopyToClipboard writes the accumulated transcript, after rules processing,
// to the system clipboard. Failure surfaces as an error message without
// touching the recording or connection state.
func (c *Coordinator) CopyToClipboard(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	text := c.transcript()
	if c.rules != nil {
		transformed, err := c.rules.Apply(text)
		if err != nil {
			c.lastErr = domain.ErrorMessage(domain.ErrorCodeRules)
			c.events.SessionError(domain.ErrorCodeRules, err.Error())
			return err
		}
		text = transformed
	}

	if err := c.clipboard.SetText(ctx, text); err != nil {
		c.lastErr = domain.ErrorMessage(domain.ErrorCodeClipboard)
		c.events.SessionError(domain.ErrorCodeClipboard, err.Error())
		return err
	}
	return nil
}

// Snapshot returns the presentation-facing view of the session.
func (c *Coordinator) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	initialized := false
	switch c.state {
	case domain.StateReady, domain.StateConnecting, domain.StateStreaming:
		initialized = true
	}

	return domain.Snapshot{
		State:             c.state,
		IsRecording:       c.state == domain.StateStreaming,
		IsConnected:       c.state == domain.StateStreaming,
		IsInitialized:     initialized,
		Transcript:        c.transcript(),
		InterimTranscript: c.interim,
		Error:             c.lastErr,
		PermissionStatus:  c.permission,
	}
}

// Dispose releases the audio device and disconnects unconditionally. Safe
// from any state.
func (c *Coordinator) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	if err := c.source.Dispose(); err != nil {
		c.log.Error("failed to release audio device", "err", err)
	}
	if c.channel != nil {
		c.channel.Disconnect()
	}
	c.finals = nil
	c.interim = ""
	c.setState(domain.StateIdle)
}

func (c *Coordinator) handleOpen(gen int, channel ports.TranscriptionChannel) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.state != domain.StateConnecting {
		return
	}

	err := c.source.StartRecording(func(chunk []byte) {
		channel.SendAudio(chunk)
	})
	if err != nil {
		code := domain.CodeForError(err)
		channel.Disconnect()
		c.fail(code, err.Error())
		return
	}

	// Connected and recording become observable together.
	c.setState(domain.StateStreaming)
}

func (c *Coordinator) handleTranscript(gen int, result domain.TranscriptionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.state != domain.StateStreaming {
		c.log.Debug("dropping stale transcription result", "text", result.Text)
		return
	}

	if result.IsFinal {
		c.finals = append(c.finals, result.Text)
		c.interim = ""
		c.events.TranscriptChanged(c.transcript())
		c.events.InterimTranscript("")
		return
	}

	c.interim = result.Text
	c.events.InterimTranscript(c.interim)
}

func (c *Coordinator) handleError(gen int, code domain.ErrorCode, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.log.Debug("dropping stale channel error", "message", message)
		return
	}

	c.generation++
	c.stopCapture()
	if c.channel != nil {
		c.channel.Disconnect()
	}
	c.fail(code, message)
}

// handleClose treats an unexpected remote close like a normal stop: flags
// clear, the last error stays untouched.
func (c *Coordinator) handleClose(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}
	if c.state != domain.StateConnecting && c.state != domain.StateStreaming {
		return
	}

	c.log.Info("transcription connection closed by remote")
	c.generation++
	c.finishSession()
	c.setState(domain.StateReady)
}

// finishSession stops capture, disconnects, clears the interim transcript,
// and archives the fallback recording. Callers set the follow-up state.
func (c *Coordinator) finishSession() {
	c.stopCapture()
	if c.channel != nil {
		c.channel.Disconnect()
	}
	c.interim = ""
	c.events.InterimTranscript("")
}

func (c *Coordinator) stopCapture() {
	blob, err := c.source.StopRecording()
	if err != nil {
		c.log.Error("audio capture did not stop cleanly", "err", err)
	}
	if len(blob) == 0 || c.cfg.RecordingsDir == "" {
		return
	}

	path, err := audio.SaveRecording(c.cfg.RecordingsDir, blob, c.cfg.SampleRate, c.cfg.Channels)
	if err != nil {
		c.log.Error("failed to save fallback recording", "err", err)
		return
	}
	c.log.Info("saved fallback recording", "path", path, "bytes", len(blob))
}

// fail records the error and forces the not-recording, not-connected state.
// The accumulated transcript stays intact; recovery requires Initialize.
func (c *Coordinator) fail(code domain.ErrorCode, detail string) {
	c.lastErr = domain.ErrorMessage(code)
	c.events.SessionError(code, detail)
	c.setState(domain.StateFaulted)
}

func (c *Coordinator) setState(state domain.State) {
	c.state = state
	c.events.StateChanged(state)
}

func (c *Coordinator) transcript() string {
	return strings.Join(c.finals, " ")
}

package ports

import (
	"context"

	"github.com/4KSHAT0p/voice2text/internal/domain"
)

// ChunkFunc receives one captured audio chunk. Chunks arrive in capture
// order and are never empty.
type ChunkFunc func(chunk []byte)

// AudioSource wraps a microphone capture device.
type AudioSource interface {
	// Initialize acquires device permission and opens the capture device.
	// Idempotent while initialized. Failures wrap one of the domain device
	// errors (ErrPermissionDenied, ErrDeviceNotFound, ErrDeviceBusy,
	// ErrUnsupportedEnvironment).
	Initialize(ctx context.Context) error

	// StartRecording begins chunk production at a fixed cadence and invokes
	// onChunk for every non-empty chunk until stopped. Fails with
	// ErrNotInitialized before Initialize, or ErrRecorderUnavailable when
	// the device cannot start.
	StartRecording(onChunk ChunkFunc) error

	// StopRecording halts capture, flushes the pending chunk, and returns
	// the concatenated full-session PCM blob, or nil when nothing was
	// captured. Safe to call while not recording.
	StopRecording() ([]byte, error)

	IsRecording() bool

	// Dispose stops recording and releases the device. Safe to call more
	// than once and from teardown paths.
	Dispose() error

	// CheckPermission is a best-effort query of the current grant state,
	// defaulting to PermissionPrompt when the platform cannot report it.
	CheckPermission(ctx context.Context) domain.PermissionStatus
}

// ChannelHandlers is the event contract of a TranscriptionChannel. Exactly
// one of OnOpen or OnError fires per connection attempt; OnClose fires
// exactly once per connection, whichever side closed it.
type ChannelHandlers struct {
	OnOpen       func()
	OnTranscript func(result domain.TranscriptionResult)
	OnError      func(code domain.ErrorCode, message string)
	OnClose      func()
}

// TranscriptionChannel wraps one duplex connection to the remote
// transcription service.
type TranscriptionChannel interface {
	// Connect opens the connection asynchronously. A second call while a
	// connection is open or pending is a logged no-op.
	Connect(ctx context.Context, handlers ChannelHandlers)

	// SendAudio transmits one chunk over the open connection. Calls made
	// while no connection is open are dropped and logged, never failed.
	SendAudio(chunk []byte)

	// Disconnect sends the stream-termination control message if connected,
	// then closes. Idempotent; always ends disconnected. Handler callbacks,
	// including the resulting OnClose, never run on the caller's goroutine.
	Disconnect()

	// IsReady reports whether the connection is open and sendable.
	IsReady() bool
}

// ChannelFactory builds a channel bound to a credential.
type ChannelFactory func(apiKey string) TranscriptionChannel

// RulesEngine transforms transcript text using deterministic rules.
type RulesEngine interface {
	Apply(text string) (string, error)
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink receives state and transcript updates for the UI.
type EventSink interface {
	StateChanged(state domain.State)
	InterimTranscript(text string)
	TranscriptChanged(transcript string)
	SessionError(code domain.ErrorCode, detail string)
}

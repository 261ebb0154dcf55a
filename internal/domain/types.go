package domain

// State models the session lifecycle.
type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateConnecting   State = "connecting"
	StateStreaming    State = "streaming"
	StateFaulted      State = "faulted"
)

// PermissionStatus reports the microphone permission grant state.
type PermissionStatus string

const (
	PermissionGranted PermissionStatus = "granted"
	PermissionDenied  PermissionStatus = "denied"
	PermissionPrompt  PermissionStatus = "prompt"
)

// Word is the per-word timing/confidence breakdown of a result, when the
// service provides one.
type Word struct {
	Word           string  `json:"word"`
	PunctuatedWord string  `json:"punctuatedWord,omitempty"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Confidence     float64 `json:"confidence"`
}

// TranscriptionResult is one decoded result message from the transcription
// service. Results are transient: the coordinator consumes each exactly once.
type TranscriptionResult struct {
	Text       string  `json:"text"`
	IsFinal    bool    `json:"isFinal"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words,omitempty"`
}

// Snapshot is the presentation-facing view of the session.
type Snapshot struct {
	State             State            `json:"state"`
	IsRecording       bool             `json:"isRecording"`
	IsConnected       bool             `json:"isConnected"`
	IsInitialized     bool             `json:"isInitialized"`
	Transcript        string           `json:"transcript"`
	InterimTranscript string           `json:"interimTranscript"`
	Error             string           `json:"error,omitempty"`
	PermissionStatus  PermissionStatus `json:"permissionStatus"`
}

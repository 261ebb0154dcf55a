package domain

import "errors"

// Sentinel errors for device and session failures. Callers classify with
// errors.Is and surface the matching user message from ErrorMessage.
var (
	ErrPermissionDenied       = errors.New("microphone permission denied")
	ErrDeviceNotFound         = errors.New("no microphone device found")
	ErrDeviceBusy             = errors.New("microphone device is busy")
	ErrUnsupportedEnvironment = errors.New("audio capture unsupported in this environment")
	ErrNotInitialized         = errors.New("recorder is not initialized")
	ErrRecorderUnavailable    = errors.New("recorder could not be started")
)

// ErrorCode identifies the failure class carried in events and the snapshot.
type ErrorCode string

const (
	ErrorCodePermissionDenied       ErrorCode = "permission_denied"
	ErrorCodeDeviceNotFound         ErrorCode = "device_not_found"
	ErrorCodeDeviceBusy             ErrorCode = "device_busy"
	ErrorCodeUnsupportedEnvironment ErrorCode = "unsupported_environment"
	ErrorCodeNotInitialized         ErrorCode = "not_initialized"
	ErrorCodeMissingCredential      ErrorCode = "missing_credential"
	ErrorCodeRecorderUnavailable    ErrorCode = "recorder_unavailable"
	ErrorCodeTransport              ErrorCode = "transport"
	ErrorCodeRemote                 ErrorCode = "remote"
	ErrorCodeClipboard              ErrorCode = "clipboard"
	ErrorCodeRules                  ErrorCode = "rules"
)

// CodeForError maps a device/session error to its error code.
func CodeForError(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return ErrorCodePermissionDenied
	case errors.Is(err, ErrDeviceNotFound):
		return ErrorCodeDeviceNotFound
	case errors.Is(err, ErrDeviceBusy):
		return ErrorCodeDeviceBusy
	case errors.Is(err, ErrUnsupportedEnvironment):
		return ErrorCodeUnsupportedEnvironment
	case errors.Is(err, ErrNotInitialized):
		return ErrorCodeNotInitialized
	default:
		return ErrorCodeRecorderUnavailable
	}
}

// ErrorMessage returns the distinct user-facing message for an error code.
func ErrorMessage(code ErrorCode) string {
	switch code {
	case ErrorCodePermissionDenied:
		return "Microphone permission was denied. Allow microphone access and try again."
	case ErrorCodeDeviceNotFound:
		return "No microphone was found. Connect a microphone and try again."
	case ErrorCodeDeviceBusy:
		return "The microphone is in use by another application."
	case ErrorCodeUnsupportedEnvironment:
		return "Audio capture is not supported in this environment."
	case ErrorCodeNotInitialized:
		return "The recorder is not initialized."
	case ErrorCodeMissingCredential:
		return "Deepgram API key is required."
	case ErrorCodeRecorderUnavailable:
		return "Recording could not be started."
	case ErrorCodeTransport:
		return "Lost connection to the transcription service."
	case ErrorCodeRemote:
		return "The transcription service reported an error."
	case ErrorCodeClipboard:
		return "Transcript could not be copied to the clipboard."
	case ErrorCodeRules:
		return "Transcript rules processing failed."
	default:
		return "Unknown error"
	}
}

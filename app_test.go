package main

import (
	"context"
	"strings"
	"testing"

	"github.com/4KSHAT0p/voice2text/internal/domain"
)

func TestStateMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state domain.State
		want  string
	}{
		{domain.StateIdle, "Mic cold"},
		{domain.StateInitializing, "Requesting microphone access..."},
		{domain.StateReady, "Ready to record"},
		{domain.StateConnecting, "Connecting..."},
		{domain.StateStreaming, "Listening"},
		{domain.StateFaulted, "Something went wrong"},
	}

	seen := map[string]domain.State{}
	for _, tc := range tests {
		got := stateMessage(tc.state)
		if got != tc.want {
			t.Errorf("stateMessage(%s) = %q, want %q", tc.state, got, tc.want)
		}
		if prev, dup := seen[got]; dup {
			t.Errorf("states %s and %s share message %q", prev, tc.state, got)
		}
		seen[got] = tc.state
	}
}

func TestMethodsBeforeStartup(t *testing.T) {
	t.Parallel()

	app := NewApp()

	if _, err := app.Initialize(); err == nil {
		t.Fatalf("expected error before startup")
	}
	if _, err := app.StartRecording(); err == nil {
		t.Fatalf("expected error before startup")
	}
	if err := app.SetAPIKey("k"); err == nil {
		t.Fatalf("expected error before startup")
	}

	snap := app.GetSnapshot()
	if snap.State != domain.StateIdle || snap.IsRecording {
		t.Fatalf("unexpected pre-startup snapshot: %+v", snap)
	}

	// Event emission before startup must be a silent no-op.
	app.StateChanged(domain.StateReady)
	app.InterimTranscript("hi")
	app.TranscriptChanged("hi")
	app.SessionError(domain.ErrorCodeTransport, "down")
}

func TestClipboardBeforeStartup(t *testing.T) {
	t.Parallel()

	clip := &wailsClipboard{app: NewApp()}
	if err := clip.SetText(context.Background(), "text"); err == nil {
		t.Fatalf("expected clipboard error before startup")
	}
}

func TestErrorMessagesAreDistinct(t *testing.T) {
	t.Parallel()

	codes := []domain.ErrorCode{
		domain.ErrorCodePermissionDenied,
		domain.ErrorCodeDeviceNotFound,
		domain.ErrorCodeDeviceBusy,
		domain.ErrorCodeUnsupportedEnvironment,
		domain.ErrorCodeNotInitialized,
		domain.ErrorCodeMissingCredential,
		domain.ErrorCodeRecorderUnavailable,
		domain.ErrorCodeTransport,
		domain.ErrorCodeRemote,
		domain.ErrorCodeClipboard,
		domain.ErrorCodeRules,
	}

	seen := map[string]domain.ErrorCode{}
	for _, code := range codes {
		msg := domain.ErrorMessage(code)
		if strings.TrimSpace(msg) == "" {
			t.Errorf("empty message for %s", code)
		}
		if prev, dup := seen[msg]; dup {
			t.Errorf("codes %s and %s share message %q", prev, code, msg)
		}
		seen[msg] = code
	}
}

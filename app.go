package main

import (
	"context"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/4KSHAT0p/voice2text/internal/bootstrap"
	"github.com/4KSHAT0p/voice2text/internal/config"
	"github.com/4KSHAT0p/voice2text/internal/domain"
	"github.com/4KSHAT0p/voice2text/internal/session"
)

const (
	eventState      = "voice2text:state"
	eventInterim    = "voice2text:interim"
	eventTranscript = "voice2text:transcript"
	eventError      = "voice2text:error"
)

// App is the Wails application root. It binds the coordinator's action set
// to the frontend and relays backend events as Wails runtime events.
type App struct {
	ctx context.Context

	coordinator *session.Coordinator
	cfg         config.Config
	bootErr     error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, &wailsClipboard{app: a})
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeUnsupportedEnvironment, err.Error())
		return
	}

	a.cfg = services.Config
	a.coordinator = services.Coordinator
}

func (a *App) shutdown(_ context.Context) {
	if a.coordinator != nil {
		a.coordinator.Dispose()
	}
}

// Initialize acquires microphone permission and prepares the session.
func (a *App) Initialize() (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	err := a.coordinator.Initialize(a.ctx)
	return a.coordinator.Snapshot(), err
}

// StartRecording begins a push-to-talk session (button press).
func (a *App) StartRecording() (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	err := a.coordinator.StartRecording(a.ctx)
	return a.coordinator.Snapshot(), err
}

// StopRecording ends the push-to-talk session (button release).
func (a *App) StopRecording() (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	err := a.coordinator.StopRecording()
	return a.coordinator.Snapshot(), err
}

// ClearTranscript resets accumulated and interim transcript text.
func (a *App) ClearTranscript() (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	a.coordinator.ClearTranscript()
	return a.coordinator.Snapshot(), nil
}

// CopyToClipboard copies the accumulated transcript.
func (a *App) CopyToClipboard() (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	err := a.coordinator.CopyToClipboard(a.ctx)
	return a.coordinator.Snapshot(), err
}

// SetAPIKey updates the transcription credential at runtime.
func (a *App) SetAPIKey(key string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.coordinator.SetAPIKey(key)
	return nil
}

// GetSnapshot returns the current session view.
func (a *App) GetSnapshot() domain.Snapshot {
	if a.coordinator == nil {
		snap := domain.Snapshot{State: domain.StateIdle, PermissionStatus: domain.PermissionPrompt}
		if a.bootErr != nil {
			snap.State = domain.StateFaulted
			snap.Error = a.bootErr.Error()
		}
		return snap
	}
	return a.coordinator.Snapshot()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	return map[string]string{
		"provider":   "Deepgram",
		"model":      a.cfg.Deepgram.Model,
		"language":   a.cfg.Deepgram.Language,
		"rulesFile":  a.cfg.Rules.Path,
		"audioInput": a.cfg.Audio.InputDevice,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.coordinator == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// StateChanged emits session lifecycle updates to the frontend.
func (a *App) StateChanged(state domain.State) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventState, map[string]string{
		"state":   string(state),
		"message": stateMessage(state),
	})
}

// InterimTranscript emits the live unfinalized fragment.
func (a *App) InterimTranscript(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventInterim, map[string]string{"text": text})
}

// TranscriptChanged emits the accumulated transcript.
func (a *App) TranscriptChanged(transcript string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTranscript, map[string]string{"text": transcript})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": domain.ErrorMessage(code),
		"detail":  detail,
	})
}

func stateMessage(state domain.State) string {
	switch state {
	case domain.StateIdle:
		return "Mic cold"
	case domain.StateInitializing:
		return "Requesting microphone access..."
	case domain.StateReady:
		return "Ready to record"
	case domain.StateConnecting:
		return "Connecting..."
	case domain.StateStreaming:
		return "Listening"
	case domain.StateFaulted:
		return "Something went wrong"
	default:
		return ""
	}
}

type wailsClipboard struct {
	app *App
}

func (c *wailsClipboard) SetText(_ context.Context, text string) error {
	if c.app.ctx == nil {
		return fmt.Errorf("clipboard unavailable before startup")
	}
	return runtime.ClipboardSetText(c.app.ctx, text)
}

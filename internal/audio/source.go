package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/4KSHAT0p/voice2text/internal/domain"
	"github.com/4KSHAT0p/voice2text/internal/ports"
)

// Config describes how the microphone is captured.
type Config struct {
	Command          string
	InputFormat      string
	InputDevice      string
	SampleRate       int
	Channels         int
	ChunkCadence     time.Duration
	NoiseSuppression bool
}

func (c Config) withDefaults() Config {
	if c.Command == "" {
		c.Command = "ffmpeg"
	}
	if c.InputFormat == "" {
		c.InputFormat = "pulse"
	}
	if c.InputDevice == "" {
		c.InputDevice = "default"
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.Channels <= 0 {
		c.Channels = 1
	}
	if c.ChunkCadence <= 0 {
		c.ChunkCadence = 250 * time.Millisecond
	}
	return c
}

// chunkBytes is the size of one cadence worth of s16le PCM.
func (c Config) chunkBytes() int {
	n := int(int64(c.SampleRate*c.Channels*2) * int64(c.ChunkCadence) / int64(time.Second))
	if n < 256 {
		n = 256
	}
	return n
}

// Source captures microphone PCM with an ffmpeg subprocess and implements
// ports.AudioSource.
type Source struct {
	cfg Config
	log *log.Logger

	mu          sync.Mutex
	initialized bool
	permission  domain.PermissionStatus
	capture     *capture
}

func NewSource(cfg Config, logger *log.Logger) *Source {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Source{
		cfg:        cfg.withDefaults(),
		log:        logger,
		permission: domain.PermissionPrompt,
	}
}

// Initialize probes the capture device once. A second call while already
// initialized succeeds without re-probing.
func (s *Source) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	if err := s.probe(ctx); err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			s.permission = domain.PermissionDenied
		}
		return err
	}

	s.initialized = true
	s.permission = domain.PermissionGranted
	return nil
}

// probe runs a very short capture to surface permission and device errors
// before a real session starts.
func (s *Source) probe(ctx context.Context) error {
	args := append(s.inputArgs(), "-t", "0.1", "-f", "null", "-")
	cmd := exec.CommandContext(ctx, s.cfg.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return classifyCaptureError(err, stderr.String())
	}
	return nil
}

// classifyCaptureError maps a recorder failure onto the device error
// taxonomy using the recorder's stderr output.
func classifyCaptureError(err error, stderr string) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %v", domain.ErrUnsupportedEnvironment, err)
	}

	detail := strings.TrimSpace(stderr)
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "access denied"),
		strings.Contains(lower, "not authorized"):
		return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, detail)
	case strings.Contains(lower, "no such"),
		strings.Contains(lower, "not found"),
		strings.Contains(lower, "cannot find"):
		return fmt.Errorf("%w: %s", domain.ErrDeviceNotFound, detail)
	case strings.Contains(lower, "busy"),
		strings.Contains(lower, "in use"):
		return fmt.Errorf("%w: %s", domain.ErrDeviceBusy, detail)
	default:
		if detail == "" {
			return fmt.Errorf("%w: %v", domain.ErrUnsupportedEnvironment, err)
		}
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedEnvironment, detail)
	}
}

func (s *Source) inputArgs() []string {
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", s.cfg.InputFormat,
		"-i", s.cfg.InputDevice,
		"-ac", strconv.Itoa(s.cfg.Channels),
		"-ar", strconv.Itoa(s.cfg.SampleRate),
	}
	if s.cfg.NoiseSuppression {
		// ffmpeg carries no acoustic echo cancellation filter, so cleanup is
		// limited to a highpass and afftdn denoising.
		args = append(args, "-af", "highpass=f=100,afftdn")
	}
	return args
}

// StartRecording spawns the capture process and emits fixed-cadence chunks
// through onChunk until stopped. Already-recording calls are no-ops.
func (s *Source) StartRecording(onChunk ports.ChunkFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return domain.ErrNotInitialized
	}
	if s.capture != nil {
		s.log.Warn("recording already in progress")
		return nil
	}

	args := append(s.inputArgs(), "-f", "s16le", "-")
	cmd := exec.Command(s.cfg.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRecorderUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRecorderUnavailable, classifyCaptureError(err, stderr.String()))
	}

	cap := &capture{
		process: cmd.Process,
		stdout:  stdout,
		stderr:  &stderr,
		done:    make(chan struct{}),
	}
	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()
	cap.waitErr = waitErr

	s.capture = cap
	go cap.readLoop(s.cfg.chunkBytes(), onChunk, s.log)

	s.log.Debug("recording started",
		"chunk_bytes", s.cfg.chunkBytes(),
		"sample_rate", s.cfg.SampleRate,
		"channels", s.cfg.Channels)
	return nil
}

// StopRecording halts capture and returns the full-session PCM blob, or nil
// when not recording or nothing was captured.
func (s *Source) StopRecording() ([]byte, error) {
	s.mu.Lock()
	cap := s.capture
	s.capture = nil
	s.mu.Unlock()

	if cap == nil {
		return nil, nil
	}
	return cap.stop()
}

func (s *Source) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture != nil
}

// Dispose stops any active capture and marks the device released. Safe to
// call repeatedly.
func (s *Source) Dispose() error {
	_, err := s.StopRecording()

	s.mu.Lock()
	s.initialized = false
	s.mu.Unlock()
	return err
}

// CheckPermission reports the last observed grant state; before any probe
// the platform cannot tell us, so it reports prompt.
func (s *Source) CheckPermission(_ context.Context) domain.PermissionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission
}

// capture is one live recording process. The read loop owns the session
// buffer until stop hands it to the caller.
type capture struct {
	process *os.Process
	stdout  io.ReadCloser
	stderr  *bytes.Buffer
	waitErr <-chan error
	done    chan struct{}

	bufMu  sync.Mutex
	buffer []byte

	stopOnce sync.Once
	stopErr  error
}

// readLoop slices the process output into fixed-size chunks, forwarding each
// to onChunk and accumulating the whole session for the fallback artifact.
// The trailing partial chunk is flushed when the stream ends.
func (c *capture) readLoop(chunkSize int, onChunk ports.ChunkFunc, logger *log.Logger) {
	defer close(c.done)

	chunk := make([]byte, chunkSize)
	for {
		n, err := io.ReadFull(c.stdout, chunk)
		if n > 0 {
			out := append([]byte(nil), chunk[:n]...)
			c.bufMu.Lock()
			c.buffer = append(c.buffer, out...)
			c.bufMu.Unlock()
			onChunk(out)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, os.ErrClosed) {
				logger.Error("audio capture read failed", "err", err)
			}
			return
		}
	}
}

func (c *capture) stop() ([]byte, error) {
	c.stopOnce.Do(func() {
		if c.process != nil {
			_ = c.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-c.waitErr:
			if ok {
				c.stopErr = normalizeExit(err)
			}
		case <-time.After(1200 * time.Millisecond):
			if c.process != nil {
				_ = c.process.Kill()
			}
			if err, ok := <-c.waitErr; ok {
				c.stopErr = normalizeExit(err)
			}
		}

		_ = c.stdout.Close()
		<-c.done

		if c.stopErr != nil && c.stderr != nil && c.stderr.Len() > 0 {
			c.stopErr = fmt.Errorf("%w: %s", c.stopErr, strings.TrimSpace(c.stderr.String()))
		}
	})

	c.bufMu.Lock()
	defer c.bufMu.Unlock()
	if len(c.buffer) == 0 {
		return nil, c.stopErr
	}
	return c.buffer, c.stopErr
}

// normalizeExit drops the exit status of an interrupted recorder; a non-zero
// exit after our own stop signal is not a failure.
func normalizeExit(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

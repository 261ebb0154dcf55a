package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/wav"
)

func pcmFromSamples(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

func TestWriteWAV(t *testing.T) {
	t.Parallel()

	samples := []int16{0, 128, -128, 32767, -32768}
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := WriteWAV(f, pcmFromSamples(samples), 16000, 1); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	r, err := os.Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer r.Close()

	dec := wav.NewDecoder(r)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if dec.SampleRate != 16000 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Fatalf("unexpected format: rate=%d chans=%d depth=%d", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(samples))
	}
	for i, want := range samples {
		if buf.Data[i] != int(want) {
			t.Fatalf("sample %d = %d, want %d", i, buf.Data[i], want)
		}
	}
}

func TestSaveRecording(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "recordings")
	pcm := pcmFromSamples([]int16{1, 2, 3, 4})

	path, err := SaveRecording(dir, pcm, 16000, 1)
	if err != nil {
		t.Fatalf("SaveRecording failed: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("recording written outside dir: %q", path)
	}
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "recording-") || !strings.HasSuffix(name, ".wav") {
		t.Fatalf("unexpected file name: %q", name)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("recording missing: %v", err)
	}

	// Unique names keep repeated sessions from clobbering each other.
	second, err := SaveRecording(dir, pcm, 16000, 1)
	if err != nil {
		t.Fatalf("second SaveRecording failed: %v", err)
	}
	if second == path {
		t.Fatalf("expected a distinct file name")
	}
}

func TestSaveRecordingEmptyBlob(t *testing.T) {
	t.Parallel()

	path, err := SaveRecording(t.TempDir(), nil, 16000, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Fatalf("expected no file for empty blob, got %q", path)
	}
}

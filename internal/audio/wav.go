package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

// WriteWAV encodes raw s16le PCM into a WAV stream.
func WriteWAV(w io.WriteSeeker, pcm []byte, sampleRate, channels int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, channels, 1)
	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, len(pcm)/2),
		SourceBitDepth: 16,
	}
	for i := range buf.Data {
		buf.Data[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	return enc.Close()
}

// SaveRecording writes the session fallback blob as a uniquely named WAV file
// under dir, creating the directory when needed. Returns the written path.
func SaveRecording(dir string, pcm []byte, sampleRate, channels int) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create recordings dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("recording-%s.wav", uuid.NewString()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create recording file: %w", err)
	}

	if err := WriteWAV(f, pcm, sampleRate, channels); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

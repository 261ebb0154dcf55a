package domain

import (
	"fmt"
	"testing"
)

func TestCodeForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want ErrorCode
	}{
		{ErrPermissionDenied, ErrorCodePermissionDenied},
		{fmt.Errorf("probe: %w", ErrPermissionDenied), ErrorCodePermissionDenied},
		{ErrDeviceNotFound, ErrorCodeDeviceNotFound},
		{ErrDeviceBusy, ErrorCodeDeviceBusy},
		{ErrUnsupportedEnvironment, ErrorCodeUnsupportedEnvironment},
		{ErrNotInitialized, ErrorCodeNotInitialized},
		{ErrRecorderUnavailable, ErrorCodeRecorderUnavailable},
		{fmt.Errorf("something else"), ErrorCodeRecorderUnavailable},
	}

	for _, tc := range tests {
		if got := CodeForError(tc.err); got != tc.want {
			t.Errorf("CodeForError(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

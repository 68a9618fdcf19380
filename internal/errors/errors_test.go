package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := NewAcquisitionFailed("abc123", stderrors.New("network down"))
	if !strings.Contains(err.Error(), "ACQUISITION_FAILED") {
		t.Errorf("Error() = %q, want code prefix", err.Error())
	}
	if !strings.Contains(err.Error(), "abc123") {
		t.Errorf("Error() = %q, want video id", err.Error())
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewEmptyCorpus(), ErrEmptyCorpus, true},
		{"different code", NewEmptyCorpus(), ErrParseFailed, false},
		{"plain error", stderrors.New("boom"), ErrInternal, false},
		{"nil error", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetailsCarryVideoID(t *testing.T) {
	err := NewClipDownloadFailed("xyz789", nil)
	if err.Details["video_id"] != "xyz789" {
		t.Errorf("Details[video_id] = %v, want xyz789", err.Details["video_id"])
	}
}

func TestNewInternalNilCause(t *testing.T) {
	err := NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want 'internal error'", err.Message)
	}
}

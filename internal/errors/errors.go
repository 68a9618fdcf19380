package errors

import "fmt"

// ErrorCode represents a gifgrep error code.
type ErrorCode string

const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"      // bad CLI/operation input
	ErrAcquisitionFailed  ErrorCode = "ACQUISITION_FAILED"   // download or transcription unavailable for a video
	ErrParseFailed        ErrorCode = "PARSE_FAILED"         // malformed transcript file
	ErrEmptyCorpus        ErrorCode = "EMPTY_CORPUS"         // no usable cues anywhere
	ErrClipDownloadFailed ErrorCode = "CLIP_DOWNLOAD_FAILED" // media window could not be fetched
	ErrClipEncodeFailed   ErrorCode = "CLIP_ENCODE_FAILED"   // encoder failed or produced no output
	ErrToolMissing        ErrorCode = "TOOL_MISSING"         // required external binary not found
	ErrInternal           ErrorCode = "INTERNAL"             // unexpected internal error
)

// GrepError represents a structured error with code and details.
type GrepError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *GrepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates an error for invalid request parameters.
func NewInvalidRequest(msg string) *GrepError {
	return &GrepError{
		Code:    ErrInvalidRequest,
		Message: msg,
	}
}

// NewAcquisitionFailed creates an error for a video whose transcript could
// not be acquired by any stage of the fallback chain.
func NewAcquisitionFailed(videoID string, cause error) *GrepError {
	msg := fmt.Sprintf("could not acquire transcript for %s", videoID)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &GrepError{
		Code:    ErrAcquisitionFailed,
		Message: msg,
		Details: map[string]any{"video_id": videoID},
	}
}

// NewParseFailed creates an error for a transcript file that could not be parsed.
func NewParseFailed(path string, cause error) *GrepError {
	return &GrepError{
		Code:    ErrParseFailed,
		Message: fmt.Sprintf("could not parse transcript %s: %v", path, cause),
		Details: map[string]any{"path": path},
	}
}

// NewEmptyCorpus creates an error for search over an empty corpus.
func NewEmptyCorpus() *GrepError {
	return &GrepError{
		Code:    ErrEmptyCorpus,
		Message: "no usable transcript cues found; run acquire first",
	}
}

// NewClipDownloadFailed creates an error for a failed clip media download.
func NewClipDownloadFailed(videoID string, cause error) *GrepError {
	msg := fmt.Sprintf("could not download media window for %s", videoID)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &GrepError{
		Code:    ErrClipDownloadFailed,
		Message: msg,
		Details: map[string]any{"video_id": videoID},
	}
}

// NewClipEncodeFailed creates an error for a failed clip render.
func NewClipEncodeFailed(videoID string, cause error) *GrepError {
	msg := fmt.Sprintf("could not render clip for %s", videoID)
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &GrepError{
		Code:    ErrClipEncodeFailed,
		Message: msg,
		Details: map[string]any{"video_id": videoID},
	}
}

// NewToolMissing creates an error for a missing external binary.
func NewToolMissing(name string) *GrepError {
	return &GrepError{
		Code:    ErrToolMissing,
		Message: fmt.Sprintf("required tool not found: %s (place it beside the gifgrep binary or on PATH)", name),
		Details: map[string]any{"tool": name},
	}
}

// NewInternal creates an error for unexpected internal errors.
func NewInternal(err error) *GrepError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &GrepError{
		Code:    ErrInternal,
		Message: msg,
	}
}

// Is checks if an error is a GrepError with the given code.
func Is(err error, code ErrorCode) bool {
	if gErr, ok := err.(*GrepError); ok {
		return gErr.Code == code
	}
	return false
}

package domain

import (
	"context"
	"fmt"
)

// Transcriber converts recorded speech into text. Implementations talk to an
// external speech-to-text service.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// FailureReason classifies why a transcription did not produce usable text.
type FailureReason string

const (
	FailureNone        FailureReason = ""
	FailureTimeout     FailureReason = "timeout"
	FailureUnavailable FailureReason = "unavailable"
	FailureRejected    FailureReason = "rejected"
	FailureEmpty       FailureReason = "empty"
)

// TranscriptionError is returned by Transcriber adapters. Transient errors
// may be retried.
type TranscriptionError struct {
	Reason    FailureReason
	Transient bool
	Err       error
}

func (e *TranscriptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("transcription %s", e.Reason)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// NewTranscriptionError wraps err with a failure reason.
func NewTranscriptionError(reason FailureReason, transient bool, err error) *TranscriptionError {
	return &TranscriptionError{Reason: reason, Transient: transient, Err: err}
}

// TranscriptionOutcome is either a transcript or a typed failure.
type TranscriptionOutcome struct {
	Text     string
	Failure  FailureReason
	Attempts int
	Err      error
}

// OK reports whether the outcome carries a transcript.
func (o TranscriptionOutcome) OK() bool {
	return o.Failure == FailureNone
}

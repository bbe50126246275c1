package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// Validation errors
	CodeValidation    ErrorCode = "VALIDATION_ERROR"
	CodeMissingField  ErrorCode = "MISSING_FIELD"
	CodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	CodeOutOfRange    ErrorCode = "OUT_OF_RANGE"

	// Scoring specific errors
	CodeQuestionNotFound    ErrorCode = "QUESTION_NOT_FOUND"
	CodeSessionNotFound     ErrorCode = "SESSION_NOT_FOUND"
	CodeDuplicateSubmission ErrorCode = "DUPLICATE_SUBMISSION"
	CodeUnknownStrategy     ErrorCode = "UNKNOWN_STRATEGY"
	CodeAudioUnusable       ErrorCode = "AUDIO_UNUSABLE"
	CodeSessionCompleted    ErrorCode = "SESSION_COMPLETED"
	CodeTranscription       ErrorCode = "TRANSCRIPTION_ERROR"
)

// Sentinel errors for errors.Is checks. Matching is by code only.
var (
	ErrDuplicateSubmission = &DomainError{Code: CodeDuplicateSubmission, Message: "response already submitted for this question"}
	ErrUnknownStrategy     = &DomainError{Code: CodeUnknownStrategy, Message: "unknown answer strategy"}
	ErrSessionCompleted    = &DomainError{Code: CodeSessionCompleted, Message: "session already completed"}
	ErrQuestionNotFound    = &DomainError{Code: CodeQuestionNotFound, Message: "question not found"}
	ErrSessionNotFound     = &DomainError{Code: CodeSessionNotFound, Message: "session not found"}
	ErrAudioUnusable       = &DomainError{Code: CodeAudioUnusable, Message: "audio quality too low to score"}
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// WithContext attaches a detail that the HTTP layer exposes as "details".
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Helper functions for common errors
func NewNotFoundError(message string) *DomainError {
	return NewError(CodeNotFound, message, nil)
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(CodeInvalidInput, message, nil)
}

func NewInternalError(message string, err error) *DomainError {
	return NewError(CodeInternal, message, err)
}

func NewUnauthorizedError(message string) *DomainError {
	return NewError(CodeUnauthorized, message, nil)
}

func NewQuestionNotFoundError(questionID string) *DomainError {
	return NewError(CodeQuestionNotFound, fmt.Sprintf("Question not found with ID: %s", questionID), nil)
}

func NewSessionNotFoundError(sessionID string) *DomainError {
	return NewError(CodeSessionNotFound, fmt.Sprintf("Session not found with ID: %s", sessionID), nil)
}

func NewDuplicateSubmissionError(sessionID, questionID string) *DomainError {
	return NewError(CodeDuplicateSubmission,
		fmt.Sprintf("Response for question %s already submitted in session %s", questionID, sessionID), nil)
}

func NewUnknownStrategyError(strategy string) *DomainError {
	return NewError(CodeUnknownStrategy, fmt.Sprintf("Unknown answer strategy: %q", strategy), nil)
}

func NewSessionCompletedError(sessionID string) *DomainError {
	return NewError(CodeSessionCompleted, fmt.Sprintf("Session %s is already completed", sessionID), nil)
}

func NewAudioUnusableError(report *AudioQualityReport) *DomainError {
	err := NewError(CodeAudioUnusable, "Recording quality is too low to score, please record again", nil)
	if report != nil {
		err.WithContext("audio_quality", report)
	}
	return err
}

// ValidationError describes one invalid request field.
type ValidationError struct {
	Field   string      `json:"field"`
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects field errors for a single request.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	switch len(v) {
	case 0:
		return "validation failed"
	case 1:
		return "validation failed: " + v[0].Error()
	}
	return fmt.Sprintf("validation failed: %s (and %d more)", v[0].Error(), len(v)-1)
}

func NewMissingFieldError(field string) ValidationError {
	return ValidationError{Field: field, Code: CodeMissingField, Message: "field is required"}
}

func NewInvalidFormatError(field string, value interface{}) ValidationError {
	return ValidationError{Field: field, Code: CodeInvalidFormat, Message: "field has an invalid format", Value: value}
}

func NewOutOfRangeError(field string, value interface{}, min, max int) ValidationError {
	return ValidationError{
		Field:   field,
		Code:    CodeOutOfRange,
		Message: fmt.Sprintf("value must be between %d and %d", min, max),
		Value:   value,
	}
}

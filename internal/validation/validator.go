package validation

import (
	"regexp"
	"strings"

	"proficiency-scoring/internal/domain"
)

const (
	maxAnswerLength     = 2000
	maxTranscriptLength = 10000
	maxDurationSeconds  = 600
	maxReasonLength     = 500
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Validator provides request validation functionality
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateIdentifier checks a session or question identifier.
func (v *Validator) ValidateIdentifier(field, value string) domain.ValidationErrors {
	var errors domain.ValidationErrors
	if strings.TrimSpace(value) == "" {
		errors = append(errors, domain.NewMissingFieldError(field))
	} else if !identifierPattern.MatchString(value) {
		errors = append(errors, domain.NewInvalidFormatError(field, value))
	}
	return errors
}

// ValidateAnswerRequest validates a written answer. An empty answer is
// allowed and scores zero.
func (v *Validator) ValidateAnswerRequest(questionID, answer string) domain.ValidationErrors {
	errors := v.ValidateIdentifier("question_id", questionID)
	if len(answer) > maxAnswerLength {
		errors = append(errors, domain.NewOutOfRangeError("answer", len(answer), 0, maxAnswerLength))
	}
	return errors
}

// ValidateSpeakingRequest validates a spoken submission. Either a recording
// or a transcript must be present.
func (v *Validator) ValidateSpeakingRequest(questionID string, audioSize int, transcript string, durationSeconds float64) domain.ValidationErrors {
	errors := v.ValidateIdentifier("question_id", questionID)
	if audioSize == 0 && strings.TrimSpace(transcript) == "" {
		errors = append(errors, domain.NewMissingFieldError("audio"))
	}
	if len(transcript) > maxTranscriptLength {
		errors = append(errors, domain.NewOutOfRangeError("transcript", len(transcript), 0, maxTranscriptLength))
	}
	if durationSeconds < 0 || durationSeconds > maxDurationSeconds {
		errors = append(errors, domain.NewOutOfRangeError("duration_seconds", durationSeconds, 0, maxDurationSeconds))
	}
	return errors
}

// ValidateFlagRequest validates a reviewer flag.
func (v *Validator) ValidateFlagRequest(reason string) domain.ValidationErrors {
	var errors domain.ValidationErrors
	if strings.TrimSpace(reason) == "" {
		errors = append(errors, domain.NewMissingFieldError("reason"))
	} else if len(reason) > maxReasonLength {
		errors = append(errors, domain.NewOutOfRangeError("reason", len(reason), 1, maxReasonLength))
	}
	return errors
}

package dto

import "proficiency-scoring/internal/domain"

// StartSessionResponse confirms that the integrity baseline was recorded.
type StartSessionResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// EventRequest reports a browser event during a session.
type EventRequest struct {
	Type   string `json:"type"`
	Detail string `json:"detail,omitempty"`
}

// FlagRequest is a reviewer's manual flag.
type FlagRequest struct {
	Reason string `json:"reason"`
}

// FlagResponse confirms a manual flag.
type FlagResponse struct {
	SessionID  string `json:"session_id"`
	Flagged    bool   `json:"flagged"`
	FlaggedBy  string `json:"flagged_by,omitempty"`
	ReasonText string `json:"reason"`
}

// IntegrityReviewResponse shows reviewers the score together with the raw signals.
type IntegrityReviewResponse struct {
	SessionID string                 `json:"session_id"`
	Integrity *domain.IntegrityScore `json:"integrity"`
	Signals   domain.SessionSignals  `json:"signals"`
}

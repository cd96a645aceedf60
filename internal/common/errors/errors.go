// Package errors provides standardized error handling for the interview engine.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeQuotaExceeded    ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeQuotaCheckFailed ErrorCode = "QUOTA_CHECK_FAILED"

	ErrCodeGenerationFailed    ErrorCode = "GENERATION_FAILED"
	ErrCodeTranscriptionFailed ErrorCode = "TRANSCRIPTION_FAILED"
	ErrCodeSynthesisFailed     ErrorCode = "SYNTHESIS_FAILED"
	ErrCodeScoringMalformed    ErrorCode = "SCORING_MALFORMED"
	ErrCodeScoringFailed       ErrorCode = "SCORING_FAILED"

	ErrCodePersistenceFailed  ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeStateSchemaInvalid ErrorCode = "STATE_SCHEMA_INVALID"
	ErrCodeSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionEnded       ErrorCode = "SESSION_ENDED"

	ErrCodePlanInvalid ErrorCode = "PLAN_INVALID"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewQuotaExceededError creates the expected-outcome error blocking session start.
// RedirectURL points the caller at the billing surface.
func NewQuotaExceededError(currentUsage, planLimit int, redirectURL string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQuotaExceeded,
		Message:   "Interview quota for the current billing period is exhausted",
		Details:   fmt.Sprintf("usage: %d, limit: %d", currentUsage, planLimit),
		Retryable: false,
		Metadata: map[string]interface{}{
			"redirectUrl": redirectURL,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewQuotaCheckFailedError creates a retryable usage-store error.
func NewQuotaCheckFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQuotaCheckFailed,
		Message:   "Usage store error during quota check",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationFailedError creates a retryable question-generation error.
func NewGenerationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationFailed,
		Message:   "Question generation call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTranscriptionFailedError creates a recoverable per-turn transcription error.
func NewTranscriptionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTranscriptionFailed,
		Message:   "Transcription call failed for the current turn",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSynthesisFailedError creates the error behind text-only degradation.
func NewSynthesisFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSynthesisFailed,
		Message:   "Speech synthesis failed, reply degraded to text",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewScoringMalformedError creates a non-retryable feedback contract violation.
// The aggregator fails the request instead of guessing a score.
func NewScoringMalformedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeScoringMalformed,
		Message:   "Scoring response is not parseable as the expected structure",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewScoringFailedError creates a retryable scoring transport error.
func NewScoringFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeScoringFailed,
		Message:   "Scoring call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceFailedError creates a logged-and-surfaced save error.
// The in-memory session remains valid.
func NewPersistenceFailedError(sessionID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailed,
		Message:   "Durable save failed, in-memory session state remains valid",
		Details:   fmt.Sprintf("sessionId: %s, error: %s", sessionID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStateSchemaInvalidError creates a non-retryable persisted-state validation error.
func NewStateSchemaInvalidError(sessionID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStateSchemaInvalid,
		Message:   "Persisted workflow state does not match the versioned schema",
		Details:   fmt.Sprintf("sessionId: %s, %s", sessionID, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionNotFoundError creates a non-retryable lookup error.
func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Session not found",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionEndedError creates a non-retryable terminal-state error.
func NewSessionEndedError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionEnded,
		Message:   "Session has already ended",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPlanInvalidError creates a non-retryable phase-plan validation error.
func NewPlanInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePlanInvalid,
		Message:   "Interview plan failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. User-Visible Mapping
// ==========================

// UserMessage returns the actionable message for codes that must reach the end
// user. Every other code is handled internally and the interview continues.
func UserMessage(code ErrorCode) (string, bool) {
	switch code {
	case ErrCodeQuotaExceeded:
		return "You have used all interviews included in your plan. Upgrade to continue.", true
	case ErrCodeScoringMalformed, ErrCodeScoringFailed:
		return "Feedback could not be generated for this session. Please retry.", true
	default:
		return "", false
	}
}

// ==========================
// 4. Utility Functions
// ==========================

// IsRetryable reports whether err is a retryable StandardError.
func IsRetryable(err error) bool {
	if se, ok := err.(*StandardError); ok {
		return se.Retryable
	}
	return false
}

// CodeOf extracts the ErrorCode from err, or empty when it is not standardized.
func CodeOf(err error) ErrorCode {
	if se, ok := err.(*StandardError); ok {
		return se.Code
	}
	return ""
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "QUOTA"):
		return "QUOTA"
	case strings.Contains(codeStr, "SCORING"):
		return "FEEDBACK"
	case strings.Contains(codeStr, "PERSISTENCE") || strings.Contains(codeStr, "STATE") || strings.Contains(codeStr, "SESSION"):
		return "PERSISTENCE"
	case strings.Contains(codeStr, "GENERATION") || strings.Contains(codeStr, "TRANSCRIPTION") || strings.Contains(codeStr, "SYNTHESIS"):
		return "UPSTREAM"
	default:
		return "OTHER"
	}
}

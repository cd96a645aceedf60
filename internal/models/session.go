// internal/models/session.go
package models

import "time"

// SchemaVersion is the current persisted WorkflowState layout version.
// Loads of any other version are rejected.
const SchemaVersion = 1

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// ConversationTurn is one append-only entry of the session transcript.
// Turns are never mutated or deleted after append.
type ConversationTurn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// WorkflowState tracks interview progress across the ordered phase sequence.
// One instance exists per session and is mutated only by the engine's
// consumer goroutine.
type WorkflowState struct {
	SchemaVersion       int             `json:"schemaVersion"`
	CurrentPhaseID      string          `json:"currentPhaseId"`
	QuestionCounts      map[string]int  `json:"questionCounts"`
	Fulfilled           map[string]bool `json:"fulfilled"`
	FailedPhases        []string        `json:"failedPhases"`
	Finished            bool            `json:"finished"`
	TotalQuestionsAsked int             `json:"totalQuestionsAsked"`
}

// HasFailed reports whether phaseID is in the failed set.
func (s *WorkflowState) HasFailed(phaseID string) bool {
	for _, id := range s.FailedPhases {
		if id == phaseID {
			return true
		}
	}
	return false
}

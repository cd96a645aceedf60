// internal/models/feedback.go
package models

import "time"

// QuestionFeedback scores one interviewer question. Score is 1-10 for
// answered questions and exactly 0 with an empty narrative for questions
// without a matching answer.
type QuestionFeedback struct {
	Question  string `json:"question"`
	Score     int    `json:"score"`
	Narrative string `json:"narrative"`
}

// OverallFeedback is the single-call aggregate judgment over the full
// transcript, independent of the per-question scores.
type OverallFeedback struct {
	Score     int    `json:"score"` // 1-100
	Narrative string `json:"narrative"`
}

// FeedbackReport is created once per session and immutable thereafter.
type FeedbackReport struct {
	SessionID   string             `json:"sessionId"`
	Overall     OverallFeedback    `json:"overall"`
	PerQuestion []QuestionFeedback `json:"perQuestion"`
	GeneratedAt time.Time          `json:"generatedAt"`
}

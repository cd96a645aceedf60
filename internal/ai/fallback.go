// internal/ai/fallback.go
package ai

// DefaultQuestions is the static question bank used when generation is
// unavailable. The orchestrator cycles through it so a degraded session can
// still run end to end.
var DefaultQuestions = []string{
	"Could you tell me a little about yourself and your background?",
	"What is a project you are particularly proud of, and what was your role in it?",
	"What would you say are your main strengths, and where do you see room to grow?",
	"Why are you interested in this role?",
	"Is there anything you would like to ask me before we wrap up?",
}

// FallbackQuestion returns a question from the static bank based on how many
// questions the interview has asked so far.
func FallbackQuestion(totalAsked int) string {
	if totalAsked < 0 {
		totalAsked = 0
	}
	return DefaultQuestions[totalAsked%len(DefaultQuestions)]
}

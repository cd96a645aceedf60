// internal/ai/prompts.go
package ai

import (
	"fmt"
	"strings"

	"interview-engine/internal/models"
	"interview-engine/pkg/phaseplan"
)

const baseInterviewerPrompt = `
You are a professional job interviewer conducting a spoken mock interview.

Your role:
- Ask one question at a time, phrased for speech, not for reading.
- Build on what the candidate already said instead of repeating topics.
- Stay on the current interview phase described below.

Style:
- One or two sentences per question, no preamble, no numbering.
- Neutral and encouraging tone.
- Never answer on behalf of the candidate.
`

const fulfillmentPromptTemplate = `
You evaluate whether an interview phase has gathered enough signal.

Phase: %s
Focus areas: %s

Read the transcript the user provides. Decide whether the candidate's answers
in this phase have covered the focus areas with concrete substance.

Respond with EXACTLY this JSON object and nothing else:
{"fulfilled": true} or {"fulfilled": false}
`

const answerScoringPrompt = `
You grade a single interview answer.

Judge how well the answer addresses the question: concreteness, relevance,
structure and depth.

Respond with EXACTLY this JSON object and nothing else:
{"score": <integer 1-10>, "narrative": "<2-3 sentences of specific feedback>"}
`

const overallScoringPrompt = `
You grade a complete mock interview transcript.

Judge overall performance: communication, substance, consistency across
phases, and how the candidate handled weak moments.

Respond with EXACTLY this JSON object and nothing else:
{"score": <integer 1-100>, "narrative": "<a short paragraph of overall feedback>"}
`

// BuildInterviewerPrompt combines the interviewer identity with the current
// phase briefing.
func BuildInterviewerPrompt(phase phaseplan.Phase) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(baseInterviewerPrompt))
	b.WriteString("\n\nCurrent phase: ")
	b.WriteString(phase.Title)
	if phase.ContextPrompt != "" {
		b.WriteString("\n")
		b.WriteString(phase.ContextPrompt)
	}
	if len(phase.FocusAreas) > 0 {
		b.WriteString("\nFocus areas: ")
		b.WriteString(strings.Join(phase.FocusAreas, ", "))
	}
	return b.String()
}

// BuildFulfillmentPrompt produces the strict-JSON judge prompt for a phase.
func BuildFulfillmentPrompt(phase phaseplan.Phase) string {
	focus := strings.Join(phase.FocusAreas, ", ")
	if focus == "" {
		focus = phase.ContextPrompt
	}
	return strings.TrimSpace(fmt.Sprintf(fulfillmentPromptTemplate, phase.Title, focus))
}

func renderTranscript(history []models.ConversationTurn) string {
	if len(history) == 0 {
		return "(empty transcript)"
	}
	var b strings.Builder
	for _, turn := range history {
		b.WriteString(string(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	return b.String()
}

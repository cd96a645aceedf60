// internal/engine/feedback/aggregator.go
package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "interview-engine/internal/common/errors"
	"interview-engine/internal/common/logger"
	"interview-engine/internal/common/metrics"
	"interview-engine/internal/models"
)

// Scorer produces judgments for answered questions and for the session as a
// whole. The overall call is independent of the per-question calls.
type Scorer interface {
	ScoreAnswer(ctx context.Context, question, answer string) (models.QuestionFeedback, error)
	ScoreOverall(ctx context.Context, transcript []models.ConversationTurn) (models.OverallFeedback, error)
}

// qaPair is one interviewer question with the candidate content that followed
// it in the transcript. Answer is empty when the candidate never replied.
type qaPair struct {
	question string
	answer   string
}

// Aggregator builds the one-shot feedback report for an ended session.
type Aggregator struct {
	scorer Scorer
	logger logger.Logger
}

func NewAggregator(scorer Scorer, log logger.Logger) *Aggregator {
	return &Aggregator{
		scorer: scorer,
		logger: log.WithFields(map[string]interface{}{"component": "feedback-aggregator"}),
	}
}

// Generate walks the ordered transcript, scores every answered question, and
// assembles the immutable report. Questions without an answer are scored 0
// with an empty narrative and never reach the scorer. Any malformed or failed
// scorer response fails the whole report.
func (a *Aggregator) Generate(ctx context.Context, sessionID string, transcript []models.ConversationTurn) (*models.FeedbackReport, error) {
	pairs := pairQuestions(transcript)

	report := &models.FeedbackReport{
		SessionID:   sessionID,
		PerQuestion: make([]models.QuestionFeedback, 0, len(pairs)),
	}

	for _, pair := range pairs {
		if pair.answer == "" {
			report.PerQuestion = append(report.PerQuestion, models.QuestionFeedback{
				Question:  pair.question,
				Score:     0,
				Narrative: "",
			})
			continue
		}

		fb, err := a.scorer.ScoreAnswer(ctx, pair.question, pair.answer)
		if err != nil {
			metrics.FeedbackReports.WithLabelValues("failed").Inc()
			return nil, a.asScoringError(err)
		}
		if fb.Score < 1 || fb.Score > 10 {
			metrics.FeedbackReports.WithLabelValues("failed").Inc()
			return nil, apperrors.NewScoringMalformedError(
				fmt.Sprintf("question score %d outside 1-10", fb.Score))
		}

		fb.Question = pair.question
		report.PerQuestion = append(report.PerQuestion, fb)
	}

	overall, err := a.scorer.ScoreOverall(ctx, transcript)
	if err != nil {
		metrics.FeedbackReports.WithLabelValues("failed").Inc()
		return nil, a.asScoringError(err)
	}
	if overall.Score < 1 || overall.Score > 100 {
		metrics.FeedbackReports.WithLabelValues("failed").Inc()
		return nil, apperrors.NewScoringMalformedError(
			fmt.Sprintf("overall score %d outside 1-100", overall.Score))
	}

	report.Overall = overall
	report.GeneratedAt = time.Now().UTC()

	metrics.FeedbackReports.WithLabelValues("generated").Inc()
	a.logger.Info("feedback report generated", map[string]interface{}{
		"sessionId":    sessionID,
		"questions":    len(report.PerQuestion),
		"overallScore": overall.Score,
	})

	return report, nil
}

func (a *Aggregator) asScoringError(err error) error {
	if code := apperrors.CodeOf(err); code != "" {
		return err
	}
	return apperrors.NewScoringFailedError(err)
}

// pairQuestions matches each interviewer turn with the candidate turns that
// follow it, up to the next interviewer turn. Multiple candidate turns in a
// row belong to the same question and are joined in order.
func pairQuestions(transcript []models.ConversationTurn) []qaPair {
	var pairs []qaPair
	for _, turn := range transcript {
		switch turn.Role {
		case models.RoleInterviewer:
			pairs = append(pairs, qaPair{question: turn.Content})
		case models.RoleCandidate:
			if len(pairs) == 0 {
				// Candidate content before the first question has no
				// question to attach to.
				continue
			}
			last := &pairs[len(pairs)-1]
			if last.answer == "" {
				last.answer = turn.Content
			} else {
				last.answer = strings.Join([]string{last.answer, turn.Content}, "\n")
			}
		}
	}
	return pairs
}

// internal/ai/parse.go
package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "interview-engine/internal/common/errors"
	"interview-engine/internal/models"
)

// extractJSON strips markdown code fences the model sometimes wraps around
// JSON payloads.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	return strings.TrimSpace(trimmed)
}

func parseFulfillment(text string) (bool, error) {
	var payload struct {
		Fulfilled *bool `json:"fulfilled"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &payload); err != nil {
		return false, fmt.Errorf("fulfillment response not parseable: %w", err)
	}
	if payload.Fulfilled == nil {
		return false, fmt.Errorf("fulfillment response missing %q key", "fulfilled")
	}
	return *payload.Fulfilled, nil
}

func parseQuestionFeedback(text string) (models.QuestionFeedback, error) {
	var payload struct {
		Score     *int   `json:"score"`
		Narrative string `json:"narrative"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &payload); err != nil {
		return models.QuestionFeedback{}, apperrors.NewScoringMalformedError(
			fmt.Sprintf("question scoring response not parseable: %v", err))
	}
	if payload.Score == nil {
		return models.QuestionFeedback{}, apperrors.NewScoringMalformedError(
			"question scoring response missing score")
	}
	return models.QuestionFeedback{
		Score:     *payload.Score,
		Narrative: payload.Narrative,
	}, nil
}

func parseOverallFeedback(text string) (models.OverallFeedback, error) {
	var payload struct {
		Score     *int   `json:"score"`
		Narrative string `json:"narrative"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &payload); err != nil {
		return models.OverallFeedback{}, apperrors.NewScoringMalformedError(
			fmt.Sprintf("overall scoring response not parseable: %v", err))
	}
	if payload.Score == nil {
		return models.OverallFeedback{}, apperrors.NewScoringMalformedError(
			"overall scoring response missing score")
	}
	return models.OverallFeedback{
		Score:     *payload.Score,
		Narrative: payload.Narrative,
	}, nil
}

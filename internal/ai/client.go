// internal/ai/client.go
package ai

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"interview-engine/internal/common/config"
	apperrors "interview-engine/internal/common/errors"
	"interview-engine/internal/common/logger"
	"interview-engine/internal/models"
	"interview-engine/pkg/phaseplan"
)

// Gemini is the Vertex AI collaborator behind question generation, phase
// fulfillment judgment and feedback scoring.
type Gemini struct {
	client    *genai.Client
	modelName string
	maxTokens int32
	timeout   time.Duration
	logger    logger.Logger
}

// NewGemini creates the Vertex AI (Gemini) collaborator.
func NewGemini(ctx context.Context, cfg config.AIConfig, log logger.Logger) (*Gemini, error) {
	if cfg.Project == "" || cfg.Location == "" {
		return nil, fmt.Errorf("ai.project and ai.location must be set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.Project,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &Gemini{
		client:    client,
		modelName: cfg.Model,
		maxTokens: int32(cfg.MaxTokens),
		timeout:   config.GetDuration(cfg.Timeout),
		logger:    log.WithFields(map[string]interface{}{"component": "gemini"}),
	}, nil
}

// NextQuestion generates the next interviewer question for the current phase.
func (g *Gemini) NextQuestion(ctx context.Context, phase phaseplan.Phase, history []models.ConversationTurn) (string, error) {
	system := BuildInterviewerPrompt(phase)
	contents := historyAsContents(history)
	contents = append(contents, genai.NewContentFromText(
		"Ask your next interview question now. Reply with the question only.", genai.RoleUser))

	text, err := g.generate(ctx, system, contents, 0.7)
	if err != nil {
		return "", apperrors.NewGenerationFailedError(err)
	}
	return text, nil
}

// JudgeFulfillment asks whether the phase's focus areas have been covered by
// the conversation so far. The response must be exactly the documented JSON
// object; anything else is an error and the caller treats it as not fulfilled.
func (g *Gemini) JudgeFulfillment(ctx context.Context, phase phaseplan.Phase, history []models.ConversationTurn) (bool, error) {
	system := BuildFulfillmentPrompt(phase)
	contents := []*genai.Content{
		genai.NewContentFromText(renderTranscript(history), genai.RoleUser),
	}

	text, err := g.generate(ctx, system, contents, 0)
	if err != nil {
		return false, fmt.Errorf("fulfillment judgment: %w", err)
	}
	return parseFulfillment(text)
}

// ScoreAnswer judges one answered question on a 1-10 scale.
func (g *Gemini) ScoreAnswer(ctx context.Context, question, answer string) (models.QuestionFeedback, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(fmt.Sprintf("Question: %s\n\nAnswer: %s", question, answer), genai.RoleUser),
	}

	text, err := g.generate(ctx, answerScoringPrompt, contents, 0)
	if err != nil {
		return models.QuestionFeedback{}, apperrors.NewScoringFailedError(err)
	}
	return parseQuestionFeedback(text)
}

// ScoreOverall judges the whole session on a 1-100 scale, independently of
// the per-question scores.
func (g *Gemini) ScoreOverall(ctx context.Context, transcript []models.ConversationTurn) (models.OverallFeedback, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(renderTranscript(transcript), genai.RoleUser),
	}

	text, err := g.generate(ctx, overallScoringPrompt, contents, 0)
	if err != nil {
		return models.OverallFeedback{}, apperrors.NewScoringFailedError(err)
	}
	return parseOverallFeedback(text)
}

func (g *Gemini) generate(ctx context.Context, system string, contents []*genai.Content, temperature float32) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	temp := temperature
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   g.maxTokens,
	}

	res, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("vertex generate content: %w", err)
	}

	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("vertex returned empty text")
	}
	return text, nil
}

func historyAsContents(history []models.ConversationTurn) []*genai.Content {
	var contents []*genai.Content
	for _, turn := range history {
		role := genai.RoleUser
		if turn.Role == models.RoleInterviewer {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, genai.Role(role)))
	}
	return contents
}

// internal/speech/synthesizer.go
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"interview-engine/internal/common/config"
	apperrors "interview-engine/internal/common/errors"
	commonhttp "interview-engine/internal/common/http"
	"interview-engine/internal/common/logger"
)

// Synthesizer turns interviewer reply text into audio over the external
// text-to-speech REST service. Callers degrade to text-only delivery when
// synthesis fails.
type Synthesizer struct {
	client *commonhttp.Client
	url    string
	apiKey string
	voice  string
	logger logger.Logger
}

type synthesisRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

func NewSynthesizer(cfg config.SpeechConfig, log logger.Logger) *Synthesizer {
	return &Synthesizer{
		client: commonhttp.NewClient(config.GetDuration(cfg.Timeout)),
		url:    cfg.SynthesizerURL,
		apiKey: cfg.SynthesizerKey,
		voice:  cfg.Voice,
		logger: log.WithFields(map[string]interface{}{"component": "synthesizer"}),
	}
}

// Synthesize posts reply text and returns the rendered audio bytes.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(synthesisRequest{Text: text, Voice: s.voice})
	if err != nil {
		return nil, apperrors.NewSynthesisFailedError(err)
	}

	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.NewSynthesisFailedError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.DoWithContext(ctx, req)
	if err != nil {
		return nil, apperrors.NewSynthesisFailedError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.NewSynthesisFailedError(
			fmt.Errorf("synthesizer returned %d: %s", resp.StatusCode, string(body)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewSynthesisFailedError(fmt.Errorf("read audio body: %w", err))
	}
	if len(audio) == 0 {
		return nil, apperrors.NewSynthesisFailedError(fmt.Errorf("synthesizer returned empty audio"))
	}

	return audio, nil
}

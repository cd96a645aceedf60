// internal/speech/transcriber.go
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

// Transcriber converts a finished utterance's audio into text over the
// external speech-to-text REST service.
type Transcriber struct {
	client *commonhttp.Client
	url    string
	apiKey string
	logger logger.Logger
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func NewTranscriber(cfg config.SpeechConfig, log logger.Logger) *Transcriber {
	return &Transcriber{
		client: commonhttp.NewClient(config.GetDuration(cfg.Timeout)),
		url:    cfg.TranscriberURL,
		apiKey: cfg.TranscriberKey,
		logger: log.WithFields(map[string]interface{}{"component": "transcriber"}),
	}
}

// Transcribe posts raw audio and returns the recognized text. Empty text is a
// valid outcome (silence or noise only).
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequest(http.MethodPost, t.url, bytes.NewReader(audio))
	if err != nil {
		return "", apperrors.NewTranscriptionFailedError(err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.DoWithContext(ctx, req)
	if err != nil {
		return "", apperrors.NewTranscriptionFailedError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", apperrors.NewTranscriptionFailedError(
			fmt.Errorf("transcriber returned %d: %s", resp.StatusCode, string(body)))
	}

	var result transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", apperrors.NewTranscriptionFailedError(fmt.Errorf("decode response: %w", err))
	}

	return result.Text, nil
}

// internal/speech/speech_test.go
package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-engine/internal/common/config"
	apperrors "interview-engine/internal/common/errors"
	"interview-engine/internal/common/logger"
)

func speechConfig(transcriberURL, synthesizerURL string) config.SpeechConfig {
	return config.SpeechConfig{
		TranscriberURL: transcriberURL,
		SynthesizerURL: synthesizerURL,
		Voice:          "en-US-standard",
		Timeout:        2000,
		TranscriberKey: "stt-key",
		SynthesizerKey: "tts-key",
	}
}

func TestTranscriber_Transcribe(t *testing.T) {
	var gotAuth, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		json.NewEncoder(w).Encode(map[string]string{"text": "I led the migration project"})
	}))
	defer server.Close()

	tr := NewTranscriber(speechConfig(server.URL, ""), logger.NewTestLogger(t))

	text, err := tr.Transcribe(context.Background(), []byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, "I led the migration project", text)
	assert.Equal(t, "Bearer stt-key", gotAuth)
	assert.Equal(t, "application/octet-stream", gotContentType)
}

func TestTranscriber_EmptyTextIsValid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": ""})
	}))
	defer server.Close()

	tr := NewTranscriber(speechConfig(server.URL, ""), logger.NewTestLogger(t))

	text, err := tr.Transcribe(context.Background(), []byte{0x01})
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestTranscriber_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tr := NewTranscriber(speechConfig(server.URL, ""), logger.NewTestLogger(t))

	_, err := tr.Transcribe(context.Background(), []byte{0x01})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeTranscriptionFailed, apperrors.CodeOf(err))
	assert.True(t, apperrors.IsRetryable(err))
}

func TestSynthesizer_Synthesize(t *testing.T) {
	var gotReq synthesisRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte{0xAA, 0xBB, 0xCC})
	}))
	defer server.Close()

	syn := NewSynthesizer(speechConfig("", server.URL), logger.NewTestLogger(t))

	audio, err := syn.Synthesize(context.Background(), "Tell me about yourself.")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, audio)
	assert.Equal(t, "Tell me about yourself.", gotReq.Text)
	assert.Equal(t, "en-US-standard", gotReq.Voice)
}

func TestSynthesizer_EmptyAudioIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	syn := NewSynthesizer(speechConfig("", server.URL), logger.NewTestLogger(t))

	_, err := syn.Synthesize(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSynthesisFailed, apperrors.CodeOf(err))
}

func TestSynthesizer_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad voice", http.StatusBadRequest)
	}))
	defer server.Close()

	syn := NewSynthesizer(speechConfig("", server.URL), logger.NewTestLogger(t))

	_, err := syn.Synthesize(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSynthesisFailed, apperrors.CodeOf(err))
}

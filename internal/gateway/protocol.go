// internal/gateway/protocol.go
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"interview-engine/internal/engine/orchestrator"
	"interview-engine/internal/engine/quota"
	"interview-engine/internal/models"
)

// Client frame types.
const (
	frameHello        = "hello"
	frameAudio        = "audio"
	framePlaybackDone = "playback_done"
	frameStop         = "stop"
)

// Server frame types.
const (
	frameSessionStarted = "session_started"
	frameDenied         = "denied"
	frameReply          = "reply"
	frameError          = "error"
	frameEnded          = "ended"
	frameReport         = "report"
)

// clientFrame is every message the client may send. The first frame must be
// a hello; audio frames carry one capture tick each.
type clientFrame struct {
	Type           string `json:"type"`
	AccountID      string `json:"accountId,omitempty"`
	CandidateEmail string `json:"candidateEmail,omitempty"`
	Audio          []byte `json:"audio,omitempty"`
	HasSpeech      bool   `json:"hasSpeech,omitempty"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// serverFrame is every message the gateway sends. Exactly one payload field
// is set, matching Type.
type serverFrame struct {
	Type      string                 `json:"type"`
	SessionID string                 `json:"sessionId,omitempty"`
	Reply     *orchestrator.Reply    `json:"reply,omitempty"`
	Error     *errorPayload          `json:"error,omitempty"`
	State     *models.WorkflowState  `json:"state,omitempty"`
	Report    *models.FeedbackReport `json:"report,omitempty"`
	Admission *quota.Admission       `json:"admission,omitempty"`
}

var (
	errFirstFrameNotHello  = errors.New("first frame must be hello")
	errHelloMissingAccount = errors.New("hello frame missing accountId")
)

func decodeClientFrame(data []byte) (clientFrame, error) {
	var frame clientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return clientFrame{}, fmt.Errorf("invalid frame: %w", err)
	}
	if frame.Type == "" {
		return clientFrame{}, fmt.Errorf("frame missing type")
	}
	return frame, nil
}

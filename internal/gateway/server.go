// internal/gateway/server.go
package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"interview-engine/internal/common/config"
	apperrors "interview-engine/internal/common/errors"
	"interview-engine/internal/common/logger"
	"interview-engine/internal/engine/orchestrator"
	"interview-engine/internal/engine/quota"
	"interview-engine/internal/models"
	"interview-engine/pkg/phaseplan"
)

const helloTimeout = 5 * time.Second

// Server exposes the websocket session endpoint. Each connection is admitted
// through the quota gate and then owns exactly one orchestrator.
type Server struct {
	engineCfg config.EngineConfig
	plan      *phaseplan.Plan
	gate      *quota.Gate
	deps      orchestrator.Dependencies
	upgrader  websocket.Upgrader
	readLimit int64
	logger    logger.Logger
}

// NewServer creates the gateway. The Emitter field of deps is ignored; each
// connection gets its own emitter bound to the websocket.
func NewServer(engineCfg config.EngineConfig, gwCfg config.GatewayConfig, plan *phaseplan.Plan, gate *quota.Gate, deps orchestrator.Dependencies, log logger.Logger) *Server {
	return &Server{
		engineCfg: engineCfg,
		plan:      plan,
		gate:      gate,
		deps:      deps,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		readLimit: int64(gwCfg.MaxMessageKB) * 1024,
		logger:    log.WithFields(map[string]interface{}{"component": "gateway"}),
	}
}

// Handler returns the HTTP mux with the session and health endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/session", s.handleSession)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if s.readLimit > 0 {
		conn.SetReadLimit(s.readLimit)
	}

	ws := &wsConn{conn: conn}

	hello, err := s.readHello(conn)
	if err != nil {
		ws.writeError("bad_request", err.Error())
		return
	}

	adm, err := s.gate.CanStart(r.Context(), hello.AccountID)
	if err != nil {
		ws.writeError(string(apperrors.CodeOf(err)), "quota check failed, try again")
		return
	}
	if !adm.CanStart {
		msg, _ := apperrors.UserMessage(apperrors.ErrCodeQuotaExceeded)
		ws.write(serverFrame{Type: frameDenied, Admission: adm, Error: &errorPayload{
			Code:    string(apperrors.ErrCodeQuotaExceeded),
			Message: msg,
		}})
		return
	}
	if _, err := s.gate.TrackStart(r.Context(), hello.AccountID); err != nil {
		ws.writeError(string(apperrors.CodeOf(err)), "quota check failed, try again")
		return
	}

	sessionID := uuid.NewString()
	s.runSession(r.Context(), ws, sessionID, hello)
}

func (s *Server) readHello(conn *websocket.Conn) (clientFrame, error) {
	_ = conn.SetReadDeadline(time.Now().Add(helloTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return clientFrame{}, err
	}
	frame, err := decodeClientFrame(data)
	if err != nil {
		return clientFrame{}, err
	}
	if frame.Type != frameHello {
		return clientFrame{}, errFirstFrameNotHello
	}
	if frame.AccountID == "" {
		return clientFrame{}, errHelloMissingAccount
	}
	return frame, nil
}

func (s *Server) runSession(ctx context.Context, ws *wsConn, sessionID string, hello clientFrame) {
	log := s.logger.WithFields(map[string]interface{}{
		"sessionId": sessionID,
		"accountId": hello.AccountID,
	})

	deps := s.deps
	deps.Emitter = &wsEmitter{conn: ws, sessionID: sessionID, logger: log}

	orch, err := orchestrator.New(orchestrator.Config{
		SessionID:            sessionID,
		AccountID:            hello.AccountID,
		CandidateEmail:       hello.CandidateEmail,
		SilenceDuration:      config.GetDuration(s.engineCfg.SilenceDurationMs),
		TickInterval:         config.GetDuration(s.engineCfg.TickIntervalMs),
		MaxQuestionsPerPhase: s.engineCfg.MaxQuestionsPerPhase,
	}, s.plan, deps, log)
	if err != nil {
		ws.writeError(string(apperrors.ErrCodePlanInvalid), "session could not be initialized")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- orch.Run(runCtx) }()

	ws.write(serverFrame{Type: frameSessionStarted, SessionID: sessionID})
	orch.Start()

	log.Info("session started", nil)

	// Read loop: every client frame becomes one orchestrator event. A closed
	// or broken connection is an implicit stop; committed history survives.
	for {
		_, data, err := ws.conn.ReadMessage()
		if err != nil {
			orch.Stop()
			break
		}

		frame, err := decodeClientFrame(data)
		if err != nil {
			log.Warn("dropping malformed frame", map[string]interface{}{"error": err.Error()})
			continue
		}

		switch frame.Type {
		case frameAudio:
			orch.AudioFrame(frame.Audio, frame.HasSpeech)
		case framePlaybackDone:
			orch.PlaybackDone()
		case frameStop:
			orch.Stop()
		default:
			log.Warn("dropping unknown frame type", map[string]interface{}{"type": frame.Type})
		}
	}

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		cancel()
		<-done
	}
	log.Info("session closed", nil)
}

// wsConn serializes writes; gorilla connections do not allow concurrent
// writers.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) write(frame serverFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(frame)
}

func (c *wsConn) writeError(code, message string) {
	_ = c.write(serverFrame{Type: frameError, Error: &errorPayload{Code: code, Message: message}})
}

// wsEmitter adapts orchestrator output onto the websocket. Failures without a
// user-visible mapping are logged only; the interview continues and the
// client sees nothing.
type wsEmitter struct {
	conn      *wsConn
	sessionID string
	logger    logger.Logger
}

func (e *wsEmitter) EmitReply(reply orchestrator.Reply) {
	if err := e.conn.write(serverFrame{Type: frameReply, SessionID: e.sessionID, Reply: &reply}); err != nil {
		e.logger.Warn("reply delivery failed", map[string]interface{}{"error": err.Error()})
	}
}

func (e *wsEmitter) EmitFailure(err error) {
	code := apperrors.CodeOf(err)
	msg, visible := apperrors.UserMessage(code)
	if !visible {
		e.logger.Debug("suppressing internal failure", map[string]interface{}{
			"code":  string(code),
			"error": err.Error(),
		})
		return
	}
	e.conn.writeError(string(code), msg)
}

func (e *wsEmitter) EmitReport(report *models.FeedbackReport) {
	if err := e.conn.write(serverFrame{Type: frameReport, SessionID: e.sessionID, Report: report}); err != nil {
		e.logger.Warn("report delivery failed", map[string]interface{}{"error": err.Error()})
	}
}

func (e *wsEmitter) EmitEnded(state models.WorkflowState) {
	if err := e.conn.write(serverFrame{Type: frameEnded, SessionID: e.sessionID, State: &state}); err != nil {
		e.logger.Warn("ended delivery failed", map[string]interface{}{"error": err.Error()})
	}
}

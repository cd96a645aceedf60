// internal/engine/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"time"

	"interview-engine/internal/ai"
	apperrors "interview-engine/internal/common/errors"
	"interview-engine/internal/common/logger"
	"interview-engine/internal/common/metrics"
	"interview-engine/internal/engine/phases"
	"interview-engine/internal/engine/silence"
	"interview-engine/internal/models"
	"interview-engine/pkg/phaseplan"
)

// State is the orchestrator's turn-taking state.
type State string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateSpeaking   State = "speaking"
	StateEnded      State = "ended"
)

// Interviewer generates questions and judges phase fulfillment.
type Interviewer interface {
	NextQuestion(ctx context.Context, phase phaseplan.Phase, history []models.ConversationTurn) (string, error)
	JudgeFulfillment(ctx context.Context, phase phaseplan.Phase, history []models.ConversationTurn) (bool, error)
}

// Transcriber converts a finished utterance into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Synthesizer renders reply text as audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// SessionStore is the durable side of the session. Saves are fire and forget:
// a failed write is logged and the in-memory session stays valid.
type SessionStore interface {
	SaveState(ctx context.Context, sessionID string, state models.WorkflowState) error
	AppendTurn(ctx context.Context, sessionID string, turn models.ConversationTurn) error
	SaveFeedback(ctx context.Context, report *models.FeedbackReport) error
}

// ReportGenerator builds the post-session feedback report.
type ReportGenerator interface {
	Generate(ctx context.Context, sessionID string, transcript []models.ConversationTurn) (*models.FeedbackReport, error)
}

// Archiver indexes the finished session for search. Optional.
type Archiver interface {
	Archive(ctx context.Context, sessionID, accountID string, transcript []models.ConversationTurn, state models.WorkflowState, report *models.FeedbackReport) error
}

// Notifier announces a ready feedback report. Optional.
type Notifier interface {
	FeedbackReady(ctx context.Context, recipientEmail string, report *models.FeedbackReport)
}

// Reply is one interviewer question dispatched to the client.
type Reply struct {
	Text     string `json:"text"`
	Audio    []byte `json:"audio,omitempty"`
	PhaseID  string `json:"phaseId"`
	Degraded bool   `json:"degraded"`
}

// Emitter delivers session output to the client transport.
type Emitter interface {
	EmitReply(reply Reply)
	EmitFailure(err error)
	EmitReport(report *models.FeedbackReport)
	EmitEnded(state models.WorkflowState)
}

// Dependencies are the injected collaborators, scoped to one session.
type Dependencies struct {
	Interviewer Interviewer
	Transcriber Transcriber
	Synthesizer Synthesizer
	Store       SessionStore
	Reporter    ReportGenerator
	Archiver    Archiver
	Notifier    Notifier
	Emitter     Emitter
}

// Config fixes the per-session parameters.
type Config struct {
	SessionID            string
	AccountID            string
	CandidateEmail       string
	SilenceDuration      time.Duration
	TickInterval         time.Duration
	MaxQuestionsPerPhase int
}

// Orchestrator coordinates capture, transcription, phase advancement, reply
// generation and playback for a single session. All session state is owned by
// the consumer loop in Run; network calls run in per-turn goroutines that
// only enqueue completion events.
type Orchestrator struct {
	cfg  Config
	plan *phaseplan.Plan
	deps Dependencies

	machine  *phases.Machine
	detector *silence.Detector

	state    State
	history  []models.ConversationTurn
	audioBuf []byte

	events   chan event
	finished chan struct{}

	turnCtx     context.Context
	turnCancel  context.CancelFunc
	turnStarted time.Time

	logger logger.Logger
}

// New creates a session orchestrator over the given phase plan.
func New(cfg Config, plan *phaseplan.Plan, deps Dependencies, log logger.Logger) (*Orchestrator, error) {
	machine, err := phases.NewMachine(plan.Order(), cfg.MaxQuestionsPerPhase)
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		cfg:      cfg,
		plan:     plan,
		deps:     deps,
		machine:  machine,
		detector: silence.NewDetector(cfg.SilenceDuration, cfg.TickInterval),
		state:    StateIdle,
		events:   make(chan event, 128),
		finished: make(chan struct{}),
		logger: log.WithFields(map[string]interface{}{
			"component": "orchestrator",
			"sessionId": cfg.SessionID,
		}),
	}, nil
}

// State returns the current turn-taking state. Only meaningful from the
// goroutine running the consumer loop; external callers should rely on
// emitted events instead.
func (o *Orchestrator) State() State { return o.state }

// Start begins the session: the interviewer asks the opening question.
func (o *Orchestrator) Start() { o.post(startEvent{}) }

// Stop ends the session from any state. History committed so far is
// preserved and feedback is still generated for it.
func (o *Orchestrator) Stop() { o.post(stopEvent{}) }

// AudioFrame feeds one capture tick into the session.
func (o *Orchestrator) AudioFrame(frame []byte, hasSpeech bool) {
	o.post(audioFrameEvent{frame: frame, hasSpeech: hasSpeech})
}

// PlaybackDone signals that the client finished playing the reply audio.
func (o *Orchestrator) PlaybackDone() { o.post(playbackDoneEvent{}) }

func (o *Orchestrator) post(ev event) {
	select {
	case o.events <- ev:
	case <-o.finished:
	}
}

// Run is the single consumer loop. It returns when the session has ended and
// the feedback flow has settled, or when ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer close(o.finished)
	defer o.cancelTurn()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-o.events:
			if o.handle(ctx, ev) {
				return nil
			}
		}
	}
}

// handle applies one event and reports whether the loop is done.
func (o *Orchestrator) handle(ctx context.Context, ev event) bool {
	switch ev := ev.(type) {
	case startEvent:
		o.handleStart(ctx)
	case stopEvent:
		o.finish(ctx)
	case audioFrameEvent:
		o.handleAudioFrame(ctx, ev)
	case playbackDoneEvent:
		if o.state == StateSpeaking {
			o.state = StateListening
		}
	case answerProcessedEvent:
		o.handleAnswerProcessed(ctx, ev)
	case answerFailedEvent:
		o.handleAnswerFailed(ev)
	case replyReadyEvent:
		o.handleReplyReady(ctx, ev)
	case feedbackReadyEvent:
		o.handleFeedbackReady(ctx, ev)
		return true
	case feedbackFailedEvent:
		o.logger.Error("feedback generation failed", map[string]interface{}{"error": ev.err.Error()})
		o.deps.Emitter.EmitFailure(ev.err)
		return true
	}
	return false
}

func (o *Orchestrator) handleStart(ctx context.Context) {
	if o.state != StateIdle {
		return
	}
	o.state = StateProcessing
	o.turnStarted = time.Now()
	o.generateReply(ctx, o.machine.CurrentPhase())
}

func (o *Orchestrator) handleAudioFrame(ctx context.Context, ev audioFrameEvent) {
	switch o.state {
	case StateListening:
		o.audioBuf = append(o.audioBuf, ev.frame...)
		if o.detector.Tick(ev.hasSpeech) == silence.Timeout {
			o.submitTurn(ctx)
		}
	case StateSpeaking:
		// Speech during playback is captured but never submitted until
		// playback ends; overlapping audio is not supported. The silence
		// timer only runs while listening, so a pending utterance cannot
		// time out mid-playback.
		o.audioBuf = append(o.audioBuf, ev.frame...)
		if ev.hasSpeech {
			o.detector.Tick(true)
		}
	}
}

// submitTurn moves the accumulated utterance into processing. The candidate
// turn is appended only after transcription succeeds, so a failed exchange
// leaves history untouched.
func (o *Orchestrator) submitTurn(ctx context.Context) {
	o.state = StateProcessing
	o.turnStarted = time.Now()

	audio := make([]byte, len(o.audioBuf))
	copy(audio, o.audioBuf)
	history := o.snapshotHistory()
	phase, _ := o.plan.Phase(o.machine.CurrentPhase())

	turnCtx := o.newTurn(ctx)
	go func() {
		text, err := o.deps.Transcriber.Transcribe(turnCtx, audio)
		if err != nil {
			o.post(answerFailedEvent{err: err})
			return
		}

		sufficient := false
		if text != "" {
			judged := append(history, models.ConversationTurn{
				Role:      models.RoleCandidate,
				Content:   text,
				Timestamp: time.Now().UTC(),
			})
			sufficient, err = o.deps.Interviewer.JudgeFulfillment(turnCtx, phase, judged)
			if err != nil {
				// An unreadable judgment never fails the turn; the phase
				// simply is not fulfilled yet.
				o.logger.Warn("fulfillment judgment failed", map[string]interface{}{
					"phase": phase.ID,
					"error": err.Error(),
				})
				sufficient = false
			}
		}

		o.post(answerProcessedEvent{text: text, sufficient: sufficient})
	}()
}

func (o *Orchestrator) handleAnswerProcessed(ctx context.Context, ev answerProcessedEvent) {
	if o.state != StateProcessing {
		return
	}

	if ev.text == "" {
		// Silence or noise only. Nothing to answer, keep listening.
		o.state = StateListening
		o.resetTurn()
		return
	}

	o.appendTurn(ctx, models.RoleCandidate, ev.text)

	transition, err := o.machine.Observe(ev.sufficient)
	if err != nil {
		o.finish(ctx)
		return
	}

	switch transition {
	case phases.Advanced:
		metrics.PhaseOutcomes.WithLabelValues(o.previousPhase(), "fulfilled").Inc()
	case phases.AdvancedFailed:
		metrics.PhaseOutcomes.WithLabelValues(o.previousPhase(), "failed").Inc()
	case phases.Finished:
		o.recordFinalPhaseOutcome()
		o.finish(ctx)
		return
	}

	o.generateReply(ctx, o.machine.CurrentPhase())
}

func (o *Orchestrator) handleAnswerFailed(ev answerFailedEvent) {
	if o.state != StateProcessing {
		return
	}
	metrics.TurnFailures.WithLabelValues("transcription").Inc()
	o.logger.Warn("turn processing failed, returning to listening", map[string]interface{}{
		"error": ev.err.Error(),
	})
	o.deps.Emitter.EmitFailure(ev.err)
	o.state = StateListening
	o.resetTurn()
}

// generateReply produces the next interviewer question for the given phase in
// a per-turn goroutine. Generation failures fall back to the static question
// bank; synthesis failures degrade the reply to text only.
func (o *Orchestrator) generateReply(ctx context.Context, phaseID string) {
	phase, _ := o.plan.Phase(phaseID)
	history := o.snapshotHistory()
	totalAsked := o.machine.TotalQuestions()

	turnCtx := o.newTurn(ctx)
	go func() {
		text, err := o.deps.Interviewer.NextQuestion(turnCtx, phase, history)
		if err != nil {
			metrics.TurnFailures.WithLabelValues("generation").Inc()
			o.logger.Warn("question generation failed, using fallback", map[string]interface{}{
				"phase": phaseID,
				"error": err.Error(),
			})
			text = ai.FallbackQuestion(totalAsked)
		}

		audio, err := o.deps.Synthesizer.Synthesize(turnCtx, text)
		degraded := false
		if err != nil {
			metrics.TurnFailures.WithLabelValues("synthesis").Inc()
			o.logger.Warn("synthesis failed, degrading to text-only reply", map[string]interface{}{
				"error": err.Error(),
			})
			audio = nil
			degraded = true
		}

		o.post(replyReadyEvent{text: text, audio: audio, degraded: degraded, phaseID: phaseID})
	}()
}

func (o *Orchestrator) handleReplyReady(ctx context.Context, ev replyReadyEvent) {
	if o.state != StateProcessing {
		return
	}

	if err := o.machine.RecordQuestion(); err != nil {
		o.finish(ctx)
		return
	}
	o.appendTurn(ctx, models.RoleInterviewer, ev.text)
	o.persistState(ctx)

	o.deps.Emitter.EmitReply(Reply{
		Text:     ev.text,
		Audio:    ev.audio,
		PhaseID:  ev.phaseID,
		Degraded: ev.degraded,
	})

	metrics.TurnsCompleted.Inc()
	metrics.TurnDuration.Observe(time.Since(o.turnStarted).Seconds())

	o.resetTurn()
	if len(ev.audio) > 0 {
		o.state = StateSpeaking
	} else {
		o.state = StateListening
	}
}

// finish transitions to ended from any state, cancels in-flight work and
// kicks off feedback generation over the history committed so far.
func (o *Orchestrator) finish(ctx context.Context) {
	if o.state == StateEnded {
		return
	}
	o.state = StateEnded
	o.cancelTurn()
	o.persistState(ctx)

	finalState := o.machine.State()
	o.deps.Emitter.EmitEnded(finalState)

	history := o.snapshotHistory()
	go func() {
		report, err := o.deps.Reporter.Generate(ctx, o.cfg.SessionID, history)
		if err != nil {
			o.post(feedbackFailedEvent{err: err})
			return
		}
		o.post(feedbackReadyEvent{report: report})
	}()
}

func (o *Orchestrator) handleFeedbackReady(ctx context.Context, ev feedbackReadyEvent) {
	if err := o.deps.Store.SaveFeedback(ctx, ev.report); err != nil {
		o.logger.Error("feedback save failed", map[string]interface{}{"error": err.Error()})
	}

	if o.deps.Archiver != nil {
		if err := o.deps.Archiver.Archive(ctx, o.cfg.SessionID, o.cfg.AccountID, o.history, o.machine.State(), ev.report); err != nil {
			o.logger.Warn("session archive failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if o.deps.Notifier != nil {
		o.deps.Notifier.FeedbackReady(ctx, o.cfg.CandidateEmail, ev.report)
	}

	o.deps.Emitter.EmitReport(ev.report)
}

// appendTurn commits one transcript entry in memory and fires the durable
// append. A failed write is logged; history order is the in-memory order.
func (o *Orchestrator) appendTurn(ctx context.Context, role models.Role, content string) {
	turn := models.ConversationTurn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	o.history = append(o.history, turn)

	if err := o.deps.Store.AppendTurn(ctx, o.cfg.SessionID, turn); err != nil {
		o.logger.Error("history append persist failed", map[string]interface{}{
			"error": apperrors.NewPersistenceFailedError(o.cfg.SessionID, err).Error(),
		})
	}
}

func (o *Orchestrator) persistState(ctx context.Context) {
	if err := o.deps.Store.SaveState(ctx, o.cfg.SessionID, o.machine.State()); err != nil {
		o.logger.Error("state persist failed", map[string]interface{}{"error": err.Error()})
	}
}

func (o *Orchestrator) snapshotHistory() []models.ConversationTurn {
	snapshot := make([]models.ConversationTurn, len(o.history))
	copy(snapshot, o.history)
	return snapshot
}

func (o *Orchestrator) resetTurn() {
	o.audioBuf = o.audioBuf[:0]
	o.detector.Reset()
}

func (o *Orchestrator) newTurn(ctx context.Context) context.Context {
	o.cancelTurn()
	o.turnCtx, o.turnCancel = context.WithCancel(ctx)
	return o.turnCtx
}

func (o *Orchestrator) cancelTurn() {
	if o.turnCancel != nil {
		o.turnCancel()
	}
}

// previousPhase names the phase the machine just advanced past.
func (o *Orchestrator) previousPhase() string {
	order := o.plan.Order()
	current := o.machine.CurrentPhase()
	for i, id := range order {
		if id == current && i > 0 {
			return order[i-1]
		}
	}
	return current
}

// recordFinalPhaseOutcome attributes the finishing transition to the last
// phase in the plan.
func (o *Orchestrator) recordFinalPhaseOutcome() {
	order := o.plan.Order()
	last := order[len(order)-1]
	state := o.machine.State()
	outcome := "fulfilled"
	if state.HasFailed(last) {
		outcome = "failed"
	}
	metrics.PhaseOutcomes.WithLabelValues(last, outcome).Inc()
}

// internal/engine/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-engine/internal/ai"
	"interview-engine/internal/common/logger"
	"interview-engine/internal/models"
	"interview-engine/pkg/phaseplan"
)

// --- fakes ---

type fakeInterviewer struct {
	mu          sync.Mutex
	questionN   int
	judgmentN   int
	judgments   []bool
	questionErr error
}

func (f *fakeInterviewer) NextQuestion(_ context.Context, phase phaseplan.Phase, _ []models.ConversationTurn) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.questionErr != nil {
		return "", f.questionErr
	}
	f.questionN++
	return fmt.Sprintf("question %d (%s)", f.questionN, phase.ID), nil
}

func (f *fakeInterviewer) JudgeFulfillment(_ context.Context, _ phaseplan.Phase, _ []models.ConversationTurn) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.judgmentN >= len(f.judgments) {
		return false, nil
	}
	sufficient := f.judgments[f.judgmentN]
	f.judgmentN++
	return sufficient, nil
}

type fakeTranscriber struct {
	mu    sync.Mutex
	n     int
	err   error
	texts []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.n < len(f.texts) {
		text := f.texts[f.n]
		f.n++
		return text, nil
	}
	f.n++
	return fmt.Sprintf("answer %d", f.n), nil
}

type fakeSynthesizer struct {
	mu  sync.Mutex
	err error
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []byte{0x01, 0x02}, nil
}

type fakeStore struct {
	mu       sync.Mutex
	turns    []models.ConversationTurn
	states   []models.WorkflowState
	feedback *models.FeedbackReport
}

func (f *fakeStore) SaveState(_ context.Context, _ string, state models.WorkflowState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
	return nil
}

func (f *fakeStore) AppendTurn(_ context.Context, _ string, turn models.ConversationTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, turn)
	return nil
}

func (f *fakeStore) SaveFeedback(_ context.Context, report *models.FeedbackReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedback = report
	return nil
}

func (f *fakeStore) history() []models.ConversationTurn {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ConversationTurn, len(f.turns))
	copy(out, f.turns)
	return out
}

type fakeReporter struct{}

func (fakeReporter) Generate(_ context.Context, sessionID string, transcript []models.ConversationTurn) (*models.FeedbackReport, error) {
	return &models.FeedbackReport{
		SessionID:   sessionID,
		Overall:     models.OverallFeedback{Score: 50, Narrative: fmt.Sprintf("%d turns", len(transcript))},
		GeneratedAt: time.Now().UTC(),
	}, nil
}

type captureEmitter struct {
	replies  chan Reply
	failures chan error
	reports  chan *models.FeedbackReport
	ended    chan models.WorkflowState
}

func newCaptureEmitter() *captureEmitter {
	return &captureEmitter{
		replies:  make(chan Reply, 16),
		failures: make(chan error, 16),
		reports:  make(chan *models.FeedbackReport, 4),
		ended:    make(chan models.WorkflowState, 4),
	}
}

func (e *captureEmitter) EmitReply(reply Reply)                    { e.replies <- reply }
func (e *captureEmitter) EmitFailure(err error)                    { e.failures <- err }
func (e *captureEmitter) EmitReport(report *models.FeedbackReport) { e.reports <- report }
func (e *captureEmitter) EmitEnded(state models.WorkflowState)     { e.ended <- state }

func recv[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
	panic("unreachable")
}

// --- harness ---

type harness struct {
	orch        *Orchestrator
	emitter     *captureEmitter
	store       *fakeStore
	interviewer *fakeInterviewer
	transcriber *fakeTranscriber
	synthesizer *fakeSynthesizer
	cancel      context.CancelFunc
	runErr      chan error
}

func newHarness(t *testing.T, plan *phaseplan.Plan, maxQuestions int, judgments []bool) *harness {
	t.Helper()

	h := &harness{
		emitter:     newCaptureEmitter(),
		store:       &fakeStore{},
		interviewer: &fakeInterviewer{judgments: judgments},
		transcriber: &fakeTranscriber{},
		synthesizer: &fakeSynthesizer{},
		runErr:      make(chan error, 1),
	}

	cfg := Config{
		SessionID:            "sess-1",
		AccountID:            "acct-1",
		SilenceDuration:      300 * time.Millisecond,
		TickInterval:         100 * time.Millisecond,
		MaxQuestionsPerPhase: maxQuestions,
	}
	deps := Dependencies{
		Interviewer: h.interviewer,
		Transcriber: h.transcriber,
		Synthesizer: h.synthesizer,
		Store:       h.store,
		Reporter:    fakeReporter{},
		Emitter:     h.emitter,
	}

	orch, err := New(cfg, plan, deps, logger.NewTestLogger(t))
	require.NoError(t, err)
	h.orch = orch

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	t.Cleanup(cancel)
	go func() { h.runErr <- orch.Run(ctx) }()

	return h
}

// speakAndGoQuiet simulates one candidate utterance followed by enough quiet
// ticks to trip the silence timeout (300ms threshold at 100ms ticks).
func (h *harness) speakAndGoQuiet() {
	h.orch.AudioFrame([]byte{0xFF}, true)
	h.orch.AudioFrame([]byte{0xFF}, true)
	for i := 0; i < 3; i++ {
		h.orch.AudioFrame([]byte{0x00}, false)
	}
}

func threePhasePlan() *phaseplan.Plan {
	return &phaseplan.Plan{
		Name: "scenario",
		Phases: []phaseplan.Phase{
			{ID: "intro", Title: "Intro"},
			{ID: "experience", Title: "Experience"},
			{ID: "motivation", Title: "Motivation"},
		},
	}
}

// --- tests ---

func TestOrchestrator_FullSession(t *testing.T) {
	// intro fulfilled after 1 question, experience exhausts its budget of 2,
	// motivation fulfilled after 1.
	h := newHarness(t, threePhasePlan(), 2, []bool{true, false, false, true})

	h.orch.Start()
	reply := recv(t, h.emitter.replies, "opening question")
	assert.Equal(t, "intro", reply.PhaseID)
	assert.NotEmpty(t, reply.Audio)
	h.orch.PlaybackDone()

	h.speakAndGoQuiet()
	reply = recv(t, h.emitter.replies, "question 2")
	assert.Equal(t, "experience", reply.PhaseID)
	h.orch.PlaybackDone()

	h.speakAndGoQuiet()
	reply = recv(t, h.emitter.replies, "question 3")
	assert.Equal(t, "experience", reply.PhaseID)
	h.orch.PlaybackDone()

	h.speakAndGoQuiet()
	reply = recv(t, h.emitter.replies, "question 4")
	assert.Equal(t, "motivation", reply.PhaseID)
	h.orch.PlaybackDone()

	h.speakAndGoQuiet()
	final := recv(t, h.emitter.ended, "session end")

	assert.True(t, final.Finished)
	assert.Equal(t, 4, final.TotalQuestionsAsked)
	assert.True(t, final.Fulfilled["intro"])
	assert.True(t, final.Fulfilled["motivation"])
	assert.Equal(t, []string{"experience"}, final.FailedPhases)
	assert.Equal(t, map[string]int{"intro": 1, "experience": 2, "motivation": 1}, final.QuestionCounts)

	report := recv(t, h.emitter.reports, "feedback report")
	assert.Equal(t, "sess-1", report.SessionID)
	// 4 questions + 4 answers in the transcript handed to the aggregator.
	assert.Equal(t, "8 turns", report.Overall.Narrative)

	require.NoError(t, recv(t, h.runErr, "run exit"))

	history := h.store.history()
	require.Len(t, history, 8)
	assert.Equal(t, models.RoleInterviewer, history[0].Role)
	assert.Equal(t, models.RoleCandidate, history[1].Role)
}

func TestOrchestrator_ProcessingFailureReturnsToListening(t *testing.T) {
	h := newHarness(t, threePhasePlan(), 2, nil)
	// Degraded replies skip the speaking state so the harness does not need
	// playback events.
	h.synthesizer.err = errors.New("tts down")

	h.orch.Start()
	recv(t, h.emitter.replies, "opening question")

	historyBefore := len(h.store.history())

	h.transcriber.mu.Lock()
	h.transcriber.err = errors.New("stt unavailable")
	h.transcriber.mu.Unlock()

	h.speakAndGoQuiet()
	failure := recv(t, h.emitter.failures, "turn failure")
	assert.Error(t, failure)

	// The failed exchange produced no candidate content.
	assert.Len(t, h.store.history(), historyBefore)

	// The session continues: the same prompt can simply be re-answered.
	h.transcriber.mu.Lock()
	h.transcriber.err = nil
	h.transcriber.mu.Unlock()

	h.speakAndGoQuiet()
	reply := recv(t, h.emitter.replies, "next question after recovery")
	assert.NotEmpty(t, reply.Text)
	assert.Len(t, h.store.history(), historyBefore+2)
}

func TestOrchestrator_SynthesisFailureDegradesToText(t *testing.T) {
	h := newHarness(t, threePhasePlan(), 2, nil)
	h.synthesizer.err = errors.New("voice model crashed")

	h.orch.Start()
	reply := recv(t, h.emitter.replies, "opening question")

	assert.True(t, reply.Degraded)
	assert.Nil(t, reply.Audio)
	assert.NotEmpty(t, reply.Text)
}

func TestOrchestrator_GenerationFailureUsesFallbackBank(t *testing.T) {
	h := newHarness(t, threePhasePlan(), 2, nil)
	h.interviewer.questionErr = errors.New("model overloaded")

	h.orch.Start()
	reply := recv(t, h.emitter.replies, "opening question")

	assert.Equal(t, ai.DefaultQuestions[0], reply.Text)
}

func TestOrchestrator_StopPreservesHistoryAndProducesFeedback(t *testing.T) {
	h := newHarness(t, threePhasePlan(), 2, nil)

	h.orch.Start()
	recv(t, h.emitter.replies, "opening question")
	h.orch.PlaybackDone()

	h.orch.Stop()

	final := recv(t, h.emitter.ended, "session end")
	assert.False(t, final.Finished)
	assert.Equal(t, 1, final.TotalQuestionsAsked)

	report := recv(t, h.emitter.reports, "feedback report")
	assert.Equal(t, "1 turns", report.Overall.Narrative)

	require.NoError(t, recv(t, h.runErr, "run exit"))
	assert.Len(t, h.store.history(), 1)
}

func TestOrchestrator_SilenceOnlyNeverSubmits(t *testing.T) {
	h := newHarness(t, threePhasePlan(), 2, nil)

	h.orch.Start()
	recv(t, h.emitter.replies, "opening question")
	h.orch.PlaybackDone()

	// Ten quiet ticks, far past the threshold. No speech was ever detected,
	// so no turn is submitted and no further reply appears.
	for i := 0; i < 10; i++ {
		h.orch.AudioFrame([]byte{0x00}, false)
	}

	select {
	case reply := <-h.emitter.replies:
		t.Fatalf("unexpected reply from silence-only turn: %q", reply.Text)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestOrchestrator_EmptyTranscriptionKeepsListening(t *testing.T) {
	h := newHarness(t, threePhasePlan(), 2, nil)
	h.transcriber.texts = []string{"", "real answer"}

	h.orch.Start()
	recv(t, h.emitter.replies, "opening question")
	h.orch.PlaybackDone()

	historyBefore := len(h.store.history())

	// Noise only: transcriber returns empty text, nothing is appended.
	h.speakAndGoQuiet()

	select {
	case reply := <-h.emitter.replies:
		t.Fatalf("unexpected reply for empty transcription: %q", reply.Text)
	case <-time.After(200 * time.Millisecond):
	}
	assert.Len(t, h.store.history(), historyBefore)

	// A real utterance still goes through afterwards.
	h.speakAndGoQuiet()
	recv(t, h.emitter.replies, "question after real answer")
}

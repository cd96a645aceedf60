// internal/engine/orchestrator/events.go
package orchestrator

import "interview-engine/internal/models"

// Every external callback and every completed network call enqueues one of
// these; the consumer loop applies transitions deterministically, so there is
// never a re-entrant mutation of session state.
type event interface {
	isEvent()
}

type startEvent struct{}

type stopEvent struct{}

// audioFrameEvent is one capture tick: the raw audio chunk plus the
// voice-activity flag for the tick interval it covers.
type audioFrameEvent struct {
	frame     []byte
	hasSpeech bool
}

type playbackDoneEvent struct{}

// answerProcessedEvent carries the transcribed candidate answer and the phase
// fulfillment judgment computed from the updated conversation.
type answerProcessedEvent struct {
	text       string
	sufficient bool
}

type answerFailedEvent struct {
	err error
}

// replyReadyEvent carries the next interviewer question. Audio is nil when
// synthesis failed and the turn degrades to text only.
type replyReadyEvent struct {
	text     string
	audio    []byte
	degraded bool
	phaseID  string
}

type feedbackReadyEvent struct {
	report *models.FeedbackReport
}

type feedbackFailedEvent struct {
	err error
}

func (startEvent) isEvent()           {}
func (stopEvent) isEvent()            {}
func (audioFrameEvent) isEvent()      {}
func (playbackDoneEvent) isEvent()    {}
func (answerProcessedEvent) isEvent() {}
func (answerFailedEvent) isEvent()    {}
func (replyReadyEvent) isEvent()      {}
func (feedbackReadyEvent) isEvent()   {}
func (feedbackFailedEvent) isEvent()  {}

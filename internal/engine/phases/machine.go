// internal/engine/phases/machine.go
package phases

import (
	"errors"

	"interview-engine/internal/models"
)

// Transition is the outcome of observing a candidate answer.
type Transition int

const (
	// Stay means the current phase keeps asking questions.
	Stay Transition = iota
	// Advanced means the phase was fulfilled and the machine moved on.
	Advanced
	// AdvancedFailed means the phase exhausted its question budget without
	// fulfillment and was recorded as failed before moving on.
	AdvancedFailed
	// Finished means the last phase was advanced past; the session is done.
	Finished
)

// String returns a human-readable transition name.
func (t Transition) String() string {
	switch t {
	case Advanced:
		return "ADVANCED"
	case AdvancedFailed:
		return "ADVANCED_FAILED"
	case Finished:
		return "FINISHED"
	default:
		return "STAY"
	}
}

var (
	ErrNoPhases        = errors.New("phase list must not be empty")
	ErrMachineFinished = errors.New("phase machine already finished")
)

// Machine walks a fixed ordered phase list, tracking question counts,
// fulfillment flags and failed phases. No phase is ever revisited once
// advanced past.
type Machine struct {
	order        []string
	maxQuestions int
	index        int

	counts    map[string]int
	fulfilled map[string]bool
	failed    []string
	finished  bool
	total     int
}

// NewMachine creates a machine over the ordered phase list with a shared
// per-phase question budget.
func NewMachine(order []string, maxQuestionsPerPhase int) (*Machine, error) {
	if len(order) == 0 {
		return nil, ErrNoPhases
	}
	if maxQuestionsPerPhase < 1 {
		maxQuestionsPerPhase = 1
	}

	counts := make(map[string]int, len(order))
	fulfilled := make(map[string]bool, len(order))
	for _, id := range order {
		counts[id] = 0
		fulfilled[id] = false
	}

	return &Machine{
		order:        order,
		maxQuestions: maxQuestionsPerPhase,
		counts:       counts,
		fulfilled:    fulfilled,
	}, nil
}

// Restore rebuilds a machine from a persisted state snapshot.
func Restore(order []string, maxQuestionsPerPhase int, state models.WorkflowState) (*Machine, error) {
	m, err := NewMachine(order, maxQuestionsPerPhase)
	if err != nil {
		return nil, err
	}

	for id, n := range state.QuestionCounts {
		m.counts[id] = n
		m.total += n
	}
	for id, ok := range state.Fulfilled {
		m.fulfilled[id] = ok
	}
	m.failed = append(m.failed, state.FailedPhases...)
	m.finished = state.Finished

	for i, id := range order {
		if id == state.CurrentPhaseID {
			m.index = i
			break
		}
	}
	return m, nil
}

// CurrentPhase returns the active phase id, or empty once finished.
func (m *Machine) CurrentPhase() string {
	if m.finished {
		return ""
	}
	return m.order[m.index]
}

// Finished reports whether the last phase has been advanced past.
func (m *Machine) Finished() bool {
	return m.finished
}

// TotalQuestions returns the monotonically increasing dispatch count.
func (m *Machine) TotalQuestions() int {
	return m.total
}

// RecordQuestion counts one dispatched question against the current phase.
// Called when a question is sent, independent of phase outcome.
func (m *Machine) RecordQuestion() error {
	if m.finished {
		return ErrMachineFinished
	}
	m.counts[m.order[m.index]]++
	m.total++
	return nil
}

// Observe applies the fulfillment judgment for the answer to the most recent
// question and returns the transition taken:
//
//   - judged sufficient: the phase is marked fulfilled and the machine
//     advances;
//   - budget exhausted without fulfillment: the phase joins the failed list
//     and the machine advances;
//   - otherwise the phase keeps asking.
//
// Advancing past the last phase finishes the machine. Failed phases never
// block completion; they surface later as weak areas.
func (m *Machine) Observe(sufficient bool) (Transition, error) {
	if m.finished {
		return Finished, ErrMachineFinished
	}

	current := m.order[m.index]

	if sufficient {
		m.fulfilled[current] = true
		return m.advance(Advanced), nil
	}

	if m.counts[current] >= m.maxQuestions {
		m.failed = append(m.failed, current)
		return m.advance(AdvancedFailed), nil
	}

	return Stay, nil
}

func (m *Machine) advance(via Transition) Transition {
	if m.index == len(m.order)-1 {
		m.finished = true
		return Finished
	}
	m.index++
	return via
}

// State returns a snapshot in the persisted layout.
func (m *Machine) State() models.WorkflowState {
	counts := make(map[string]int, len(m.counts))
	for k, v := range m.counts {
		counts[k] = v
	}
	fulfilled := make(map[string]bool, len(m.fulfilled))
	for k, v := range m.fulfilled {
		fulfilled[k] = v
	}
	failed := make([]string, len(m.failed))
	copy(failed, m.failed)

	return models.WorkflowState{
		SchemaVersion:       models.SchemaVersion,
		CurrentPhaseID:      m.CurrentPhase(),
		QuestionCounts:      counts,
		Fulfilled:           fulfilled,
		FailedPhases:        failed,
		Finished:            m.finished,
		TotalQuestionsAsked: m.total,
	}
}

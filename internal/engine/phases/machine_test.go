// internal/engine/phases/machine_test.go
package phases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interview-engine/internal/models"
)

// assertInvariants checks the workflow-state invariants that must hold after
// every update.
func assertInvariants(t *testing.T, m *Machine) {
	t.Helper()
	state := m.State()

	sum := 0
	for _, n := range state.QuestionCounts {
		sum += n
	}
	assert.Equal(t, state.TotalQuestionsAsked, sum,
		"totalQuestionsAsked must equal the sum of per-phase counts")

	for _, failed := range state.FailedPhases {
		assert.False(t, state.Fulfilled[failed],
			"phase %s must not be both fulfilled and failed", failed)
		if !state.Finished {
			assert.NotEqual(t, state.CurrentPhaseID, failed,
				"current phase must not be failed while the session runs")
		}
	}
}

func newTestMachine(t *testing.T, order []string, max int) *Machine {
	t.Helper()
	m, err := NewMachine(order, max)
	require.NoError(t, err)
	return m
}

func TestNewMachine_EmptyPhaseList(t *testing.T) {
	_, err := NewMachine(nil, 2)
	assert.ErrorIs(t, err, ErrNoPhases)
}

func TestMachine_StayWhileBudgetAndUnfulfilled(t *testing.T) {
	m := newTestMachine(t, []string{"intro", "experience"}, 3)

	require.NoError(t, m.RecordQuestion())
	tr, err := m.Observe(false)
	require.NoError(t, err)
	assert.Equal(t, Stay, tr)
	assert.Equal(t, "intro", m.CurrentPhase())
	assertInvariants(t, m)
}

func TestMachine_FulfillmentAdvancesImmediately(t *testing.T) {
	m := newTestMachine(t, []string{"intro", "experience"}, 3)

	require.NoError(t, m.RecordQuestion())
	tr, err := m.Observe(true)
	require.NoError(t, err)
	assert.Equal(t, Advanced, tr)
	assert.Equal(t, "experience", m.CurrentPhase())
	assert.True(t, m.State().Fulfilled["intro"])
	assertInvariants(t, m)
}

func TestMachine_ExhaustionFailsPhaseAndAdvances(t *testing.T) {
	m := newTestMachine(t, []string{"intro", "experience"}, 2)

	require.NoError(t, m.RecordQuestion())
	tr, err := m.Observe(false)
	require.NoError(t, err)
	assert.Equal(t, Stay, tr)

	require.NoError(t, m.RecordQuestion())
	tr, err = m.Observe(false)
	require.NoError(t, err)
	assert.Equal(t, AdvancedFailed, tr)

	state := m.State()
	assert.Contains(t, state.FailedPhases, "intro")
	assert.False(t, state.Fulfilled["intro"])
	assert.Equal(t, "experience", m.CurrentPhase())
	assertInvariants(t, m)
}

func TestMachine_FinishedIffLastPhaseAdvancedPast(t *testing.T) {
	m := newTestMachine(t, []string{"intro", "closing"}, 2)

	require.NoError(t, m.RecordQuestion())
	_, err := m.Observe(true)
	require.NoError(t, err)
	assert.False(t, m.Finished(), "finished must stay false before the last phase ends")

	require.NoError(t, m.RecordQuestion())
	tr, err := m.Observe(true)
	require.NoError(t, err)
	assert.Equal(t, Finished, tr)
	assert.True(t, m.Finished())
	assertInvariants(t, m)

	// Terminal: no further questions or observations.
	assert.ErrorIs(t, m.RecordQuestion(), ErrMachineFinished)
	_, err = m.Observe(true)
	assert.ErrorIs(t, err, ErrMachineFinished)
}

func TestMachine_LastPhaseExhaustionFailsAndFinishes(t *testing.T) {
	m := newTestMachine(t, []string{"closing"}, 1)

	require.NoError(t, m.RecordQuestion())
	tr, err := m.Observe(false)
	require.NoError(t, err)
	assert.Equal(t, Finished, tr)

	state := m.State()
	assert.True(t, state.Finished)
	assert.Contains(t, state.FailedPhases, "closing")
	assertInvariants(t, m)
}

// Scenario: intro fulfilled after 1 question, experience never fulfilled and
// exhausts its 2-question budget, motivation fulfilled after 1 question.
func TestMachine_EndToEndScenario(t *testing.T) {
	m := newTestMachine(t, []string{"intro", "experience", "motivation"}, 2)

	// intro: one question, sufficient answer.
	require.NoError(t, m.RecordQuestion())
	tr, err := m.Observe(true)
	require.NoError(t, err)
	assert.Equal(t, Advanced, tr)
	assertInvariants(t, m)

	// experience: two insufficient answers.
	require.NoError(t, m.RecordQuestion())
	tr, err = m.Observe(false)
	require.NoError(t, err)
	assert.Equal(t, Stay, tr)
	assertInvariants(t, m)

	require.NoError(t, m.RecordQuestion())
	tr, err = m.Observe(false)
	require.NoError(t, err)
	assert.Equal(t, AdvancedFailed, tr)
	assertInvariants(t, m)

	// motivation: one sufficient answer ends the interview.
	require.NoError(t, m.RecordQuestion())
	tr, err = m.Observe(true)
	require.NoError(t, err)
	assert.Equal(t, Finished, tr)

	state := m.State()
	assert.True(t, state.Finished)
	assert.Equal(t, 4, state.TotalQuestionsAsked)
	assert.Equal(t, []string{"experience"}, state.FailedPhases)
	assert.True(t, state.Fulfilled["intro"])
	assert.True(t, state.Fulfilled["motivation"])
	assert.False(t, state.Fulfilled["experience"])
	assertInvariants(t, m)
}

func TestRestore_RoundTrip(t *testing.T) {
	m := newTestMachine(t, []string{"intro", "experience", "motivation"}, 2)
	require.NoError(t, m.RecordQuestion())
	_, err := m.Observe(true)
	require.NoError(t, err)
	require.NoError(t, m.RecordQuestion())

	snapshot := m.State()

	restored, err := Restore([]string{"intro", "experience", "motivation"}, 2, snapshot)
	require.NoError(t, err)
	assert.Equal(t, snapshot, restored.State())
	assert.Equal(t, "experience", restored.CurrentPhase())
	assert.Equal(t, models.SchemaVersion, restored.State().SchemaVersion)
}

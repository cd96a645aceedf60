// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_sessions_started_total",
			Help: "Total number of interview sessions admitted and started",
		},
	)

	SessionsDenied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_sessions_denied_total",
			Help: "Total number of session starts blocked by the quota gate",
		},
	)

	TurnsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_turns_completed_total",
			Help: "Total number of candidate turns fully processed",
		},
	)

	TurnFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_turn_failures_total",
			Help: "Total number of per-turn upstream failures by stage",
		},
		[]string{"stage"},
	)

	TurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "interview_turn_duration_seconds",
			Help: "Duration from silence timeout to reply dispatch",
		},
	)

	PhaseOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_phase_outcomes_total",
			Help: "Phase completions by outcome (fulfilled or failed)",
		},
		[]string{"phase", "outcome"},
	)

	FeedbackReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_feedback_reports_total",
			Help: "Feedback aggregation attempts by result",
		},
		[]string{"result"},
	)
)

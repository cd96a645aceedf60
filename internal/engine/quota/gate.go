// internal/engine/quota/gate.go
package quota

import (
	"context"

	apperrors "interview-engine/internal/common/errors"
	"interview-engine/internal/common/logger"
	"interview-engine/internal/common/metrics"
	"interview-engine/internal/models"
)

// UsageStore backs the gate with per-account usage records.
type UsageStore interface {
	Usage(ctx context.Context, accountID string) (models.UsageRecord, error)
	Increment(ctx context.Context, accountID string) (int, error)
}

// Admission is the outcome of a quota check.
type Admission struct {
	CanStart            bool             `json:"canStart"`
	CurrentUsage        int              `json:"currentUsage"`
	PlanLimit           models.PlanLimit `json:"planLimit"`
	RemainingInterviews int              `json:"remainingInterviews"` // -1 for unlimited plans
	RedirectURL         string           `json:"redirectUrl,omitempty"`
}

// Gate is the admission control checked before a session may start.
type Gate struct {
	store      UsageStore
	billingURL string
	logger     logger.Logger
}

func NewGate(store UsageStore, billingURL string, log logger.Logger) *Gate {
	return &Gate{
		store:      store,
		billingURL: billingURL,
		logger:     log.WithFields(map[string]interface{}{"component": "quota-gate"}),
	}
}

// CanStart compares current period usage against the plan limit. A full quota
// is an expected outcome, not an error: the admission carries the billing
// redirect and session initialization must not proceed.
func (g *Gate) CanStart(ctx context.Context, accountID string) (*Admission, error) {
	rec, err := g.store.Usage(ctx, accountID)
	if err != nil {
		return nil, apperrors.NewQuotaCheckFailedError(err)
	}

	adm := &Admission{
		CurrentUsage: rec.CurrentUsage,
		PlanLimit:    rec.PlanLimit,
	}

	if rec.PlanLimit.Unlimited() {
		adm.CanStart = true
		adm.RemainingInterviews = -1
		return adm, nil
	}

	adm.CanStart = rec.PlanLimit.Allows(rec.CurrentUsage)
	adm.RemainingInterviews = int(rec.PlanLimit) - rec.CurrentUsage
	if adm.RemainingInterviews < 0 {
		adm.RemainingInterviews = 0
	}

	if !adm.CanStart {
		adm.RedirectURL = g.billingURL
		metrics.SessionsDenied.Inc()
		g.logger.Info("session start denied by quota", map[string]interface{}{
			"accountId": accountID,
			"usage":     rec.CurrentUsage,
			"planLimit": int(rec.PlanLimit),
		})
	}

	return adm, nil
}

// TrackStart increments current usage by exactly one. The gate performs a
// single atomic increment per call; callers invoke it once per admitted
// session.
func (g *Gate) TrackStart(ctx context.Context, accountID string) (int, error) {
	usage, err := g.store.Increment(ctx, accountID)
	if err != nil {
		return 0, apperrors.NewQuotaCheckFailedError(err)
	}
	metrics.SessionsStarted.Inc()
	return usage, nil
}

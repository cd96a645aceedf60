// internal/models/usage.go
package models

// PlanLimit is the number of interview sessions a plan permits per billing
// period. Unlimited plans carry the sentinel, never a large literal.
type PlanLimit int

// PlanUnlimited marks plans without a session cap.
const PlanUnlimited PlanLimit = -1

// Unlimited reports whether the plan has no session cap.
func (l PlanLimit) Unlimited() bool {
	return l == PlanUnlimited
}

// Allows reports whether one more session may start given current usage.
func (l PlanLimit) Allows(currentUsage int) bool {
	if l.Unlimited() {
		return true
	}
	return currentUsage < int(l)
}

// UsageRecord is the per-account session counter for the current billing
// period. Incremented at session start; reset by the external billing
// rollover.
type UsageRecord struct {
	AccountID    string    `json:"accountId"`
	Period       string    `json:"period"` // YYYY-MM
	CurrentUsage int       `json:"currentUsage"`
	PlanLimit    PlanLimit `json:"planLimit"`
}

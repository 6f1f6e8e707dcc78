// Package reminder filters dashboard reminder feeds against the current
// state of their owning contracts, dropping stale or inconsistent entries.
package reminder

import (
	"math"
	"time"

	"leasedesk/internal/model"
)

const (
	// defaultLookaheadDays is the fixed window applied to expiry reminders
	// that carry no explicit lead time.
	defaultLookaheadDays = 7
	// windowSlackDays widens the expected window around an explicit lead time.
	windowSlackDays = 7
	// staleCutoffDays drops reminders this far past contract expiry,
	// regardless of lead time.
	staleCutoffDays = 14
	// triggerDriftToleranceDays is the accepted drift between a reminder's
	// stored trigger date and the one implied by the contract's current
	// end date. Larger drift means the reminder was computed against a
	// previous end date.
	triggerDriftToleranceDays = 2
)

// FilterValid returns the subset of reminders that are still consistent
// with their owning contracts as of now. Pure function: order-preserving,
// idempotent, no side effects.
func FilterValid(reminders []model.Reminder, contracts []model.Contract, now time.Time) []model.Reminder {
	byID := make(map[string]*model.Contract, len(contracts))
	for i := range contracts {
		byID[contracts[i].ID] = &contracts[i]
	}

	out := make([]model.Reminder, 0, len(reminders))
	for _, r := range reminders {
		c, ok := byID[r.ContractID]
		if !ok {
			continue
		}
		if c.Status == model.ContractArchived || c.Status == model.ContractTerminated {
			continue
		}
		if r.Type == model.ReminderContractExpiry && !expiryValid(r, c, now) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func expiryValid(r model.Reminder, c *model.Contract, now time.Time) bool {
	daysUntil := daysBetween(now, c.EndDate)

	if daysUntil < -staleCutoffDays {
		return false
	}

	lead := defaultLookaheadDays
	lower, upper := 0, defaultLookaheadDays
	if r.LeadDays != nil {
		lead = *r.LeadDays
		lower = lead - windowSlackDays
		if lower < 0 {
			lower = 0
		}
		upper = lead + windowSlackDays
	}
	if daysUntil < lower || daysUntil > upper {
		return false
	}

	if r.TriggerDate != nil {
		expected := c.EndDate.AddDate(0, 0, -lead)
		drift := daysBetween(expected, *r.TriggerDate)
		if drift < 0 {
			drift = -drift
		}
		if drift > triggerDriftToleranceDays {
			return false
		}
	}

	return true
}

// daysBetween returns ceil((to - from) / 1 day); negative when to is in
// the past relative to from.
func daysBetween(from, to time.Time) int {
	return int(math.Ceil(to.Sub(from).Hours() / 24))
}

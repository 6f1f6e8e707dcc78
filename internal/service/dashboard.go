package service

import (
	"context"
	"fmt"
	"time"

	"leasedesk/internal/model"
	"leasedesk/internal/reminder"
	"leasedesk/internal/repository"
)

// DashboardService serves the reminder feeds. Both feeds pass through the
// validity filter, so stale and orphaned reminders never reach a client.
type DashboardService interface {
	// Reminders returns every valid reminder, sent or not.
	Reminders(ctx context.Context) ([]model.Reminder, error)

	// ActiveReminders returns the valid reminders still awaiting dispatch.
	ActiveReminders(ctx context.Context) ([]model.Reminder, error)
}

type dashboardService struct {
	reminders repository.ReminderRepository
	contracts repository.ContractRepository
	now       func() time.Time
}

// NewDashboardService constructs a DashboardService. now is overridable
// for tests; nil means time.Now.
func NewDashboardService(reminders repository.ReminderRepository, contracts repository.ContractRepository, now func() time.Time) DashboardService {
	if now == nil {
		now = time.Now
	}
	return &dashboardService{reminders: reminders, contracts: contracts, now: now}
}

func (s *dashboardService) Reminders(ctx context.Context) ([]model.Reminder, error) {
	return s.load(ctx, false)
}

func (s *dashboardService) ActiveReminders(ctx context.Context) ([]model.Reminder, error) {
	return s.load(ctx, true)
}

func (s *dashboardService) load(ctx context.Context, activeOnly bool) ([]model.Reminder, error) {
	items, err := s.reminders.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	contracts, err := s.contracts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}

	valid := reminder.FilterValid(items, contracts, s.now())
	if !activeOnly {
		return valid, nil
	}

	active := make([]model.Reminder, 0, len(valid))
	for _, r := range valid {
		if !r.Sent {
			active = append(active, r)
		}
	}
	return active, nil
}

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"leasedesk/internal/model"
)

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Reminders(ctx context.Context) ([]model.Reminder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Reminder), args.Error(1)
}

func (m *MockDashboardService) ActiveReminders(ctx context.Context) ([]model.Reminder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Reminder), args.Error(1)
}

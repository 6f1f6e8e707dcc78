package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"leasedesk/internal/model"
)

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) Properties(ctx context.Context) ([]model.Property, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Property), args.Error(1)
}

func (m *MockCatalogService) Tenants(ctx context.Context) ([]model.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Tenant), args.Error(1)
}

func (m *MockCatalogService) Contracts(ctx context.Context) ([]model.Contract, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Contract), args.Error(1)
}

func (m *MockCatalogService) Units(ctx context.Context, propertyID string) ([]model.PropertyUnit, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PropertyUnit), args.Error(1)
}

func (m *MockCatalogService) CreateTenant(ctx context.Context, t *model.Tenant) (*model.Tenant, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tenant), args.Error(1)
}

func (m *MockCatalogService) CreateUnit(ctx context.Context, u *model.PropertyUnit) (*model.PropertyUnit, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PropertyUnit), args.Error(1)
}

package repository

import (
	"context"

	"leasedesk/internal/model"
)

// PropertyRepository provides read access to the property catalog.
type PropertyRepository interface {
	List(ctx context.Context) ([]model.Property, error)
	FindByID(ctx context.Context, id string) (*model.Property, error)
}

// TenantRepository provides access to the tenant catalog. Create exists
// because reconciliation may add a tenant the extraction named.
type TenantRepository interface {
	List(ctx context.Context) ([]model.Tenant, error)
	FindByID(ctx context.Context, id string) (*model.Tenant, error)
	Create(ctx context.Context, t *model.Tenant) (*model.Tenant, error)
}

// ContractRepository provides read access to the contract catalog.
type ContractRepository interface {
	List(ctx context.Context) ([]model.Contract, error)
	FindByID(ctx context.Context, id string) (*model.Contract, error)
}

// UnitRepository provides access to property sub-units.
type UnitRepository interface {
	List(ctx context.Context) ([]model.PropertyUnit, error)
	ListByProperty(ctx context.Context, propertyID string) ([]model.PropertyUnit, error)
	Create(ctx context.Context, u *model.PropertyUnit) (*model.PropertyUnit, error)
}

// ReminderRepository provides read access to the reminder feed; the
// dashboard filters validity in memory against the contract catalog.
type ReminderRepository interface {
	List(ctx context.Context) ([]model.Reminder, error)
}

package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"leasedesk/internal/model"
	"leasedesk/internal/repository"
)

var (
	ErrNameRequired       = errors.New("name is required")
	ErrPropertyIDRequired = errors.New("property id is required")
	ErrUnitCodeRequired   = errors.New("unit code is required")
)

// CatalogService exposes the entity catalogs the review UI links against.
// Tenants and units are also creatable here: tenant creation backs the
// manual path when reconciliation found a close alternative, and unit
// creation confirms a pending-creation flag from the draft.
type CatalogService interface {
	Properties(ctx context.Context) ([]model.Property, error)
	Tenants(ctx context.Context) ([]model.Tenant, error)
	Contracts(ctx context.Context) ([]model.Contract, error)
	Units(ctx context.Context, propertyID string) ([]model.PropertyUnit, error)

	CreateTenant(ctx context.Context, t *model.Tenant) (*model.Tenant, error)
	CreateUnit(ctx context.Context, u *model.PropertyUnit) (*model.PropertyUnit, error)
}

type catalogService struct {
	properties repository.PropertyRepository
	tenants    repository.TenantRepository
	contracts  repository.ContractRepository
	units      repository.UnitRepository
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(
	properties repository.PropertyRepository,
	tenants repository.TenantRepository,
	contracts repository.ContractRepository,
	units repository.UnitRepository,
) CatalogService {
	return &catalogService{
		properties: properties,
		tenants:    tenants,
		contracts:  contracts,
		units:      units,
	}
}

func (s *catalogService) Properties(ctx context.Context) ([]model.Property, error) {
	return s.properties.List(ctx)
}

func (s *catalogService) Tenants(ctx context.Context) ([]model.Tenant, error) {
	return s.tenants.List(ctx)
}

func (s *catalogService) Contracts(ctx context.Context) ([]model.Contract, error) {
	return s.contracts.List(ctx)
}

func (s *catalogService) Units(ctx context.Context, propertyID string) ([]model.PropertyUnit, error) {
	if propertyID == "" {
		return s.units.List(ctx)
	}
	return s.units.ListByProperty(ctx, propertyID)
}

func (s *catalogService) CreateTenant(ctx context.Context, t *model.Tenant) (*model.Tenant, error) {
	if t == nil || t.CompanyName == "" {
		return nil, ErrNameRequired
	}
	t.ID = uuid.New().String()
	if t.Status == "" {
		t.Status = model.TenantActive
	}
	t.CreatedAt = time.Now().UTC()
	return s.tenants.Create(ctx, t)
}

func (s *catalogService) CreateUnit(ctx context.Context, u *model.PropertyUnit) (*model.PropertyUnit, error) {
	if u == nil || u.PropertyID == "" {
		return nil, ErrPropertyIDRequired
	}
	if u.Code == "" {
		return nil, ErrUnitCodeRequired
	}
	if _, err := s.properties.FindByID(ctx, u.PropertyID); err != nil {
		return nil, err
	}
	u.ID = uuid.New().String()
	if u.Status == "" {
		u.Status = model.UnitAvailable
	}
	u.CreatedAt = time.Now().UTC()
	return s.units.Create(ctx, u)
}

package model

import "time"

// ContractStatus enumerates lease contract lifecycle states.
type ContractStatus string

const (
	ContractActive     ContractStatus = "active"
	ContractExpiring   ContractStatus = "expiring"
	ContractArchived   ContractStatus = "archived"
	ContractTerminated ContractStatus = "terminated"
)

// Contract is a lease agreement linking a tenant to a property and,
// optionally, to a specific sub-unit of that property.
type Contract struct {
	ID         string         `json:"id"`
	Reference  string         `json:"broj_ugovora"`
	PropertyID string         `json:"property_id"`
	TenantID   string         `json:"tenant_id"`
	UnitID     string         `json:"unit_id,omitempty"`
	Status     ContractStatus `json:"status"`
	StartDate  time.Time      `json:"datum_pocetka"`
	EndDate    time.Time      `json:"datum_isteka"`
	CreatedAt  time.Time      `json:"created_at"`
}

package model

import "time"

// TenantStatus enumerates tenant lifecycle states.
type TenantStatus string

const (
	TenantActive   TenantStatus = "active"
	TenantArchived TenantStatus = "archived"
)

// Tenant is a lessee entity, either a company or a natural person.
// OIB is the national tax identifier and is unique when present.
type Tenant struct {
	ID          string       `json:"id"`
	CompanyName string       `json:"naziv_tvrtke,omitempty"`
	PersonName  string       `json:"ime_osobe,omitempty"`
	OIB         string       `json:"oib,omitempty"`
	Status      TenantStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}

// DisplayName returns the company name if set, otherwise the person name.
func (t Tenant) DisplayName() string {
	if t.CompanyName != "" {
		return t.CompanyName
	}
	return t.PersonName
}

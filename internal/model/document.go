package model

import "time"

// Document represents a stored file in the system together with its
// classification and the entity links it was reconciled to.
// This is a pure domain model with no database-specific dependencies or tags.
type Document struct {
	ID          string    `json:"id"`
	Name        string    `json:"naziv"`
	Description string    `json:"opis,omitempty"`
	Type        string    `json:"tip"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	PropertyID  string    `json:"property_id,omitempty"`
	TenantID    string    `json:"tenant_id,omitempty"`
	ContractID  string    `json:"contract_id,omitempty"`
	UnitID      string    `json:"unit_id,omitempty"`
	// Metadata holds type-specific fields keyed by field descriptor id.
	Metadata  map[string]string `json:"metadata,omitempty"`
	AIApplied bool              `json:"ai_applied"`
	CreatedAt time.Time         `json:"created_at"`
}

package model

import "time"

// Property is a real-estate asset record (building, land parcel).
// Pure domain model, no persistence tags; shared across layers.
type Property struct {
	ID        string    `json:"id"`
	Name      string    `json:"naziv"`
	Address   string    `json:"adresa"`
	CreatedAt time.Time `json:"created_at"`
}

// UnitStatus enumerates the lifecycle of a leasable sub-unit.
type UnitStatus string

const (
	UnitAvailable        UnitStatus = "available"
	UnitReserved         UnitStatus = "reserved"
	UnitLeased           UnitStatus = "leased"
	UnitUnderMaintenance UnitStatus = "under_maintenance"
)

// PropertyUnit is a leasable subdivision of a property (office suite, storage box).
// A unit belongs to exactly one property.
type PropertyUnit struct {
	ID         string     `json:"id"`
	PropertyID string     `json:"property_id"`
	Code       string     `json:"oznaka"`
	Name       string     `json:"naziv"`
	Floor      string     `json:"etaza,omitempty"`
	Area       float64    `json:"povrsina,omitempty"`
	Status     UnitStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

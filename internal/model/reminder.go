package model

import "time"

// ReminderType enumerates contract event notices surfaced on the dashboard.
type ReminderType string

const (
	ReminderContractExpiry   ReminderType = "contract_expiry"
	ReminderGuaranteeRenewal ReminderType = "guarantee_renewal"
	ReminderIndexation       ReminderType = "indexation"
)

// Reminder is a scheduled notice tied to a contract event.
// TriggerDate and LeadDays are optional; reminders computed by older
// jobs may carry a trigger date that no longer matches the contract's
// current end date, which the validity filter guards against.
type Reminder struct {
	ID          string       `json:"id"`
	ContractID  string       `json:"contract_id"`
	Type        ReminderType `json:"type"`
	TriggerDate *time.Time   `json:"datum_okidanja,omitempty"`
	LeadDays    *int         `json:"dani_prije,omitempty"`
	Sent        bool         `json:"poslano"`
}

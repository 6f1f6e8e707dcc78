package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leasedesk/internal/model"
)

func intPtr(v int) *int              { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func TestFilterValid_ContractGuards(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	contracts := []model.Contract{
		{ID: "c1", Status: model.ContractActive, EndDate: now.AddDate(1, 0, 0)},
		{ID: "c2", Status: model.ContractArchived, EndDate: now.AddDate(1, 0, 0)},
		{ID: "c3", Status: model.ContractTerminated, EndDate: now.AddDate(1, 0, 0)},
	}
	reminders := []model.Reminder{
		{ID: "r1", ContractID: "c1", Type: model.ReminderIndexation},
		{ID: "r2", ContractID: "c2", Type: model.ReminderIndexation},
		{ID: "r3", ContractID: "c3", Type: model.ReminderGuaranteeRenewal},
		{ID: "r4", ContractID: "missing", Type: model.ReminderIndexation},
	}

	got := FilterValid(reminders, contracts, now)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
}

func TestFilterValid_ExpiryWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	endIn20 := now.AddDate(0, 0, 20)
	contracts := []model.Contract{
		{ID: "c1", Status: model.ContractActive, EndDate: endIn20},
	}

	tests := []struct {
		name     string
		reminder model.Reminder
		want     bool
	}{
		{
			name:     "lead 14, 20 days until expiry, window [7,21]",
			reminder: model.Reminder{ID: "r", ContractID: "c1", Type: model.ReminderContractExpiry, LeadDays: intPtr(14)},
			want:     true,
		},
		{
			name:     "lead 5, window [0,12] excludes 20",
			reminder: model.Reminder{ID: "r", ContractID: "c1", Type: model.ReminderContractExpiry, LeadDays: intPtr(5)},
			want:     false,
		},
		{
			name:     "no lead, fixed 7 day lookahead excludes 20",
			reminder: model.Reminder{ID: "r", ContractID: "c1", Type: model.ReminderContractExpiry},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterValid([]model.Reminder{tt.reminder}, contracts, now)
			assert.Equal(t, tt.want, len(got) == 1)
		})
	}
}

func TestFilterValid_DefaultLookahead(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	contracts := []model.Contract{
		{ID: "soon", Status: model.ContractActive, EndDate: now.AddDate(0, 0, 5)},
	}
	r := model.Reminder{ID: "r", ContractID: "soon", Type: model.ReminderContractExpiry}

	got := FilterValid([]model.Reminder{r}, contracts, now)
	assert.Len(t, got, 1)
}

func TestFilterValid_StaleCutoff(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	contracts := []model.Contract{
		{ID: "long_gone", Status: model.ContractActive, EndDate: now.AddDate(0, 0, -30)},
	}
	// Even an absurdly large lead time cannot resurrect a reminder more
	// than 14 days past expiry.
	r := model.Reminder{ID: "r", ContractID: "long_gone", Type: model.ReminderContractExpiry, LeadDays: intPtr(365)}

	got := FilterValid([]model.Reminder{r}, contracts, now)
	assert.Empty(t, got)
}

func TestFilterValid_TriggerDrift(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := now.AddDate(0, 0, 10)
	contracts := []model.Contract{
		{ID: "c1", Status: model.ContractActive, EndDate: end},
	}
	lead := 14

	t.Run("trigger consistent with current end date", func(t *testing.T) {
		r := model.Reminder{
			ID: "r", ContractID: "c1", Type: model.ReminderContractExpiry,
			LeadDays:    intPtr(lead),
			TriggerDate: timePtr(end.AddDate(0, 0, -lead)),
		}
		got := FilterValid([]model.Reminder{r}, contracts, now)
		assert.Len(t, got, 1)
	})

	t.Run("trigger computed against old end date", func(t *testing.T) {
		r := model.Reminder{
			ID: "r", ContractID: "c1", Type: model.ReminderContractExpiry,
			LeadDays:    intPtr(lead),
			TriggerDate: timePtr(end.AddDate(0, 0, -lead-5)),
		}
		got := FilterValid([]model.Reminder{r}, contracts, now)
		assert.Empty(t, got)
	})
}

func TestFilterValid_Idempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	contracts := []model.Contract{
		{ID: "c1", Status: model.ContractActive, EndDate: now.AddDate(0, 0, 20)},
		{ID: "c2", Status: model.ContractArchived, EndDate: now.AddDate(0, 0, 20)},
	}
	reminders := []model.Reminder{
		{ID: "r1", ContractID: "c1", Type: model.ReminderContractExpiry, LeadDays: intPtr(14)},
		{ID: "r2", ContractID: "c2", Type: model.ReminderIndexation},
		{ID: "r3", ContractID: "c1", Type: model.ReminderIndexation},
	}

	once := FilterValid(reminders, contracts, now)
	twice := FilterValid(once, contracts, now)
	assert.Equal(t, once, twice)
}

func TestFilterValid_OrderPreserving(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	contracts := []model.Contract{
		{ID: "c1", Status: model.ContractActive, EndDate: now.AddDate(0, 0, 20)},
	}
	reminders := []model.Reminder{
		{ID: "b", ContractID: "c1", Type: model.ReminderIndexation},
		{ID: "a", ContractID: "c1", Type: model.ReminderGuaranteeRenewal},
		{ID: "c", ContractID: "c1", Type: model.ReminderIndexation},
	}

	got := FilterValid(reminders, contracts, now)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, "c", got[2].ID)
}

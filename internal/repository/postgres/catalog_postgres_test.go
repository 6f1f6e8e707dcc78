package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leasedesk/internal/model"
)

func TestPropertyPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPropertyPostgres(db)

	rows := sqlmock.NewRows([]string{"id", "name", "address", "created_at"}).
		AddRow("p1", "Tower A", "Ilica 1, Zagreb", time.Now()).
		AddRow("p2", "Tower B", "Vukovarska 22, Zagreb", time.Now())

	mock.ExpectQuery("SELECT (.+) FROM properties").WillReturnRows(rows)

	items, err := repo.List(context.Background())

	assert.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Tower A", items[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTenantPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewTenantPostgres(db)
	now := time.Now().UTC()

	tenant := &model.Tenant{
		ID:          "t-new",
		CompanyName: "Nova Tvrtka d.o.o.",
		Status:      model.TenantActive,
		CreatedAt:   now,
	}

	rows := sqlmock.NewRows([]string{"id", "company_name", "person_name", "oib", "status", "created_at"}).
		AddRow("t-new", "Nova Tvrtka d.o.o.", nil, nil, "active", now)

	mock.ExpectQuery("INSERT INTO tenants").
		WithArgs(tenant.ID, tenant.CompanyName, tenant.PersonName, tenant.OIB, tenant.Status, tenant.CreatedAt).
		WillReturnRows(rows)

	created, err := repo.Create(context.Background(), tenant)

	assert.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "Nova Tvrtka d.o.o.", created.CompanyName)
	assert.Empty(t, created.PersonName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitPostgres_ListByProperty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewUnitPostgres(db)

	rows := sqlmock.NewRows([]string{"id", "property_id", "code", "name", "floor", "area", "status", "created_at"}).
		AddRow("u1", "p1", "A-101", "Ured 101", "1", 42.5, "available", time.Now())

	mock.ExpectQuery("SELECT (.+) FROM property_units WHERE property_id = ?").
		WithArgs("p1").
		WillReturnRows(rows)

	items, err := repo.ListByProperty(context.Background(), "p1")

	assert.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A-101", items[0].Code)
	assert.Equal(t, 42.5, items[0].Area)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReminderPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReminderPostgres(db)
	trigger := time.Date(2025, 5, 18, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "contract_id", "reminder_type", "trigger_date", "lead_days", "sent"}).
		AddRow("r1", "c1", "contract_expiry", trigger, 14, false).
		AddRow("r2", "c1", "indexation", nil, nil, true)

	mock.ExpectQuery("SELECT (.+) FROM reminders").WillReturnRows(rows)

	items, err := repo.List(context.Background())

	assert.NoError(t, err)
	require.Len(t, items, 2)

	require.NotNil(t, items[0].TriggerDate)
	assert.True(t, trigger.Equal(*items[0].TriggerDate))
	require.NotNil(t, items[0].LeadDays)
	assert.Equal(t, 14, *items[0].LeadDays)

	assert.Nil(t, items[1].TriggerDate)
	assert.Nil(t, items[1].LeadDays)
	assert.True(t, items[1].Sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package postgres

import (
	"context"
	"database/sql"

	"leasedesk/internal/model"
	"leasedesk/internal/repository"
)

// PropertyPostgres implements repository.PropertyRepository.
type PropertyPostgres struct {
	db *sql.DB
}

func NewPropertyPostgres(db *sql.DB) *PropertyPostgres {
	return &PropertyPostgres{db: db}
}

var _ repository.PropertyRepository = (*PropertyPostgres)(nil)

func (r *PropertyPostgres) List(ctx context.Context) ([]model.Property, error) {
	const q = `SELECT id, name, address, created_at FROM properties ORDER BY name, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Property, 0)
	for rows.Next() {
		var p model.Property
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *PropertyPostgres) FindByID(ctx context.Context, id string) (*model.Property, error) {
	const q = `SELECT id, name, address, created_at FROM properties WHERE id = $1`
	var p model.Property
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.Address, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// TenantPostgres implements repository.TenantRepository.
type TenantPostgres struct {
	db *sql.DB
}

func NewTenantPostgres(db *sql.DB) *TenantPostgres {
	return &TenantPostgres{db: db}
}

var _ repository.TenantRepository = (*TenantPostgres)(nil)

const tenantColumns = `id, company_name, person_name, oib, status, created_at`

func (r *TenantPostgres) List(ctx context.Context) ([]model.Tenant, error) {
	q := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY company_name, person_name, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Tenant, 0)
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *t)
	}
	return items, rows.Err()
}

func (r *TenantPostgres) FindByID(ctx context.Context, id string) (*model.Tenant, error) {
	q := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(r.db.QueryRowContext(ctx, q, id))
}

func (r *TenantPostgres) Create(ctx context.Context, t *model.Tenant) (*model.Tenant, error) {
	q := `
		INSERT INTO tenants (id, company_name, person_name, oib, status, created_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, $6)
		RETURNING ` + tenantColumns
	row := r.db.QueryRowContext(ctx, q, t.ID, t.CompanyName, t.PersonName, t.OIB, t.Status, t.CreatedAt)
	return scanTenant(row)
}

func scanTenant(row rowScanner) (*model.Tenant, error) {
	var (
		t           model.Tenant
		companyName sql.NullString
		personName  sql.NullString
		oib         sql.NullString
	)
	if err := row.Scan(&t.ID, &companyName, &personName, &oib, &t.Status, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.CompanyName = companyName.String
	t.PersonName = personName.String
	t.OIB = oib.String
	return &t, nil
}

// ContractPostgres implements repository.ContractRepository.
type ContractPostgres struct {
	db *sql.DB
}

func NewContractPostgres(db *sql.DB) *ContractPostgres {
	return &ContractPostgres{db: db}
}

var _ repository.ContractRepository = (*ContractPostgres)(nil)

const contractColumns = `id, reference, property_id, tenant_id, unit_id, status, start_date, end_date, created_at`

func (r *ContractPostgres) List(ctx context.Context) ([]model.Contract, error) {
	q := `SELECT ` + contractColumns + ` FROM contracts ORDER BY reference, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Contract, 0)
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

func (r *ContractPostgres) FindByID(ctx context.Context, id string) (*model.Contract, error) {
	q := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	return scanContract(r.db.QueryRowContext(ctx, q, id))
}

func scanContract(row rowScanner) (*model.Contract, error) {
	var (
		c      model.Contract
		unitID sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Reference, &c.PropertyID, &c.TenantID, &unitID, &c.Status, &c.StartDate, &c.EndDate, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.UnitID = unitID.String
	return &c, nil
}

// UnitPostgres implements repository.UnitRepository.
type UnitPostgres struct {
	db *sql.DB
}

func NewUnitPostgres(db *sql.DB) *UnitPostgres {
	return &UnitPostgres{db: db}
}

var _ repository.UnitRepository = (*UnitPostgres)(nil)

const unitColumns = `id, property_id, code, name, floor, area, status, created_at`

func (r *UnitPostgres) List(ctx context.Context) ([]model.PropertyUnit, error) {
	q := `SELECT ` + unitColumns + ` FROM property_units ORDER BY property_id, code, id`
	return r.queryUnits(ctx, q)
}

func (r *UnitPostgres) ListByProperty(ctx context.Context, propertyID string) ([]model.PropertyUnit, error) {
	q := `SELECT ` + unitColumns + ` FROM property_units WHERE property_id = $1 ORDER BY code, id`
	return r.queryUnits(ctx, q, propertyID)
}

func (r *UnitPostgres) Create(ctx context.Context, u *model.PropertyUnit) (*model.PropertyUnit, error) {
	q := `
		INSERT INTO property_units (id, property_id, code, name, floor, area, status, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
		RETURNING ` + unitColumns
	row := r.db.QueryRowContext(ctx, q, u.ID, u.PropertyID, u.Code, u.Name, u.Floor, u.Area, u.Status, u.CreatedAt)
	return scanUnit(row)
}

func (r *UnitPostgres) queryUnits(ctx context.Context, q string, args ...any) ([]model.PropertyUnit, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.PropertyUnit, 0)
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *u)
	}
	return items, rows.Err()
}

func scanUnit(row rowScanner) (*model.PropertyUnit, error) {
	var (
		u     model.PropertyUnit
		floor sql.NullString
		area  sql.NullFloat64
	)
	if err := row.Scan(&u.ID, &u.PropertyID, &u.Code, &u.Name, &floor, &area, &u.Status, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Floor = floor.String
	u.Area = area.Float64
	return &u, nil
}

// ReminderPostgres implements repository.ReminderRepository.
type ReminderPostgres struct {
	db *sql.DB
}

func NewReminderPostgres(db *sql.DB) *ReminderPostgres {
	return &ReminderPostgres{db: db}
}

var _ repository.ReminderRepository = (*ReminderPostgres)(nil)

func (r *ReminderPostgres) List(ctx context.Context) ([]model.Reminder, error) {
	const q = `SELECT id, contract_id, reminder_type, trigger_date, lead_days, sent FROM reminders ORDER BY trigger_date NULLS LAST, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Reminder, 0)
	for rows.Next() {
		var (
			rem         model.Reminder
			triggerDate sql.NullTime
			leadDays    sql.NullInt64
		)
		if err := rows.Scan(&rem.ID, &rem.ContractID, &rem.Type, &triggerDate, &leadDays, &rem.Sent); err != nil {
			return nil, err
		}
		if triggerDate.Valid {
			t := triggerDate.Time
			rem.TriggerDate = &t
		}
		if leadDays.Valid {
			d := int(leadDays.Int64)
			rem.LeadDays = &d
		}
		items = append(items, rem)
	}
	return items, rows.Err()
}

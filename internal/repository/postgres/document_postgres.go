package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"leasedesk/internal/model"
	"leasedesk/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, name, description, doc_type, filename, storage_path, size, content_type,
	property_id, tenant_id, contract_id, unit_id, metadata, ai_applied, created_at`

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, name, description, doc_type, filename, storage_path, size, content_type,
			property_id, tenant_id, contract_id, unit_id, metadata, ai_applied, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
			NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''), $13, $14, $15)
		RETURNING ` + documentColumns

	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Name,
		doc.Description,
		doc.Type,
		doc.Filename,
		doc.StoragePath,
		doc.Size,
		doc.ContentType,
		doc.PropertyID,
		doc.TenantID,
		doc.ContractID,
		doc.UnitID,
		metadata,
		doc.AIApplied,
		doc.CreatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// List returns documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM documents`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	qList := `SELECT ` + documentColumns + `
		FROM documents
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// Delete removes a document by ID. It does not return an error if the row
// does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d           model.Document
		description sql.NullString
		propertyID  sql.NullString
		tenantID    sql.NullString
		contractID  sql.NullString
		unitID      sql.NullString
		metadata    []byte
	)
	if err := row.Scan(
		&d.ID,
		&d.Name,
		&description,
		&d.Type,
		&d.Filename,
		&d.StoragePath,
		&d.Size,
		&d.ContentType,
		&propertyID,
		&tenantID,
		&contractID,
		&unitID,
		&metadata,
		&d.AIApplied,
		&d.CreatedAt,
	); err != nil {
		return nil, err
	}
	d.Description = description.String
	d.PropertyID = propertyID.String
	d.TenantID = tenantID.String
	d.ContractID = contractID.String
	d.UnitID = unitID.String
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &d.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &d, nil
}

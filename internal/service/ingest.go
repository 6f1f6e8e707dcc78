package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"leasedesk/internal/doctype"
	"leasedesk/internal/extract"
	"leasedesk/internal/ingest"
	"leasedesk/internal/match"
	"leasedesk/internal/model"
	"leasedesk/internal/repository"
	"leasedesk/internal/storage"
)

var ErrSessionNotFound = errors.New("ingest session not found")

// SessionView is the service-level DTO describing one ingest session.
type SessionView struct {
	ID              string                    `json:"id"`
	State           ingest.State              `json:"state"`
	Step            ingest.Step               `json:"step"`
	File            *ingest.FileRef           `json:"file,omitempty"`
	Form            ingest.FormData           `json:"form"`
	Requirements    doctype.Requirements      `json:"requirements"`
	Outcome         *ingest.Outcome           `json:"outcome,omitempty"`
	AIApplied       bool                      `json:"ai_applied"`
	Suggestions     *model.AISuggestionBundle `json:"suggestions,omitempty"`
	ExtractionError string                    `json:"extraction_error,omitempty"`
	CreatedTenant   *model.Tenant             `json:"created_tenant,omitempty"`
}

// SessionUpdate carries the fields a review request wants to change.
// Nil pointers mean "leave as is".
type SessionUpdate struct {
	Name         *string           `json:"naziv,omitempty"`
	Description  *string           `json:"opis,omitempty"`
	DocumentType *string           `json:"tip,omitempty"`
	PropertyID   *string           `json:"property_id,omitempty"`
	TenantID     *string           `json:"tenant_id,omitempty"`
	ContractID   *string           `json:"contract_id,omitempty"`
	UnitID       *string           `json:"unit_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	AIApplied    *bool             `json:"ai_applied,omitempty"`
	Step         *int              `json:"step,omitempty"`
	Advance      bool              `json:"advance,omitempty"`
}

// IngestService drives the upload-review-submit flow. A session lives in
// memory from upload until it is submitted or cancelled.
type IngestService interface {
	// Start stores the uploaded PDF, runs extraction, reconciles the
	// suggestions against the catalogs and returns the resulting session.
	Start(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*SessionView, error)

	// Get returns the current session state.
	Get(ctx context.Context, id string) (*SessionView, error)

	// Update applies review edits to the session draft.
	Update(ctx context.Context, id string, upd SessionUpdate) (*SessionView, error)

	// ReplaceFile swaps the uploaded file and re-runs extraction. Any
	// still-running extraction for the previous file is superseded.
	ReplaceFile(ctx context.Context, id string, r io.Reader, originalFilename string, contentType string, size int64) (*SessionView, error)

	// Submit validates the draft and persists it as a document. A
	// *ingest.ValidationError is returned when the draft is incomplete.
	Submit(ctx context.Context, id string) (*model.Document, error)

	// Cancel discards the session and its stored file.
	Cancel(ctx context.Context, id string) error
}

type sessionEntry struct {
	mu            sync.Mutex
	sess          *ingest.Session
	createdTenant *model.Tenant
}

type ingestService struct {
	store     storage.Storage
	extractor extract.Extractor
	resolver  *doctype.Resolver

	documents  repository.DocumentRepository
	properties repository.PropertyRepository
	tenants    repository.TenantRepository
	contracts  repository.ContractRepository
	units      repository.UnitRepository

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// NewIngestService constructs the ingest orchestrator.
func NewIngestService(
	store storage.Storage,
	extractor extract.Extractor,
	resolver *doctype.Resolver,
	documents repository.DocumentRepository,
	properties repository.PropertyRepository,
	tenants repository.TenantRepository,
	contracts repository.ContractRepository,
	units repository.UnitRepository,
) IngestService {
	return &ingestService{
		store:      store,
		extractor:  extractor,
		resolver:   resolver,
		documents:  documents,
		properties: properties,
		tenants:    tenants,
		contracts:  contracts,
		units:      units,
		sessions:   make(map[string]*sessionEntry),
	}
}

func (s *ingestService) Start(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*SessionView, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	// Buffer the content: it goes to object storage and to the extractor.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	file, err := s.storeFile(ctx, data, originalFilename, contentType, size)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	entry := &sessionEntry{sess: ingest.NewSession(s.resolver)}

	entry.mu.Lock()
	gen := entry.sess.SelectFile(*file)
	entry.mu.Unlock()

	s.mu.Lock()
	s.sessions[id] = entry
	s.mu.Unlock()

	s.runExtraction(ctx, entry, gen, data, file.Filename)
	return s.view(id, entry), nil
}

func (s *ingestService) Get(ctx context.Context, id string) (*SessionView, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	return s.view(id, entry), nil
}

func (s *ingestService) Update(ctx context.Context, id string, upd SessionUpdate) (*SessionView, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	var cat ingest.Catalog
	if upd.PropertyID != nil || upd.UnitID != nil {
		cat, err = s.loadCatalog(ctx)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	sess := entry.sess

	if upd.AIApplied != nil {
		sess.SetAIApplied(*upd.AIApplied)
	}
	if upd.DocumentType != nil {
		sess.SetDocumentType(*upd.DocumentType)
	}
	if upd.Name != nil {
		sess.SetName(*upd.Name)
	}
	if upd.Description != nil {
		sess.SetDescription(*upd.Description)
	}
	for field, value := range upd.Metadata {
		sess.SetMetadataField(field, value)
	}
	if upd.PropertyID != nil {
		sess.SetProperty(*upd.PropertyID, cat)
	}
	if upd.TenantID != nil {
		sess.SetTenant(*upd.TenantID)
	}
	if upd.ContractID != nil {
		sess.SetContract(*upd.ContractID)
	}
	if upd.UnitID != nil {
		sess.SetUnit(*upd.UnitID, cat)
	}
	if upd.Step != nil {
		sess.GoToStep(ingest.Step(*upd.Step))
	}
	if upd.Advance {
		sess.Advance()
	}

	return s.viewLocked(id, entry), nil
}

func (s *ingestService) ReplaceFile(ctx context.Context, id string, r io.Reader, originalFilename string, contentType string, size int64) (*SessionView, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrReaderNil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	file, err := s.storeFile(ctx, data, originalFilename, contentType, size)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	oldKey := ""
	if prev := entry.sess.File(); prev != nil {
		oldKey = prev.StorageKey
	}
	gen := entry.sess.SelectFile(*file)
	entry.createdTenant = nil
	entry.mu.Unlock()

	if oldKey != "" {
		if err := s.store.Delete(ctx, oldKey); err != nil {
			log.Printf("ingest: delete replaced object %s: %v", oldKey, err)
		}
	}

	s.runExtraction(ctx, entry, gen, data, file.Filename)
	return s.view(id, entry), nil
}

func (s *ingestService) Submit(ctx context.Context, id string) (*model.Document, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	form, file, verr := entry.sess.Submit()
	aiApplied := entry.sess.AIApplied()
	entry.mu.Unlock()
	if verr != nil {
		return nil, verr
	}

	doc := &model.Document{
		ID:          uuid.New().String(),
		Name:        form.Name,
		Description: form.Description,
		Type:        form.DocumentType,
		Filename:    file.Filename,
		StoragePath: file.StorageKey,
		Size:        file.Size,
		ContentType: file.ContentType,
		PropertyID:  form.PropertyID,
		TenantID:    form.TenantID,
		ContractID:  form.ContractID,
		UnitID:      form.UnitID,
		Metadata:    form.Metadata,
		AIApplied:   aiApplied,
		CreatedAt:   time.Now().UTC(),
	}
	stored, err := s.documents.Create(ctx, doc)
	if err != nil {
		// Keep the session so the operator can retry the submission.
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return stored, nil
}

func (s *ingestService) Cancel(ctx context.Context, id string) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	file := entry.sess.File()
	entry.sess.Reset()
	entry.mu.Unlock()

	if file != nil {
		if err := s.store.Delete(ctx, file.StorageKey); err != nil {
			log.Printf("ingest: delete cancelled object %s: %v", file.StorageKey, err)
		}
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// storeFile uploads the buffered content under a generated key, keeping
// only the original extension.
func (s *ingestService) storeFile(ctx context.Context, data []byte, originalFilename, contentType string, size int64) (*ingest.FileRef, error) {
	ext := filepath.Ext(originalFilename)
	genName := uuid.New().String() + ext
	key := filepath.ToSlash(filepath.Join("documents", genName))

	objInfo, err := s.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}
	return &ingest.FileRef{
		Filename:    genName,
		ContentType: objInfo.ContentType,
		Size:        objInfo.Size,
		StorageKey:  objInfo.Key,
	}, nil
}

// runExtraction calls the extractor and feeds the outcome back into the
// session. The entry lock is not held across the HTTP call, so a newer
// SelectFile can supersede this generation while it is in flight; the
// session's generation check then discards the stale result.
func (s *ingestService) runExtraction(ctx context.Context, entry *sessionEntry, gen int, data []byte, filename string) {
	result, err := s.extractor.ParsePDFContract(ctx, bytes.NewReader(data), filename)
	if err != nil {
		s.failExtraction(entry, gen, err.Error())
		return
	}
	if !result.Success {
		s.failExtraction(entry, gen, result.Message)
		return
	}
	if result.Data == nil {
		s.failExtraction(entry, gen, "extraction returned no data")
		return
	}

	cat, err := s.loadCatalog(ctx)
	if err != nil {
		log.Printf("ingest: load catalog: %v", err)
		s.failExtraction(entry, gen, "entity catalog unavailable, fill in manually")
		return
	}

	cat = s.persistReportedUnit(ctx, result, cat)

	// Tenant creation runs before reconciliation so the fresh tenant is
	// matched like any other, and strictly before any contract linking.
	created := s.autoCreateTenant(ctx, result.Data, cat.Properties, cat.Tenants, cat.Contracts)
	if created != nil {
		cat.Tenants = s.refreshTenants(ctx, cat.Tenants, created)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if _, err := entry.sess.ApplySuggestions(gen, result.Data, cat); err != nil {
		if !errors.Is(err, ingest.ErrSuperseded) {
			log.Printf("ingest: apply suggestions: %v", err)
		}
		return
	}
	entry.createdTenant = created
}

func (s *ingestService) failExtraction(entry *sessionEntry, gen int, message string) {
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := entry.sess.ExtractionFailed(gen, message); err != nil && !errors.Is(err, ingest.ErrSuperseded) {
		log.Printf("ingest: record extraction failure: %v", err)
	}
}

// persistReportedUnit stores a sub-unit the extraction service resolved
// on its side. Failure to persist it is tolerated; the draft then flags
// the unit as pending creation instead.
func (s *ingestService) persistReportedUnit(ctx context.Context, result *extract.ParseResult, cat ingest.Catalog) ingest.Catalog {
	unit := result.CreatedUnit
	if unit == nil || unit.Code == "" {
		return cat
	}
	if unit.PropertyID == "" {
		m := match.New(cat.Properties, cat.Tenants, cat.Contracts)
		prop := m.Property(result.Data.Property.Name, result.Data.Property.Address)
		if prop == nil {
			return cat
		}
		unit.PropertyID = prop.ID
	}
	if existing := match.Unit(cat.UnitsFor(unit.PropertyID), unit.Code, unit.Name); existing != nil {
		return cat
	}
	if unit.ID == "" {
		unit.ID = uuid.New().String()
	}
	if unit.Status == "" {
		unit.Status = model.UnitAvailable
	}
	stored, err := s.units.Create(ctx, unit)
	if err != nil {
		log.Printf("ingest: create reported unit %s: %v", unit.Code, err)
		return cat
	}
	cat.Units = append(cat.Units, *stored)
	return cat
}

// autoCreateTenant creates the tenant the extraction named when no
// existing tenant matches and no near-match forces a manual pick. The
// document type must allow tenant links at all.
func (s *ingestService) autoCreateTenant(ctx context.Context, bundle *model.AISuggestionBundle, props []model.Property, tenants []model.Tenant, contracts []model.Contract) *model.Tenant {
	if bundle.Tenant.Name == "" {
		return nil
	}
	if !s.resolver.Resolve(bundle.DocumentType.Value).AllowsTenant {
		return nil
	}
	m := match.New(props, tenants, contracts)
	if m.Tenant(bundle.Tenant.Name, bundle.Tenant.OIB) != nil {
		return nil
	}
	if m.CloseTenantAlternative(bundle.Tenant.Name) != nil {
		return nil
	}
	created, err := s.tenants.Create(ctx, &model.Tenant{
		ID:          uuid.New().String(),
		CompanyName: bundle.Tenant.Name,
		OIB:         bundle.Tenant.OIB,
		Status:      model.TenantActive,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		// Partial failures keep the rest of the reconciliation intact.
		log.Printf("ingest: auto-create tenant %q: %v", bundle.Tenant.Name, err)
		return nil
	}
	return created
}

// refreshTenants reloads the tenant catalog after a creation. A failed
// reload is not fatal; the created tenant is appended locally so the
// reconciliation still sees it.
func (s *ingestService) refreshTenants(ctx context.Context, current []model.Tenant, created *model.Tenant) []model.Tenant {
	refreshed, err := s.tenants.List(ctx)
	if err != nil {
		log.Printf("ingest: refresh tenant catalog: %v", err)
		return append(current, *created)
	}
	return refreshed
}

func (s *ingestService) loadCatalog(ctx context.Context) (ingest.Catalog, error) {
	props, err := s.properties.List(ctx)
	if err != nil {
		return ingest.Catalog{}, fmt.Errorf("list properties: %w", err)
	}
	tenants, err := s.tenants.List(ctx)
	if err != nil {
		return ingest.Catalog{}, fmt.Errorf("list tenants: %w", err)
	}
	contracts, err := s.contracts.List(ctx)
	if err != nil {
		return ingest.Catalog{}, fmt.Errorf("list contracts: %w", err)
	}
	units, err := s.units.List(ctx)
	if err != nil {
		return ingest.Catalog{}, fmt.Errorf("list units: %w", err)
	}
	return ingest.Catalog{Properties: props, Tenants: tenants, Contracts: contracts, Units: units}, nil
}

func (s *ingestService) entry(id string) (*sessionEntry, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

func (s *ingestService) view(id string, entry *sessionEntry) *SessionView {
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return s.viewLocked(id, entry)
}

func (s *ingestService) viewLocked(id string, entry *sessionEntry) *SessionView {
	sess := entry.sess
	return &SessionView{
		ID:              id,
		State:           sess.State(),
		Step:            sess.CurrentStep(),
		File:            sess.File(),
		Form:            sess.Form(),
		Requirements:    sess.Requirements(),
		Outcome:         sess.Outcome(),
		AIApplied:       sess.AIApplied(),
		Suggestions:     sess.Suggestions(),
		ExtractionError: sess.ExtractionError(),
		CreatedTenant:   entry.createdTenant,
	}
}

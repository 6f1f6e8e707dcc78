package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"leasedesk/internal/doctype"
	"leasedesk/internal/extract"
	extractMocks "leasedesk/internal/extract/mocks"
	"leasedesk/internal/ingest"
	"leasedesk/internal/model"
	repoMocks "leasedesk/internal/repository/mocks"
	"leasedesk/internal/storage"
	storeMocks "leasedesk/internal/storage/mocks"
)

const ingestTestTable = `{
  "ugovor": {
    "label": "Ugovor o zakupu",
    "requires_property": true,
    "requires_tenant": true,
    "fields": [{"label": "Broj ugovora"}]
  },
  "racun": {"label": "Račun", "requires_property": true},
  "energetski_certifikat": {
    "label": "Energetski certifikat",
    "requires_property": true,
    "allows_tenant": false,
    "allows_contract": false
  },
  "ostalo": {"label": "Ostalo"}
}`

type ingestFixture struct {
	store      *storeMocks.MockStorage
	extractor  *extractMocks.MockExtractor
	documents  *repoMocks.MockDocumentRepository
	properties *repoMocks.MockPropertyRepository
	tenants    *repoMocks.MockTenantRepository
	contracts  *repoMocks.MockContractRepository
	units      *repoMocks.MockUnitRepository
	svc        IngestService
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()
	resolver, err := doctype.Parse([]byte(ingestTestTable))
	require.NoError(t, err)

	f := &ingestFixture{
		store:      new(storeMocks.MockStorage),
		extractor:  new(extractMocks.MockExtractor),
		documents:  new(repoMocks.MockDocumentRepository),
		properties: new(repoMocks.MockPropertyRepository),
		tenants:    new(repoMocks.MockTenantRepository),
		contracts:  new(repoMocks.MockContractRepository),
		units:      new(repoMocks.MockUnitRepository),
	}
	f.svc = NewIngestService(f.store, f.extractor, resolver,
		f.documents, f.properties, f.tenants, f.contracts, f.units)
	return f
}

func (f *ingestFixture) expectPut() {
	f.store.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "documents/") && strings.HasSuffix(key, ".pdf")
	}), mock.Anything, mock.Anything).
		Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
			return storage.ObjectInfo{Key: key, Size: 4, ContentType: "application/pdf"}
		}, nil).Maybe()
}

func (f *ingestFixture) expectCatalog(props []model.Property, tenants []model.Tenant, contracts []model.Contract, units []model.PropertyUnit) {
	f.properties.On("List", mock.Anything).Return(props, nil)
	f.tenants.On("List", mock.Anything).Return(tenants, nil)
	f.contracts.On("List", mock.Anything).Return(contracts, nil)
	f.units.On("List", mock.Anything).Return(units, nil)
}

func TestIngestService_Start_AppliesMatchedSuggestions(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t)
	f.expectPut()
	f.expectCatalog(
		[]model.Property{{ID: "prop-1", Name: "Tower A", Address: "Ilica 1"}},
		[]model.Tenant{{ID: "ten-1", CompanyName: "Adria Commerce d.o.o.", OIB: "12345678903", Status: model.TenantActive}},
		[]model.Contract{{ID: "con-1", Reference: "UG-2024-017", PropertyID: "prop-1", TenantID: "ten-1"}},
		[]model.PropertyUnit{{ID: "unit-1", PropertyID: "prop-1", Code: "A-12"}},
	)
	f.extractor.On("ParsePDFContract", mock.Anything, mock.Anything, mock.Anything).
		Return(&extract.ParseResult{
			Success: true,
			Data: &model.AISuggestionBundle{
				DocumentType: model.SuggestedDocumentType{Value: "ugovor"},
				Property:     model.SuggestedProperty{Name: "Tower A"},
				Tenant:       model.SuggestedTenant{Name: "Adria Commerce d.o.o."},
				Contract:     model.SuggestedContract{Reference: "UG-2024-017"},
				Unit:         model.SuggestedUnit{Code: "A-12"},
			},
		}, nil)

	view, err := f.svc.Start(ctx, strings.NewReader("%PDF"), "ugovor.pdf", "application/pdf", 4)
	require.NoError(t, err)

	assert.Equal(t, ingest.StateSuggestionsReady, view.State)
	assert.True(t, view.AIApplied)
	assert.Equal(t, "prop-1", view.Form.PropertyID)
	assert.Equal(t, "ten-1", view.Form.TenantID)
	assert.Equal(t, "con-1", view.Form.ContractID)
	assert.Equal(t, "unit-1", view.Form.UnitID)
	require.NotNil(t, view.Outcome)
	assert.True(t, view.Outcome.PropertyApplied)
	assert.True(t, view.Outcome.TenantApplied)
	assert.True(t, view.Outcome.ContractApplied)
	assert.True(t, view.Outcome.UnitApplied)
	assert.Equal(t, "Ugovor o zakupu UG-2024-017", view.Form.Name)

	f.store.AssertExpectations(t)
	f.extractor.AssertExpectations(t)
}

func TestIngestService_Start_ExtractorErrorFallsBackToManual(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t)
	f.expectPut()
	f.extractor.On("ParsePDFContract", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	view, err := f.svc.Start(ctx, strings.NewReader("%PDF"), "scan.pdf", "application/pdf", 4)
	require.NoError(t, err)

	assert.Equal(t, ingest.StateUserReviewing, view.State)
	assert.Contains(t, view.ExtractionError, "connection refused")
	assert.Nil(t, view.Outcome)
	f.properties.AssertNotCalled(t, "List", mock.Anything)
}

func TestIngestService_Start_ServiceReportedFailureMessageVerbatim(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t)
	f.expectPut()
	f.extractor.On("ParsePDFContract", mock.Anything, mock.Anything, mock.Anything).
		Return(&extract.ParseResult{Success: false, Message: "dokument nije čitljiv"}, nil)

	view, err := f.svc.Start(ctx, strings.NewReader("%PDF"), "scan.pdf", "application/pdf", 4)
	require.NoError(t, err)

	assert.Equal(t, ingest.StateUserReviewing, view.State)
	assert.Equal(t, "dokument nije čitljiv", view.ExtractionError)
}

func TestIngestService_Start_AutoCreatesUnambiguousTenant(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t)
	f.expectPut()
	f.properties.On("List", mock.Anything).Return([]model.Property{{ID: "prop-1", Name: "Tower A"}}, nil)
	f.contracts.On("List", mock.Anything).Return([]model.Contract{}, nil)
	f.units.On("List", mock.Anything).Return([]model.PropertyUnit{}, nil)
	// The reload after creation fails; the created tenant is kept locally.
	f.tenants.On("List", mock.Anything).Return([]model.Tenant{}, nil).Once()
	f.tenants.On("List", mock.Anything).Return(nil, errors.New("db fail")).Once()
	f.tenants.On("Create", mock.Anything, mock.MatchedBy(func(tn *model.Tenant) bool {
		return tn.CompanyName == "Nova Firma d.o.o." && tn.Status == model.TenantActive
	})).Return(&model.Tenant{ID: "ten-new", CompanyName: "Nova Firma d.o.o.", Status: model.TenantActive}, nil)

	f.extractor.On("ParsePDFContract", mock.Anything, mock.Anything, mock.Anything).
		Return(&extract.ParseResult{
			Success: true,
			Data: &model.AISuggestionBundle{
				DocumentType: model.SuggestedDocumentType{Value: "ugovor"},
				Property:     model.SuggestedProperty{Name: "Tower A"},
				Tenant:       model.SuggestedTenant{Name: "Nova Firma d.o.o."},
			},
		}, nil)

	view, err := f.svc.Start(ctx, strings.NewReader("%PDF"), "ugovor.pdf", "application/pdf", 4)
	require.NoError(t, err)

	require.NotNil(t, view.CreatedTenant)
	assert.Equal(t, "ten-new", view.CreatedTenant.ID)
	assert.Equal(t, "ten-new", view.Form.TenantID)
	require.NotNil(t, view.Outcome)
	assert.True(t, view.Outcome.TenantApplied)
	assert.Empty(t, view.Outcome.TenantToCreate)
	f.tenants.AssertExpectations(t)
}

func TestIngestService_Start_CloseAlternativeBlocksTenantCreation(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t)
	f.expectPut()
	f.expectCatalog(
		[]model.Property{},
		[]model.Tenant{{ID: "ten-1", CompanyName: "Nova Firma d.o.o.", Status: model.TenantActive}},
		[]model.Contract{},
		[]model.PropertyUnit{},
	)
	f.extractor.On("ParsePDFContract", mock.Anything, mock.Anything, mock.Anything).
		Return(&extract.ParseResult{
			Success: true,
			Data: &model.AISuggestionBundle{
				DocumentType: model.SuggestedDocumentType{Value: "ugovor"},
				Tenant:       model.SuggestedTenant{Name: "Nova Frma d.o.o."},
			},
		}, nil)

	view, err := f.svc.Start(ctx, strings.NewReader("%PDF"), "ugovor.pdf", "application/pdf", 4)
	require.NoError(t, err)

	assert.Nil(t, view.CreatedTenant)
	require.NotNil(t, view.Outcome)
	require.NotNil(t, view.Outcome.TenantCloseAlternative)
	assert.Equal(t, "ten-1", view.Outcome.TenantCloseAlternative.ID)
	assert.Empty(t, view.Form.TenantID)
	f.tenants.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestIngestService_Start_AutoCreateFailureKeepsDraft(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t)
	f.expectPut()
	f.expectCatalog([]model.Property{{ID: "prop-1", Name: "Tower A"}}, []model.Tenant{}, []model.Contract{}, []model.PropertyUnit{})
	f.tenants.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db fail"))
	f.extractor.On("ParsePDFContract", mock.Anything, mock.Anything, mock.Anything).
		Return(&extract.ParseResult{
			Success: true,
			Data: &model.AISuggestionBundle{
				DocumentType: model.SuggestedDocumentType{Value: "ugovor"},
				Property:     model.SuggestedProperty{Name: "Tower A"},
				Tenant:       model.SuggestedTenant{Name: "Nova Firma d.o.o."},
			},
		}, nil)

	view, err := f.svc.Start(ctx, strings.NewReader("%PDF"), "ugovor.pdf", "application/pdf", 4)
	require.NoError(t, err)

	// The rest of the reconciliation survives the failed creation.
	assert.Nil(t, view.CreatedTenant)
	assert.Equal(t, "prop-1", view.Form.PropertyID)
	require.NotNil(t, view.Outcome)
	assert.True(t, view.Outcome.PropertyApplied)
	assert.Equal(t, "Nova Firma d.o.o.", view.Outcome.TenantToCreate)
}

func TestIngestService_UpdateAndSubmit(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t)
	f.expectPut()
	f.extractor.On("ParsePDFContract", mock.Anything, mock.Anything, mock.Anything).
		Return(&extract.ParseResult{Success: false, Message: "nope"}, nil)

	view, err := f.svc.Start(ctx, strings.NewReader("%PDF"), "scan.pdf", "application/pdf", 4)
	require.NoError(t, err)
	id := view.ID

	// Requiring links without setting them routes the failure to linking.
	ugovor := "ugovor"
	_, err = f.svc.Update(ctx, id, SessionUpdate{DocumentType: &ugovor})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, id)
	var verr *ingest.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "PROPERTY_REQUIRED", verr.Code)
	assert.Equal(t, ingest.StepLinking, verr.Step)

	// Fall back to an unconstrained type and fill in the name.
	ostalo := "ostalo"
	name := "Zapisnik o primopredaji"
	view, err = f.svc.Update(ctx, id, SessionUpdate{DocumentType: &ostalo, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, view.Form.Name)

	f.documents.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
		return doc.Name == name && doc.Type == "ostalo" && doc.StoragePath == view.File.StorageKey
	})).Return(&model.Document{ID: "doc-1", Name: name}, nil)

	doc, err := f.svc.Submit(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)

	// The session is gone once the document is persisted.
	_, err = f.svc.Get(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	f.documents.AssertExpectations(t)
}

func TestIngestService_Cancel_RemovesSessionAndObject(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t)
	f.expectPut()
	f.extractor.On("ParsePDFContract", mock.Anything, mock.Anything, mock.Anything).
		Return(&extract.ParseResult{Success: false, Message: "nope"}, nil)

	view, err := f.svc.Start(ctx, strings.NewReader("%PDF"), "scan.pdf", "application/pdf", 4)
	require.NoError(t, err)

	f.store.On("Delete", ctx, view.File.StorageKey).Return(nil)

	require.NoError(t, f.svc.Cancel(ctx, view.ID))
	_, err = f.svc.Get(ctx, view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	f.store.AssertExpectations(t)
}

func TestIngestService_ReplaceFile_DropsPreviousObject(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t)
	f.expectPut()
	f.extractor.On("ParsePDFContract", mock.Anything, mock.Anything, mock.Anything).
		Return(&extract.ParseResult{Success: false, Message: "nope"}, nil)

	view, err := f.svc.Start(ctx, strings.NewReader("%PDF"), "scan.pdf", "application/pdf", 4)
	require.NoError(t, err)
	oldKey := view.File.StorageKey

	f.store.On("Delete", ctx, oldKey).Return(nil)

	view, err = f.svc.ReplaceFile(ctx, view.ID, strings.NewReader("%PDF"), "better.pdf", "application/pdf", 4)
	require.NoError(t, err)
	assert.NotEqual(t, oldKey, view.File.StorageKey)
	f.store.AssertExpectations(t)
}

func TestIngestService_Get_UnknownSession(t *testing.T) {
	f := newIngestFixture(t)
	_, err := f.svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrIDRequired)
}

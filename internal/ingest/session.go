// Package ingest implements the per-upload reconciliation session: it
// merges extraction suggestions into a user-correctable document draft,
// enforces the link policy of the classified document type, and gates
// step progression through upload, metadata, and linking.
package ingest

import (
	"errors"
	"fmt"

	"leasedesk/internal/doctype"
	"leasedesk/internal/match"
	"leasedesk/internal/model"
)

// ErrSuperseded is returned when an extraction response arrives for a
// generation that a newer file selection has replaced. Late responses are
// discarded instead of mutating the current draft.
var ErrSuperseded = errors.New("extraction response superseded by a newer upload")

// State is the lifecycle of one upload session.
type State string

const (
	StateIdle               State = "idle"
	StateAwaitingExtraction State = "awaiting_extraction"
	StateSuggestionsReady   State = "suggestions_ready"
	StateUserReviewing      State = "user_reviewing"
	StateSubmitted          State = "submitted"
)

// Step identifies one wizard step.
type Step int

const (
	StepUpload Step = iota
	StepMetadata
	StepLinking
)

// FileRef describes the uploaded file held by the session.
type FileRef struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	StorageKey  string `json:"storage_key"`
}

// FormData is the user-correctable draft of the document being ingested.
// Link fields hold entity ids; empty string means unset.
type FormData struct {
	Name         string            `json:"naziv"`
	Description  string            `json:"opis"`
	DocumentType string            `json:"tip"`
	PropertyID   string            `json:"property_id"`
	TenantID     string            `json:"tenant_id"`
	ContractID   string            `json:"contract_id"`
	UnitID       string            `json:"unit_id"`
	Metadata     map[string]string `json:"metadata"`
}

func (f FormData) clone() FormData {
	out := f
	out.Metadata = make(map[string]string, len(f.Metadata))
	for k, v := range f.Metadata {
		out.Metadata[k] = v
	}
	return out
}

// Catalog is a read-mostly snapshot of the entity collections the session
// reconciles against. It is passed in explicitly; the session never
// fetches or mutates entities itself.
type Catalog struct {
	Properties []model.Property
	Tenants    []model.Tenant
	Contracts  []model.Contract
	Units      []model.PropertyUnit
}

// UnitsFor returns the units belonging to one property.
func (c Catalog) UnitsFor(propertyID string) []model.PropertyUnit {
	var out []model.PropertyUnit
	for _, u := range c.Units {
		if u.PropertyID == propertyID {
			out = append(out, u)
		}
	}
	return out
}

// UnitByID looks a unit up across all properties.
func (c Catalog) UnitByID(id string) (model.PropertyUnit, bool) {
	for _, u := range c.Units {
		if u.ID == id {
			return u, true
		}
	}
	return model.PropertyUnit{}, false
}

// Outcome records what the reconciliation decided for each link, so the
// caller can follow up (auto-create a tenant, offer unit creation) and
// the UI can explain what was applied.
type Outcome struct {
	PropertyApplied bool `json:"property_applied"`
	TenantApplied   bool `json:"tenant_applied"`
	ContractApplied bool `json:"contract_applied"`
	UnitApplied     bool `json:"unit_applied"`

	// UnitPendingCreation is set when the extraction named a unit that no
	// local record matches. The unit stays unlinked; creation is offered
	// to the operator, never done blindly.
	UnitPendingCreation bool `json:"unit_pending_creation"`

	// TenantToCreate carries the suggested tenant name when no tenant
	// matched and no close alternative exists, so creation can proceed
	// without a disambiguation prompt.
	TenantToCreate string `json:"tenant_to_create,omitempty"`

	// TenantCloseAlternative is the near-match that blocks automatic
	// tenant creation; the operator has to pick.
	TenantCloseAlternative *model.Tenant `json:"tenant_close_alternative,omitempty"`
}

// ValidationError describes the first rule a submission attempt violated
// and the step where the fix belongs.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Step    Step   `json:"step"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Session is the reconciliation state machine for one upload. It is not
// safe for concurrent use; callers serialize access per session.
type Session struct {
	resolver *doctype.Resolver

	state State
	step  Step
	gen   int

	file *FileRef
	form FormData
	reqs doctype.Requirements

	manualSnap *FormData
	aiSnap     *FormData
	aiApplied  bool

	suggestions     *model.AISuggestionBundle
	outcome         *Outcome
	extractionError string
}

// NewSession builds an idle session bound to the given requirement resolver.
func NewSession(resolver *doctype.Resolver) *Session {
	return &Session{
		resolver: resolver,
		state:    StateIdle,
		step:     StepUpload,
		form:     FormData{Metadata: map[string]string{}},
		reqs:     resolver.Resolve(""),
	}
}

func (s *Session) State() State                           { return s.state }
func (s *Session) CurrentStep() Step                      { return s.step }
func (s *Session) Generation() int                        { return s.gen }
func (s *Session) File() *FileRef                         { return s.file }
func (s *Session) Form() FormData                         { return s.form.clone() }
func (s *Session) Requirements() doctype.Requirements     { return s.reqs }
func (s *Session) Suggestions() *model.AISuggestionBundle { return s.suggestions }
func (s *Session) Outcome() *Outcome                      { return s.outcome }
func (s *Session) AIApplied() bool                        { return s.aiApplied }
func (s *Session) ExtractionError() string                { return s.extractionError }

// SelectFile registers the uploaded file, snapshots the manual form state,
// clears previous suggestions and errors, and moves to AwaitingExtraction.
// The returned generation must accompany the matching extraction result;
// selecting another file bumps the generation and orphans in-flight work.
func (s *Session) SelectFile(f FileRef) int {
	snap := s.form.clone()
	s.manualSnap = &snap
	s.aiSnap = nil
	s.aiApplied = false
	s.suggestions = nil
	s.outcome = nil
	s.extractionError = ""
	s.file = &f
	s.state = StateAwaitingExtraction
	s.gen++
	return s.gen
}

// RemoveFile discards the uploaded file and resets the session to idle.
// An in-flight extraction is not cancelled here; its response is dropped
// by the generation check.
func (s *Session) RemoveFile() {
	s.file = nil
	s.suggestions = nil
	s.outcome = nil
	s.extractionError = ""
	s.aiSnap = nil
	s.aiApplied = false
	s.form = FormData{Metadata: map[string]string{}}
	s.manualSnap = nil
	s.reqs = s.resolver.Resolve("")
	s.state = StateIdle
	s.step = StepUpload
	s.gen++
}

// Reset fully discards the session state, as after cancel.
func (s *Session) Reset() {
	s.RemoveFile()
}

// ApplySuggestions merges an extraction result into the draft following
// the auto-application rules, and reports the reconciliation outcome.
// gen must be the value returned by the SelectFile call that started the
// extraction; a stale generation returns ErrSuperseded untouched.
func (s *Session) ApplySuggestions(gen int, bundle *model.AISuggestionBundle, cat Catalog) (*Outcome, error) {
	if gen != s.gen {
		return nil, ErrSuperseded
	}
	if s.state != StateAwaitingExtraction {
		return nil, fmt.Errorf("cannot apply suggestions in state %q", s.state)
	}

	s.suggestions = bundle
	out := &Outcome{}

	if bundle.DocumentType.Value != "" {
		s.applyDocumentType(bundle.DocumentType.Value)
	} else {
		s.reqs = s.resolver.Resolve(s.form.DocumentType)
	}

	m := match.New(cat.Properties, cat.Tenants, cat.Contracts)

	// Property first: it is load-bearing for unit and contract linking.
	prop := m.Property(bundle.Property.Name, bundle.Property.Address)
	if prop != nil && s.reqs.AllowsProperty {
		s.form.PropertyID = prop.ID
		out.PropertyApplied = true
	}

	unitNamed := bundle.Unit.Code != "" || bundle.Unit.Name != ""
	if unitNamed {
		var unit *model.PropertyUnit
		if prop != nil {
			unit = match.Unit(cat.UnitsFor(prop.ID), bundle.Unit.Code, bundle.Unit.Name)
		}
		if unit != nil && s.reqs.AllowsUnit {
			s.form.UnitID = unit.ID
			out.UnitApplied = true
		} else {
			// Never invent a unit without the operator's resolved property
			// context: leave unlinked and flag for manual creation.
			out.UnitPendingCreation = true
		}
	}

	if s.reqs.AllowsTenant {
		tenant := m.Tenant(bundle.Tenant.Name, bundle.Tenant.OIB)
		switch {
		case tenant != nil && tenant.Status != model.TenantArchived:
			s.form.TenantID = tenant.ID
			out.TenantApplied = true
		case tenant == nil && bundle.Tenant.Name != "":
			if alt := m.CloseTenantAlternative(bundle.Tenant.Name); alt != nil {
				out.TenantCloseAlternative = alt
			} else {
				out.TenantToCreate = bundle.Tenant.Name
			}
		}
	}

	if s.reqs.AllowsContract {
		if contract := m.Contract(bundle.Contract.Reference); contract != nil {
			s.form.ContractID = contract.ID
			out.ContractApplied = true
		}
	}

	s.seedMetadata(bundle.Metadata)
	s.autoFillName(bundle, prop)
	s.enforceUnitOwnership(cat)

	snap := s.form.clone()
	s.aiSnap = &snap
	s.aiApplied = true
	s.outcome = out
	s.state = StateSuggestionsReady
	return out, nil
}

// ExtractionFailed records a failed extraction and drops the session into
// fully manual entry. The message is surfaced verbatim to the user.
func (s *Session) ExtractionFailed(gen int, message string) error {
	if gen != s.gen {
		return ErrSuperseded
	}
	s.extractionError = message
	s.suggestions = nil
	s.outcome = nil
	s.aiSnap = nil
	s.aiApplied = false
	s.state = StateUserReviewing
	return nil
}

// SetAIApplied toggles between the AI-derived and the manual snapshot.
// Both are immutable copies taken at the moment of divergence, so the
// toggle is lossless in either direction.
func (s *Session) SetAIApplied(on bool) {
	if on == s.aiApplied {
		return
	}
	if on {
		if s.aiSnap == nil {
			return
		}
		s.form = s.aiSnap.clone()
		s.aiApplied = true
	} else {
		if s.manualSnap != nil {
			s.form = s.manualSnap.clone()
		}
		s.aiApplied = false
	}
	s.markReviewing()
	s.reqs = s.resolver.Resolve(s.form.DocumentType)
}

// SetDocumentType re-derives the allowed metadata field set, preserving
// already-entered values for fields that remain applicable, and clears
// any link no longer permitted by the new type's policy.
func (s *Session) SetDocumentType(raw string) {
	s.markReviewing()
	s.applyDocumentType(raw)
}

func (s *Session) applyDocumentType(raw string) {
	s.reqs = s.resolver.Resolve(raw)
	s.form.DocumentType = s.reqs.Key

	kept := make(map[string]string, len(s.form.Metadata))
	for id, value := range s.form.Metadata {
		if _, ok := s.reqs.Field(id); ok {
			kept[id] = value
		}
	}
	s.form.Metadata = kept

	if !s.reqs.AllowsProperty {
		s.form.PropertyID = ""
	}
	if !s.reqs.AllowsTenant {
		s.form.TenantID = ""
	}
	if !s.reqs.AllowsContract {
		s.form.ContractID = ""
	}
	if !s.reqs.AllowsUnit {
		s.form.UnitID = ""
	}
}

func (s *Session) SetName(name string) {
	s.markReviewing()
	s.form.Name = name
}

func (s *Session) SetDescription(desc string) {
	s.markReviewing()
	s.form.Description = desc
}

// SetMetadataField stores a metadata value if the active type declares
// the field; values for unknown fields are ignored.
func (s *Session) SetMetadataField(id, value string) {
	if _, ok := s.reqs.Field(id); !ok {
		return
	}
	s.markReviewing()
	s.form.Metadata[id] = value
}

// SetProperty changes the property link and clears a unit that no longer
// belongs to the selected property.
func (s *Session) SetProperty(id string, cat Catalog) {
	s.markReviewing()
	s.form.PropertyID = id
	s.enforceUnitOwnership(cat)
}

func (s *Session) SetTenant(id string) {
	if !s.reqs.AllowsTenant {
		return
	}
	s.markReviewing()
	s.form.TenantID = id
}

func (s *Session) SetContract(id string) {
	if !s.reqs.AllowsContract {
		return
	}
	s.markReviewing()
	s.form.ContractID = id
}

// SetUnit links a unit; a unit owned by a different property than the
// draft's selection is rejected by clearing the link.
func (s *Session) SetUnit(id string, cat Catalog) {
	if !s.reqs.AllowsUnit {
		return
	}
	s.markReviewing()
	s.form.UnitID = id
	s.enforceUnitOwnership(cat)
}

// Recompute re-checks cross-entity invariants against a fresh catalog
// snapshot, currently the unit/property ownership rule.
func (s *Session) Recompute(cat Catalog) {
	s.enforceUnitOwnership(cat)
}

func (s *Session) enforceUnitOwnership(cat Catalog) {
	if s.form.UnitID == "" {
		return
	}
	unit, ok := cat.UnitByID(s.form.UnitID)
	if !ok || unit.PropertyID != s.form.PropertyID {
		s.form.UnitID = ""
	}
}

// CanAdvance reports whether forward movement from the given step is
// allowed. The linking step has no forward gate; submission validates
// independently.
func (s *Session) CanAdvance(step Step) bool {
	switch step {
	case StepUpload:
		return s.file != nil
	case StepMetadata:
		if s.form.Name == "" || s.form.DocumentType == "" {
			return false
		}
		return s.firstBlankRequiredField() == nil
	default:
		return true
	}
}

// Advance moves one step forward when the gate allows it.
func (s *Session) Advance() bool {
	if s.step >= StepLinking || !s.CanAdvance(s.step) {
		return false
	}
	s.step++
	return true
}

// GoToStep moves to an arbitrary step; moving backwards is always allowed.
func (s *Session) GoToStep(step Step) bool {
	if step < StepUpload || step > StepLinking {
		return false
	}
	for cur := s.step; cur < step; cur++ {
		if !s.CanAdvance(cur) {
			return false
		}
	}
	s.step = step
	return true
}

// Validate checks the submission rules in order and returns the first
// violation, or nil when the draft is submittable.
func (s *Session) Validate() *ValidationError {
	if s.file == nil {
		return &ValidationError{Code: "FILE_REQUIRED", Message: "a file must be uploaded", Step: StepUpload}
	}
	if s.reqs.RequiresProperty && s.form.PropertyID == "" {
		return &ValidationError{Code: "PROPERTY_REQUIRED", Message: "a property link is required for this document type", Step: StepLinking}
	}
	if s.reqs.RequiresTenant && s.reqs.AllowsTenant && s.form.TenantID == "" {
		return &ValidationError{Code: "TENANT_REQUIRED", Message: "a tenant link is required for this document type", Step: StepLinking}
	}
	if s.reqs.RequiresContract && s.reqs.AllowsContract && s.form.ContractID == "" {
		return &ValidationError{Code: "CONTRACT_REQUIRED", Message: "a contract link is required for this document type", Step: StepLinking}
	}
	if f := s.firstBlankRequiredField(); f != nil {
		return &ValidationError{
			Code:    "FIELD_REQUIRED",
			Message: fmt.Sprintf("field %q is required", f.Label),
			Step:    StepMetadata,
		}
	}
	return nil
}

// Submit validates the draft and, on success, freezes the session. The
// returned form and file describe the payload handed to persistence.
func (s *Session) Submit() (FormData, *FileRef, *ValidationError) {
	if verr := s.Validate(); verr != nil {
		// Navigate the user back to where the fix belongs.
		s.step = verr.Step
		return FormData{}, nil, verr
	}
	s.state = StateSubmitted
	return s.form.clone(), s.file, nil
}

func (s *Session) firstBlankRequiredField() *doctype.MetadataField {
	for i := range s.reqs.Fields {
		f := &s.reqs.Fields[i]
		if f.Required && s.form.Metadata[f.ID] == "" {
			return f
		}
	}
	return nil
}

func (s *Session) markReviewing() {
	if s.state == StateSuggestionsReady {
		s.state = StateUserReviewing
	}
}

// seedMetadata copies extracted metadata into fields the active type
// declares, without overwriting anything the user already entered.
func (s *Session) seedMetadata(extracted map[string]string) {
	for key, value := range extracted {
		id := doctype.CanonicalKey(key)
		if _, ok := s.reqs.Field(id); !ok {
			continue
		}
		if s.form.Metadata[id] == "" {
			s.form.Metadata[id] = value
		}
	}
}

// autoFillName fills the document name when still empty, by priority:
// invoice number, then contract reference, then a composed name for
// property-only types.
func (s *Session) autoFillName(bundle *model.AISuggestionBundle, prop *model.Property) {
	if s.form.Name != "" {
		return
	}
	switch {
	case bundle.InvoiceNumber != "":
		s.form.Name = "Račun " + bundle.InvoiceNumber
	case bundle.Contract.Reference != "":
		s.form.Name = s.reqs.Label + " " + bundle.Contract.Reference
	case s.reqs.PropertyOnly():
		name := bundle.Property.Name
		if prop != nil {
			name = prop.Name
		}
		if name != "" {
			s.form.Name = s.reqs.Label + " - " + name
		}
	}
}

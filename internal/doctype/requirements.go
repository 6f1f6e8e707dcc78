// Package doctype resolves a raw document-type classification into the
// declarative policy governing which entity links are required or allowed
// and which metadata fields apply. The policy table is an external JSON
// artifact loaded once at startup and treated as immutable.
package doctype

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// FieldType is the input type of a metadata field descriptor.
type FieldType string

const (
	FieldText   FieldType = "text"
	FieldNumber FieldType = "number"
	FieldDate   FieldType = "date"
)

// MetadataField describes one type-specific metadata input.
type MetadataField struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Placeholder string    `json:"placeholder"`
}

// Requirements is the resolved per-type policy.
type Requirements struct {
	Key   string `json:"key"`
	Label string `json:"label"`

	RequiresProperty bool `json:"requires_property"`
	RequiresTenant   bool `json:"requires_tenant"`
	RequiresContract bool `json:"requires_contract"`

	AllowsProperty bool `json:"allows_property"`
	AllowsTenant   bool `json:"allows_tenant"`
	AllowsContract bool `json:"allows_contract"`
	AllowsUnit     bool `json:"allows_unit"`

	Fields []MetadataField `json:"fields"`
}

// PropertyOnly reports whether the type requires a property link while
// forbidding both tenant and contract links. Derived, never stored.
func (r Requirements) PropertyOnly() bool {
	return r.RequiresProperty && !r.AllowsTenant && !r.AllowsContract
}

// Field returns the descriptor with the given id, if present.
func (r Requirements) Field(id string) (MetadataField, bool) {
	for _, f := range r.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return MetadataField{}, false
}

// OtherKey is the canonical key unknown classifications resolve to.
const OtherKey = "ostalo"

// CanonicalKey normalizes a raw type string: lowercase, runs of
// non-alphanumeric characters collapsed to single underscores.
// An empty result resolves to OtherKey.
func CanonicalKey(raw string) string {
	var b strings.Builder
	lastUnderscore := true // swallow leading separators
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	key := strings.Trim(b.String(), "_")
	if key == "" {
		return OtherKey
	}
	return key
}

// rawEntry mirrors one JSON table entry before defaulting. Pointer fields
// distinguish "absent" from "false" so the permissive defaults apply only
// where the config is silent.
type rawEntry struct {
	Label            string     `json:"label"`
	RequiresProperty bool       `json:"requires_property"`
	RequiresTenant   bool       `json:"requires_tenant"`
	RequiresContract bool       `json:"requires_contract"`
	AllowsProperty   *bool      `json:"allows_property"`
	AllowsTenant     *bool      `json:"allows_tenant"`
	AllowsContract   *bool      `json:"allows_contract"`
	AllowsUnit       *bool      `json:"allows_unit"`
	Fields           []rawField `json:"fields"`
}

type rawField struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Placeholder string `json:"placeholder"`
}

// Resolver maps canonical document-type keys to their Requirements.
type Resolver struct {
	table map[string]Requirements
}

// Load reads the policy table from a JSON file.
func Load(path string) (*Resolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read doctype config: %w", err)
	}
	return Parse(data)
}

// Parse builds a Resolver from raw JSON table bytes.
func Parse(data []byte) (*Resolver, error) {
	var raw map[string]rawEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse doctype config: %w", err)
	}

	table := make(map[string]Requirements, len(raw))
	for key, entry := range raw {
		canonical := CanonicalKey(key)
		table[canonical] = buildRequirements(canonical, entry)
	}
	return &Resolver{table: table}, nil
}

// Resolve returns the policy for a raw type string. Unknown keys fall back
// to the configured "ostalo" entry, or to permissive defaults if the table
// does not carry one.
func (r *Resolver) Resolve(raw string) Requirements {
	key := CanonicalKey(raw)
	if req, ok := r.table[key]; ok {
		return req
	}
	if req, ok := r.table[OtherKey]; ok {
		req.Key = key
		return req
	}
	return defaultRequirements(key)
}

// Known reports whether the canonical form of raw has an explicit entry.
func (r *Resolver) Known(raw string) bool {
	_, ok := r.table[CanonicalKey(raw)]
	return ok
}

// Keys returns the canonical keys present in the table.
func (r *Resolver) Keys() []string {
	keys := make([]string, 0, len(r.table))
	for k := range r.table {
		keys = append(keys, k)
	}
	return keys
}

func buildRequirements(key string, e rawEntry) Requirements {
	req := defaultRequirements(key)
	req.Label = e.Label
	if req.Label == "" {
		req.Label = key
	}
	req.RequiresProperty = e.RequiresProperty
	req.RequiresTenant = e.RequiresTenant
	req.RequiresContract = e.RequiresContract
	if e.AllowsProperty != nil {
		req.AllowsProperty = *e.AllowsProperty
	}
	if e.AllowsTenant != nil {
		req.AllowsTenant = *e.AllowsTenant
	}
	if e.AllowsContract != nil {
		req.AllowsContract = *e.AllowsContract
	}
	if e.AllowsUnit != nil {
		req.AllowsUnit = *e.AllowsUnit
	}

	// A required link is implicitly an allowed one.
	if req.RequiresProperty {
		req.AllowsProperty = true
	}
	if req.RequiresTenant {
		req.AllowsTenant = true
	}
	if req.RequiresContract {
		req.AllowsContract = true
	}

	req.Fields = make([]MetadataField, 0, len(e.Fields))
	for _, f := range e.Fields {
		req.Fields = append(req.Fields, buildField(f))
	}
	return req
}

// defaultRequirements is the permissive fallback: all links allowed,
// none required, no metadata fields.
func defaultRequirements(key string) Requirements {
	return Requirements{
		Key:            key,
		Label:          key,
		AllowsProperty: true,
		AllowsTenant:   true,
		AllowsContract: true,
		AllowsUnit:     true,
		Fields:         []MetadataField{},
	}
}

func buildField(f rawField) MetadataField {
	out := MetadataField{
		ID:          f.ID,
		Label:       f.Label,
		Type:        FieldType(f.Type),
		Required:    f.Required,
		Placeholder: f.Placeholder,
	}
	if out.Type == "" {
		out.Type = FieldText
	}
	if out.ID == "" {
		out.ID = CanonicalKey(f.Label)
	}
	return out
}

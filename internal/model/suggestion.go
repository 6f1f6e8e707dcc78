package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Confidence is a best-effort extraction score normalized to a 0-100
// percentage at the JSON boundary. The extraction service is not
// consistent about the shape: it may send a number (0-1 or 0-100),
// a numeric string, or an object with one of several key names.
// An absent or unparseable score is "not available", never zero.
type Confidence struct {
	pct *float64
}

// NewConfidence builds a Confidence from an already normalized percentage.
func NewConfidence(pct float64) Confidence {
	p := clampPct(pct)
	return Confidence{pct: &p}
}

// Percent returns the normalized percentage and whether a score is available.
func (c Confidence) Percent() (float64, bool) {
	if c.pct == nil {
		return 0, false
	}
	return *c.pct, true
}

func (c Confidence) MarshalJSON() ([]byte, error) {
	if c.pct == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*c.pct)
}

func (c *Confidence) UnmarshalJSON(b []byte) error {
	c.pct = nil

	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	var num float64
	if err := json.Unmarshal(b, &num); err == nil {
		c.set(num)
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(str), "%"), 64); err == nil {
			c.set(v)
		}
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err == nil {
		for _, key := range []string{"confidence", "score", "value", "pouzdanost"} {
			if raw, ok := obj[key]; ok {
				var nested Confidence
				if err := nested.UnmarshalJSON(raw); err == nil && nested.pct != nil {
					c.pct = nested.pct
					return nil
				}
			}
		}
	}

	// Unknown shape: treat as unscored rather than failing the whole bundle.
	return nil
}

// set normalizes a raw score: values on the 0-1 scale become percentages.
func (c *Confidence) set(v float64) {
	if v < 0 {
		return
	}
	if v <= 1 {
		v *= 100
	}
	v = clampPct(v)
	c.pct = &v
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// SuggestedProperty is the extracted property fragment.
type SuggestedProperty struct {
	Name       string     `json:"naziv,omitempty"`
	Address    string     `json:"adresa,omitempty"`
	Confidence Confidence `json:"confidence,omitempty"`
}

// SuggestedTenant is the extracted tenant fragment.
type SuggestedTenant struct {
	Name       string     `json:"naziv,omitempty"`
	OIB        string     `json:"oib,omitempty"`
	Confidence Confidence `json:"confidence,omitempty"`
}

// SuggestedContract is the extracted contract fragment.
type SuggestedContract struct {
	Reference  string     `json:"broj_ugovora,omitempty"`
	Confidence Confidence `json:"confidence,omitempty"`
}

// SuggestedUnit is the extracted sub-unit fragment.
type SuggestedUnit struct {
	Code       string     `json:"oznaka,omitempty"`
	Name       string     `json:"naziv,omitempty"`
	Confidence Confidence `json:"confidence,omitempty"`
}

// SuggestedDocumentType is the extracted classification fragment.
type SuggestedDocumentType struct {
	Value      string     `json:"tip,omitempty"`
	Confidence Confidence `json:"confidence,omitempty"`
}

// AISuggestionBundle is the read-only output of the extraction service:
// best-effort fragments for every linkable entity plus loose metadata.
// Always advisory, never authoritative.
type AISuggestionBundle struct {
	DocumentType  SuggestedDocumentType `json:"document_type"`
	Property      SuggestedProperty     `json:"property"`
	Tenant        SuggestedTenant       `json:"tenant"`
	Contract      SuggestedContract     `json:"contract"`
	Unit          SuggestedUnit         `json:"unit"`
	InvoiceNumber string                `json:"broj_racuna,omitempty"`
	Metadata      map[string]string     `json:"metadata,omitempty"`
}

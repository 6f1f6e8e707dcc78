// Package match resolves AI-suggested entity fragments against the known
// entity catalogs. Absence of a match is a normal outcome reported as nil,
// never as an error; the caller defers to manual entry or creation flows.
package match

import (
	"strings"

	"leasedesk/internal/model"
)

// Matcher holds read-only snapshots of the entity catalogs. Catalogs are
// passed explicitly at construction so repeated invocations over the same
// snapshot are deterministic.
type Matcher struct {
	properties []model.Property
	tenants    []model.Tenant
	contracts  []model.Contract
}

// New builds a Matcher over the given catalog snapshots.
func New(properties []model.Property, tenants []model.Tenant, contracts []model.Contract) *Matcher {
	return &Matcher{
		properties: properties,
		tenants:    tenants,
		contracts:  contracts,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Property returns the first property whose normalized name equals or
// contains the suggested name, or whose normalized address equals or
// contains the suggested address. Encounter order decides ties.
func (m *Matcher) Property(name, address string) *model.Property {
	name = normalize(name)
	address = normalize(address)
	if name == "" && address == "" {
		return nil
	}
	for i := range m.properties {
		p := &m.properties[i]
		if name != "" {
			cand := normalize(p.Name)
			if cand == name || strings.Contains(cand, name) {
				return p
			}
		}
		if address != "" {
			cand := normalize(p.Address)
			if cand == address || strings.Contains(cand, address) {
				return p
			}
		}
	}
	return nil
}

// Tenant matches a suggested tenant fragment. An exact OIB match takes
// priority over any name match; otherwise an exact or substring match on
// the company or person name wins.
func (m *Matcher) Tenant(name, oib string) *model.Tenant {
	oib = normalize(oib)
	if oib != "" {
		for i := range m.tenants {
			if normalize(m.tenants[i].OIB) == oib {
				return &m.tenants[i]
			}
		}
	}

	name = normalize(name)
	if name == "" {
		return nil
	}
	for i := range m.tenants {
		t := &m.tenants[i]
		for _, cand := range []string{normalize(t.CompanyName), normalize(t.PersonName)} {
			if cand == "" {
				continue
			}
			if cand == name || strings.Contains(cand, name) {
				return t
			}
		}
	}
	return nil
}

// Contract matches only on the exact normalized internal reference code.
// There is deliberately no fuzzy fallback for contracts.
func (m *Matcher) Contract(reference string) *model.Contract {
	reference = normalize(reference)
	if reference == "" {
		return nil
	}
	for i := range m.contracts {
		if normalize(m.contracts[i].Reference) == reference {
			return &m.contracts[i]
		}
	}
	return nil
}

// Unit matches within a single property's unit list: exact match on the
// normalized code first, then exact match on the normalized display name.
func Unit(units []model.PropertyUnit, code, name string) *model.PropertyUnit {
	code = normalize(code)
	if code != "" {
		for i := range units {
			if normalize(units[i].Code) == code {
				return &units[i]
			}
		}
	}
	name = normalize(name)
	if name != "" {
		for i := range units {
			if normalize(units[i].Name) == name {
				return &units[i]
			}
		}
	}
	return nil
}

// closeMatchThreshold bounds the edit distance considered "close" for a
// name of the given length.
func closeMatchThreshold(length int) int {
	t := length / 4
	if t < 1 {
		t = 1
	}
	if t > 3 {
		t = 3
	}
	return t
}

// CloseTenantAlternative reports whether any tenant's name is within edit
// distance of the suggested name without being an exact or substring match.
// The reconciliation flow uses this to decide whether an unmatched tenant
// name is unambiguous enough to auto-create.
func (m *Matcher) CloseTenantAlternative(name string) *model.Tenant {
	name = normalize(name)
	if name == "" {
		return nil
	}
	threshold := closeMatchThreshold(len([]rune(name)))
	for i := range m.tenants {
		t := &m.tenants[i]
		for _, cand := range []string{normalize(t.CompanyName), normalize(t.PersonName)} {
			if cand == "" || cand == name {
				continue
			}
			if LevenshteinDistance(cand, name) <= threshold {
				return t
			}
		}
	}
	return nil
}

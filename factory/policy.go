/*
Package factory provides JSON to Go policy conversion.

PURPOSE:
  Converts a JSON policy file into a vacation.Policy so HR can change the
  entitlement numbers without a release.

JSON SCHEMA:
  {
    "name": "politica-general",
    "annual_days": 30,
    "foreign_annual_days": 30,
    "libres_days": 15,
    "bloque_days": 15,
    "foreign_libres_days": 15,
    "foreign_bloque_days": 15,
    "prorate": "monthly",
    "consume_oldest_first": true
  }

DEFAULTS:
  - Missing fields take the value of vacation.DefaultPolicy().
  - Missing foreign_* fields copy the local value they shadow, so a file
    that only sets annual_days applies to everyone.

USAGE:
  f := factory.NewPolicyFactory()
  policy, err := f.LoadFile("./policy.json")
  deps := vacation.Deps{Policy: policy, ...}

SEE ALSO:
  - vacation/policy.go: Policy and AccrualPolicy
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/warp/vacation-engine/generic"
	"github.com/warp/vacation-engine/vacation"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a vacation policy. Pointers
// distinguish "absent" from zero.
type PolicyJSON struct {
	Name               string `json:"name,omitempty"`
	AnnualDays         *int   `json:"annual_days,omitempty"`
	ForeignAnnualDays  *int   `json:"foreign_annual_days,omitempty"`
	LibresDays         *int   `json:"libres_days,omitempty"`
	BloqueDays         *int   `json:"bloque_days,omitempty"`
	ForeignLibresDays  *int   `json:"foreign_libres_days,omitempty"`
	ForeignBloqueDays  *int   `json:"foreign_bloque_days,omitempty"`
	Prorate            string `json:"prorate,omitempty"`
	ConsumeOldestFirst *bool  `json:"consume_oldest_first,omitempty"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON policies to vacation.Policy.
type PolicyFactory struct{}

func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// ParsePolicy parses and validates a JSON policy.
func (f *PolicyFactory) ParsePolicy(data []byte) (vacation.Policy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return vacation.Policy{}, fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// LoadFile reads a policy file. An empty path yields the default policy.
func (f *PolicyFactory) LoadFile(path string) (vacation.Policy, error) {
	if path == "" {
		return vacation.DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return vacation.Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	p, err := f.ParsePolicy(data)
	if err != nil {
		return vacation.Policy{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// FromJSON applies pj over the default policy and validates the result.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (vacation.Policy, error) {
	p := vacation.DefaultPolicy()
	if pj.Name != "" {
		p.Name = pj.Name
	}

	set(&p.AnnualDays, pj.AnnualDays)
	set(&p.LibresDays, pj.LibresDays)
	set(&p.BloqueDays, pj.BloqueDays)

	p.ForeignAnnualDays = p.AnnualDays
	p.ForeignLibresDays = p.LibresDays
	p.ForeignBloqueDays = p.BloqueDays
	set(&p.ForeignAnnualDays, pj.ForeignAnnualDays)
	set(&p.ForeignLibresDays, pj.ForeignLibresDays)
	set(&p.ForeignBloqueDays, pj.ForeignBloqueDays)

	method, err := parseProrate(pj.Prorate)
	if err != nil {
		return vacation.Policy{}, err
	}
	p.ProrateMethod = method

	if pj.ConsumeOldestFirst != nil {
		p.OldestFirst = *pj.ConsumeOldestFirst
	}

	if err := p.Validate(); err != nil {
		return vacation.Policy{}, fmt.Errorf("invalid policy: %w", err)
	}
	return p, nil
}

// ToJSON converts a Policy back to its file form.
func (f *PolicyFactory) ToJSON(p vacation.Policy) PolicyJSON {
	oldest := p.OldestFirst
	return PolicyJSON{
		Name:               p.Name,
		AnnualDays:         &p.AnnualDays,
		ForeignAnnualDays:  &p.ForeignAnnualDays,
		LibresDays:         &p.LibresDays,
		BloqueDays:         &p.BloqueDays,
		ForeignLibresDays:  &p.ForeignLibresDays,
		ForeignBloqueDays:  &p.ForeignBloqueDays,
		Prorate:            string(p.Proration()),
		ConsumeOldestFirst: &oldest,
	}
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func set(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func parseProrate(s string) (generic.ProrateMethod, error) {
	switch s {
	case "", "monthly":
		return generic.ProrateMonthly, nil
	case "none":
		return generic.ProrateNone, nil
	default:
		return "", &generic.ValidationError{Field: "prorate", Reason: fmt.Sprintf("unknown method %q", s)}
	}
}

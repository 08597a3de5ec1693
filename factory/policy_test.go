package factory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/vacation-engine/factory"
	"github.com/warp/vacation-engine/generic"
	"github.com/warp/vacation-engine/vacation"
)

func TestParsePolicy_FullDocument(t *testing.T) {
	p, err := factory.NewPolicyFactory().ParsePolicy([]byte(`{
		"name": "politica-general",
		"annual_days": 30,
		"foreign_annual_days": 24,
		"libres_days": 10,
		"bloque_days": 20,
		"foreign_libres_days": 8,
		"foreign_bloque_days": 16,
		"prorate": "none",
		"consume_oldest_first": false
	}`))
	require.NoError(t, err)

	assert.Equal(t, "politica-general", p.Name)
	assert.Equal(t, 24, p.AnnualEntitlement(vacation.Employee{Foreign: true}))
	assert.Equal(t, 20, p.Allotment(vacation.Employee{}, vacation.KindBloque))
	assert.Equal(t, 8, p.Allotment(vacation.Employee{Foreign: true}, vacation.KindLibres))
	assert.Equal(t, generic.ProrateNone, p.Proration())
	assert.False(t, p.ConsumeOldestFirst())
}

func TestParsePolicy_DefaultsAndForeignFallback(t *testing.T) {
	// GIVEN: a file that only raises the annual days and the libres split
	// WHEN: parsed
	// THEN: foreign values follow the local ones, the rest is the default
	p, err := factory.NewPolicyFactory().ParsePolicy([]byte(`{"annual_days": 40, "libres_days": 25}`))
	require.NoError(t, err)

	assert.Equal(t, 40, p.ForeignAnnualDays)
	assert.Equal(t, 25, p.ForeignLibresDays)
	assert.Equal(t, 15, p.BloqueDays)
	assert.Equal(t, generic.ProrateMonthly, p.Proration())
	assert.True(t, p.ConsumeOldestFirst())
}

func TestParsePolicy_Invalid(t *testing.T) {
	f := factory.NewPolicyFactory()

	_, err := f.ParsePolicy([]byte(`{not json`))
	assert.Error(t, err)

	_, err = f.ParsePolicy([]byte(`{"annual_days": 10, "libres_days": 8, "bloque_days": 8}`))
	assert.ErrorIs(t, err, generic.ErrValidation)

	_, err = f.ParsePolicy([]byte(`{"prorate": "daily"}`))
	assert.ErrorIs(t, err, generic.ErrValidation)
}

func TestToJSON_RoundTrip(t *testing.T) {
	f := factory.NewPolicyFactory()
	in := vacation.DefaultPolicy()
	in.LibresDays, in.BloqueDays = 12, 18

	out, err := f.FromJSON(f.ToJSON(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadFile(t *testing.T) {
	f := factory.NewPolicyFactory()

	def, err := f.LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, vacation.DefaultPolicy(), def)

	path := filepath.Join(t.TempDir(), "policy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"annual_days": 22, "libres_days": 11, "bloque_days": 11}`), 0o600))
	p, err := f.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 22, p.AnnualDays)

	_, err = f.LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

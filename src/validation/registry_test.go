package validation

import (
	"context"
	"testing"

	"sectorsguard/src/fetcher"
	"sectorsguard/src/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, CheckInput) CheckOutcome { return CheckOutcome{} }

func validSpec(name string) Spec {
	return Spec{
		Name:         name,
		Plan:         fetcher.Plan{Table: name},
		Checks:       []Check{{Name: "noop", Run: noop}},
		PersistFloor: model.SeverityError,
	}
}

func TestNewRegistryRejectsInvalidSpecs(t *testing.T) {
	cases := map[string]func(s *Spec){
		"empty name":       func(s *Spec) { s.Name = "" },
		"no table":         func(s *Spec) { s.Plan.Table = "" },
		"no checks":        func(s *Spec) { s.Checks = nil },
		"incomplete check": func(s *Spec) { s.Checks = []Check{{Name: "x"}} },
		"bad floor":        func(s *Spec) { s.PersistFloor = "loud" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := validSpec("dataset")
			mutate(&s)
			_, err := NewRegistry(s)
			assert.Error(t, err)
		})
	}

	_, err := NewRegistry(validSpec("a"), validSpec("a"))
	assert.Error(t, err)
	assert.Panics(t, func() { MustRegistry(validSpec("a"), validSpec("a")) })
}

func TestRegistryKeepsOrderAndDefaultsDataset(t *testing.T) {
	r := MustRegistry(validSpec("zeta"), validSpec("alpha"))
	assert.Equal(t, []string{"zeta", "alpha"}, r.Names())
	assert.Equal(t, []string{"alpha", "zeta"}, r.SortedNames())

	s, ok := r.Lookup("zeta")
	require.True(t, ok)
	assert.Equal(t, "zeta", s.Plan.Dataset)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestDefaultSpecsFormValidRegistry(t *testing.T) {
	r, err := NewRegistry(DefaultSpecs(Config{TopMarketCapLimit: 50})...)
	require.NoError(t, err)
	assert.Len(t, r.Names(), 9)

	for _, name := range r.Names() {
		s, _ := r.Lookup(name)
		assert.Equal(t, model.SeverityError, s.PersistFloor, name)
		assert.Equal(t, 0, s.Threshold, name)
		assert.NotEqual(t, KindGeneric, s.Kind, name)
	}

	coverage, ok := r.Lookup("idx_daily_coverage")
	require.True(t, ok)
	assert.Equal(t, DailyDataset, coverage.Plan.Table)
	assert.Equal(t, "idx_daily_coverage", coverage.Plan.Dataset)

	daily, _ := r.Lookup(DailyDataset)
	assert.Equal(t, 50, daily.Plan.TopByMarketCap)
}

func TestGenericSpecThreshold(t *testing.T) {
	s := GenericSpec("payments", &model.ValidationConfig{ErrorThreshold: 2, CheckKinds: `["time_series"]`}, 5)
	assert.Equal(t, 2, s.Threshold)
	assert.Equal(t, model.SeverityInfo, s.PersistFloor)
	require.Len(t, s.Checks, 1)
	assert.Equal(t, CheckTimeSeries, s.Checks[0].Name)

	s = GenericSpec("payments", &model.ValidationConfig{}, 5)
	assert.Equal(t, 5, s.Threshold)
	assert.Len(t, s.Checks, 2)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "daily_coverage", KindDailyCoverage.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}

package validation

import (
	"testing"

	"sectorsguard/src/model"

	"github.com/stretchr/testify/assert"
)

func TestToleranceIsMaxOfRelativeAndFloor(t *testing.T) {
	assert.Equal(t, 1e9, Tolerance(5e9, 0.1, 1e9))
	assert.Equal(t, 2e9, Tolerance(-20e9, 0.1, 1e9))
	assert.Equal(t, 1e9, Tolerance(0, 0.1, 1e9))
}

func TestToleranceMonotonicInAbsoluteBase(t *testing.T) {
	params := []struct{ rel, floor float64 }{
		{0.10, 1e9}, {0.02, 1e9}, {0.05, 5e8}, {0.01, 1e-6},
	}
	bases := []float64{0, 1, 1e3, 1e8, 5e8, 9.99e9, 1e10, 2.5e10, 1e12, 1e15}
	for _, p := range params {
		prev := Tolerance(0, p.rel, p.floor)
		for _, b := range bases {
			for _, signed := range []float64{b, -b} {
				tol := Tolerance(signed, p.rel, p.floor)
				assert.GreaterOrEqual(t, tol, prev, "rel=%g floor=%g base=%g", p.rel, p.floor, signed)
			}
			prev = Tolerance(b, p.rel, p.floor)
		}
	}
}

func TestSeverityForDeviationBoundaries(t *testing.T) {
	cases := []struct {
		pct  float64
		want model.Severity
	}{
		{pct: 11.0, want: model.SeverityError},
		{pct: 11.01, want: model.SeverityError},
		{pct: 10.99, want: model.SeverityWarning},
		{pct: 5.0, want: model.SeverityWarning},
		{pct: 4.99, want: model.SeverityInfo},
		{pct: 0, want: model.SeverityInfo},
		{pct: -12, want: model.SeverityError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SeverityForDeviation(tc.pct), "pct=%v", tc.pct)
	}
}

func TestPercentOfZeroBase(t *testing.T) {
	assert.Equal(t, 300.0, PercentOf(-3, 0))
	assert.Equal(t, 12.0, PercentOf(12e9, 100e9))
}

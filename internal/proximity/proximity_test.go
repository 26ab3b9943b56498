package proximity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placewell/placewell/internal/config"
	"github.com/placewell/placewell/internal/geodata"
	"github.com/placewell/placewell/internal/model"
)

var downtown = model.Coordinate{Latitude: 37.3382, Longitude: -121.8863}

func scorerCfg() config.ScorerConfig {
	return config.Default().Scorer
}

func storeWith(t *testing.T, facilities []model.Facility) *geodata.Store {
	t.Helper()
	s, err := geodata.New(
		[]model.Shelter{
			{ID: "SH-01", Location: model.Coordinate{Latitude: 37.3400, Longitude: -121.8900}},
		},
		[]model.CensusTract{
			{ID: "5001", Representative: downtown, Population: 4200, UnhousedCount: 310, PovertyRate: 0.22, Density: 9800},
		},
		nil, facilities, 5.0,
	)
	require.NoError(t, err)
	return s
}

func TestCompute_NearbyShelterScoresPositive(t *testing.T) {
	s := storeWith(t, []model.Facility{
		{ID: "T-01", Category: model.FacilityTransit, Location: model.Coordinate{Latitude: 37.3360, Longitude: -121.8900}},
	})
	calc := NewCalculator(s, scorerCfg())

	m := calc.Compute(downtown)

	// SH-01 is well under the 3 mile cutoff.
	assert.Greater(t, m.ShelterProximity, 0.0)
	assert.LessOrEqual(t, m.ShelterProximity, 1.0)
	assert.Greater(t, m.TransitProximity, 0.0)
}

func TestCompute_FacilityBeyondCutoffScoresZero(t *testing.T) {
	// ~1.07 miles out, past the 1 mile transit cutoff. The category is
	// present, so the score floors at zero without a degraded flag.
	s := storeWith(t, []model.Facility{
		{ID: "T-02", Category: model.FacilityTransit, Location: model.Coordinate{Latitude: 37.3297, Longitude: -121.9026}},
	})
	calc := NewCalculator(s, scorerCfg())

	m := calc.Compute(downtown)

	assert.Zero(t, m.TransitProximity)
	assert.NotContains(t, m.Degraded, model.DegradedFlag(model.FacilityTransit))
}

func TestCompute_EmptyCategoryDegrades(t *testing.T) {
	s := storeWith(t, nil) // no facilities at all
	calc := NewCalculator(s, scorerCfg())

	m := calc.Compute(downtown)

	assert.Zero(t, m.HealthcareProximity)
	assert.Zero(t, m.GroceryProximity)
	assert.Zero(t, m.TransitProximity)
	assert.Contains(t, m.Degraded, model.DegradedFlag(model.FacilityHealthcare))
	assert.Contains(t, m.Degraded, model.DegradedFlag(model.FacilityGrocery))
	assert.Contains(t, m.Degraded, model.DegradedFlag(model.FacilityTransit))
}

func TestCloseness(t *testing.T) {
	tests := []struct {
		name   string
		d      float64
		cutoff float64
		want   float64
	}{
		{"at facility", 0, 3, 1.0},
		{"halfway", 1.5, 3, 0.5},
		{"at cutoff", 3, 3, 0.0},
		{"beyond cutoff", 10, 3, 0.0},
		{"zero cutoff", 1, 0, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, closeness(tt.d, tt.cutoff), 1e-9)
		})
	}
}

func TestNewCalculator_NilStore(t *testing.T) {
	assert.Nil(t, NewCalculator(nil, scorerCfg()))
}

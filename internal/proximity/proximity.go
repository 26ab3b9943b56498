// Package proximity computes distance-based closeness features for a
// candidate site against the reference datasets.
package proximity

import (
	"math"

	"go.uber.org/zap"

	"github.com/placewell/placewell/internal/config"
	"github.com/placewell/placewell/internal/geodata"
	"github.com/placewell/placewell/internal/model"
)

// Metrics holds the per-category closeness scores for a coordinate. Each
// value is in [0,1]: 1 at the facility, falling linearly to 0 at the
// category cutoff distance. A category with no reference facilities scores 0
// and is listed in Degraded; that is a disclosed data condition, not an
// error.
type Metrics struct {
	ShelterProximity    float64  `json:"shelter_proximity"`
	HealthcareProximity float64  `json:"healthcare_proximity"`
	GroceryProximity    float64  `json:"grocery_proximity"`
	TransitProximity    float64  `json:"transit_proximity"`
	Degraded            []string `json:"degraded,omitempty"`
}

// Calculator derives proximity metrics from a geodata store.
type Calculator struct {
	store *geodata.Store
	cfg   config.ScorerConfig
}

// NewCalculator creates a Calculator. Returns nil if store is nil.
func NewCalculator(store *geodata.Store, cfg config.ScorerConfig) *Calculator {
	if store == nil {
		return nil
	}
	return &Calculator{store: store, cfg: cfg}
}

// Compute returns the four closeness scores for a coordinate.
func (c *Calculator) Compute(coord model.Coordinate) Metrics {
	var m Metrics

	if d, ok := c.store.NearestShelterDistance(coord); ok {
		m.ShelterProximity = closeness(d, c.cfg.ShelterCutoffMiles)
	} else {
		m.Degraded = append(m.Degraded, model.DegradedFlag("shelter"))
	}

	m.HealthcareProximity = c.facilityCloseness(coord, model.FacilityHealthcare, c.cfg.HealthcareCutoffMiles, &m)
	m.GroceryProximity = c.facilityCloseness(coord, model.FacilityGrocery, c.cfg.GroceryCutoffMiles, &m)
	m.TransitProximity = c.facilityCloseness(coord, model.FacilityTransit, c.cfg.TransitCutoffMiles, &m)

	if len(m.Degraded) > 0 {
		zap.L().Debug("proximity: degraded categories",
			zap.Strings("degraded", m.Degraded),
			zap.Float64("lat", coord.Latitude),
			zap.Float64("lon", coord.Longitude),
		)
	}
	return m
}

func (c *Calculator) facilityCloseness(coord model.Coordinate, cat model.FacilityCategory, cutoff float64, m *Metrics) float64 {
	_, d, ok := c.store.NearestFacility(coord, cat)
	if !ok {
		m.Degraded = append(m.Degraded, model.DegradedFlag(cat))
		return 0
	}
	return closeness(d, cutoff)
}

// closeness maps a distance in miles to [0,1]: 1 - d/cutoff, floored at 0.
// A non-positive cutoff scores 0 so a misconfigured category degrades
// instead of dividing by zero.
func closeness(d, cutoff float64) float64 {
	if cutoff <= 0 {
		return 0
	}
	return math.Max(0, 1-d/cutoff)
}

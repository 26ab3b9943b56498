// Package feasibility derives construction-feasibility estimates for a
// candidate site from terrain proxies.
package feasibility

import (
	"math"

	"github.com/placewell/placewell/internal/config"
	"github.com/placewell/placewell/internal/model"
)

// TerrainProxy supplies the raw terrain inputs for a coordinate. The
// synthetic implementation below simulates them from the coordinate alone;
// a real geophysical data source can be substituted without touching the
// estimator contract.
type TerrainProxy interface {
	// FloodRisk returns flood exposure in [0,1].
	FloodRisk(c model.Coordinate) float64

	// SoilStability returns soil bearing quality in [0,1].
	SoilStability(c model.Coordinate) float64

	// Slope returns the estimated terrain grade in percent.
	Slope(c model.Coordinate) float64
}

// SyntheticTerrain is the built-in TerrainProxy. All three signals are
// simulated: deterministic functions of the coordinate against fixed
// thresholds, reproducible but not geophysically measured.
type SyntheticTerrain struct {
	cfg config.FeasibilityConfig
}

// NewSyntheticTerrain creates the synthetic proxy with the given thresholds.
func NewSyntheticTerrain(cfg config.FeasibilityConfig) *SyntheticTerrain {
	return &SyntheticTerrain{cfg: cfg}
}

// FloodRisk ramps linearly with longitude from the configured west bound
// (risk 0) to the east bound (risk 1), clamped. Models the creek-side east
// flank flooding before the higher west side does.
func (t *SyntheticTerrain) FloodRisk(c model.Coordinate) float64 {
	span := t.cfg.FloodEastLng - t.cfg.FloodWestLng
	if span == 0 {
		return 0
	}
	return clamp01((c.Longitude - t.cfg.FloodWestLng) / span)
}

// SoilStability ramps linearly with latitude across a band of SoilRampWidth
// degrees centered on the threshold: fully stable north of the band, fully
// unstable south of it. The ramp (rather than a hard step) keeps adjacent
// probes from flipping between extremes.
func (t *SyntheticTerrain) SoilStability(c model.Coordinate) float64 {
	half := t.cfg.SoilRampWidth / 2
	if half == 0 {
		if c.Latitude >= t.cfg.SoilThresholdLat {
			return 1
		}
		return 0
	}
	return clamp01((c.Latitude - (t.cfg.SoilThresholdLat - half)) / (2 * half))
}

// Slope grows with distance from the valley-floor pivot latitude.
func (t *SyntheticTerrain) Slope(c model.Coordinate) float64 {
	return math.Abs(c.Latitude-t.cfg.SlopePivotLat) * t.cfg.SlopePerDegree
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

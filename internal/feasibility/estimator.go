package feasibility

import (
	"math"

	"go.uber.org/zap"

	"github.com/placewell/placewell/internal/config"
	"github.com/placewell/placewell/internal/model"
)

// Estimator maps terrain proxies to a feasibility score.
type Estimator struct {
	terrain TerrainProxy
	cfg     config.FeasibilityConfig
}

// New creates an Estimator. A nil terrain defaults to the synthetic proxy.
func New(terrain TerrainProxy, cfg config.FeasibilityConfig) *Estimator {
	if terrain == nil {
		terrain = NewSyntheticTerrain(cfg)
	}
	return &Estimator{terrain: terrain, cfg: cfg}
}

// Estimate computes the feasibility result for a coordinate. Deterministic:
// the same coordinate always yields the identical result.
func (e *Estimator) Estimate(c model.Coordinate) model.FeasibilityResult {
	flood := clamp01(e.terrain.FloodRisk(c))
	soil := clamp01(e.terrain.SoilStability(c))
	slope := e.terrain.Slope(c)

	cost := e.cfg.CostBase + e.cfg.CostPerSlope*slope

	// Normalized inverse of cost against the ceiling: cheap sites score 1,
	// sites at or above the ceiling score 0.
	costScore := 0.0
	if e.cfg.CostCeiling > 0 {
		costScore = clamp01(1 - cost/e.cfg.CostCeiling)
	}

	score := clamp01(((1 - flood) + soil + costScore) / 3)

	result := model.FeasibilityResult{
		FloodRisk:        round4(flood),
		SoilStability:    round4(soil),
		SlopeEstimate:    round4(slope),
		CostPerSqft:      round4(cost),
		FeasibilityScore: round4(score),
	}

	zap.L().Debug("feasibility: site estimated",
		zap.Float64("lat", c.Latitude),
		zap.Float64("lon", c.Longitude),
		zap.Float64("score", result.FeasibilityScore),
	)
	return result
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

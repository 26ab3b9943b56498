package scorer

import (
	"go.uber.org/zap"

	"github.com/placewell/placewell/internal/config"
	"github.com/placewell/placewell/internal/geodata"
	"github.com/placewell/placewell/internal/model"
	"github.com/placewell/placewell/internal/proximity"
)

// CompositeScorer combines proximity metrics, tract socioeconomic
// attributes, and infrastructure proxies into a weighted suitability score.
type CompositeScorer struct {
	store *geodata.Store
	prox  *proximity.Calculator
	cfg   config.ScorerConfig
}

// New creates a CompositeScorer. Returns nil if store is nil.
func New(store *geodata.Store, cfg config.ScorerConfig) *CompositeScorer {
	if store == nil {
		return nil
	}
	return &CompositeScorer{
		store: store,
		prox:  proximity.NewCalculator(store, cfg),
		cfg:   cfg,
	}
}

// Score evaluates a candidate site. Coordinates outside the service-area
// bounding box still resolve against the nearest tract, but the result is
// flagged low-confidence rather than refused: planners legitimately probe
// edge areas.
func (s *CompositeScorer) Score(coord model.Coordinate) model.ScoreResult {
	m := s.prox.Compute(coord)
	tract := s.store.NearestTract(coord)

	access := (m.ShelterProximity + m.HealthcareProximity + m.GroceryProximity + m.TransitProximity) / 4

	utility, roads, logistics := infrastructureComponents(tract)
	infrastructure := (utility + roads + logistics) / 3

	poverty := clamp01(tract.PovertyRate / s.cfg.PovertyRateCeiling)
	unhoused := 0.0
	if max := s.store.MaxUnhoused(); max > 0 {
		unhoused = clamp01(float64(tract.UnhousedCount) / float64(max))
	}
	community := (poverty + unhoused + s.cfg.EnvEquityIndicator) / 3

	access = clamp01(access)
	infrastructure = clamp01(infrastructure)
	community = clamp01(community)

	composite := clamp01(s.cfg.AccessWeight*access +
		s.cfg.InfrastructureWeight*infrastructure +
		s.cfg.CommunityWeight*community)

	result := model.ScoreResult{
		TractID:             tract.ID,
		AccessScore:         round4(access),
		InfrastructureScore: round4(infrastructure),
		CommunityScore:      round4(community),
		CompositeScore:      round4(composite),
		Components: map[string]float64{
			"shelter_proximity":    round4(m.ShelterProximity),
			"healthcare_proximity": round4(m.HealthcareProximity),
			"grocery_proximity":    round4(m.GroceryProximity),
			"transit_proximity":    round4(m.TransitProximity),
			"utility_availability": round4(utility),
			"road_readiness":       round4(roads),
			"logistics_readiness":  round4(logistics),
			"poverty_rate":         round4(poverty),
			"unhoused_count":       round4(unhoused),
			"env_equity":           round4(s.cfg.EnvEquityIndicator),
		},
		Flags: append([]string(nil), m.Degraded...),
	}

	if !s.store.InBounds(coord) {
		result.Flags = append(result.Flags, model.FlagOutOfBounds, model.FlagLowConfidence)
	}

	zap.L().Info("scorer: site scored",
		zap.Float64("lat", coord.Latitude),
		zap.Float64("lon", coord.Longitude),
		zap.String("tract_id", result.TractID),
		zap.Float64("composite", result.CompositeScore),
		zap.Strings("flags", result.Flags),
	)
	return result
}

// infrastructureComponents derives the per-tract infrastructure proxies.
// These are deterministic functions of the resolved tract: denser, more
// populated tracts are assumed to have utility hookups, maintained roads,
// and staging logistics already in place. Simulated values, not surveyed
// ones; swap in real parcel data upstream when it exists.
func infrastructureComponents(t model.CensusTract) (utility, roads, logistics float64) {
	utility = clamp01(t.Density / 4000)
	roads = clamp01(t.Density / 6000)
	logistics = clamp01(float64(t.Population) / 10000)
	return utility, roads, logistics
}

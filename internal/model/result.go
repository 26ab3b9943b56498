package model

import (
	"time"

	"github.com/twpayne/go-geom"
)

// Result flags. Degraded computations are never dropped silently; every
// condition that weakened a result rides along as a flag so the caller can
// disclose it.
const (
	FlagLowConfidence = "low_confidence"
	FlagOutOfBounds   = "out_of_bounds"
)

// DegradedFlag returns the flag recorded when a facility category has no
// reference records to measure against.
func DegradedFlag(category FacilityCategory) string {
	return "degraded:" + string(category)
}

// ScoreResult is the composite suitability score for a candidate site.
// All score fields are clamped to [0,1].
type ScoreResult struct {
	TractID             string             `json:"tract_id"`
	AccessScore         float64            `json:"access_score"`
	InfrastructureScore float64            `json:"infrastructure_score"`
	CommunityScore      float64            `json:"community_score"`
	CompositeScore      float64            `json:"composite_score"`
	Components          map[string]float64 `json:"components,omitempty"`
	Flags               []string           `json:"flags,omitempty"`
}

// FeasibilityResult holds the construction-feasibility estimate for a
// candidate site. The terrain inputs are synthetic proxies derived from the
// coordinate, not measured data.
type FeasibilityResult struct {
	FloodRisk        float64  `json:"flood_risk"`     // 0-1
	SoilStability    float64  `json:"soil_stability"` // 0-1
	SlopeEstimate    float64  `json:"slope_estimate"` // percent grade
	CostPerSqft      float64  `json:"cost_per_sqft_estimate"`
	FeasibilityScore float64  `json:"feasibility_score"` // 0-1
	Flags            []string `json:"flags,omitempty"`
}

// ShelterDistance pairs a shelter with its distance from a site.
type ShelterDistance struct {
	Shelter       Shelter `json:"shelter"`
	DistanceMiles float64 `json:"distance_miles"`
}

// TractGap identifies a tract with no covering site, carrying the counts
// used to rank gaps for prioritization.
type TractGap struct {
	TractID       string `json:"tract_id"`
	Population    int    `json:"population"`
	UnhousedCount int    `json:"unhoused_count"`
}

// SiteCoverage is the per-site coverage breakdown. A tract covered by two
// sites appears in both breakdowns; union semantics apply only to the
// city-wide totals on CoverageResult.
type SiteCoverage struct {
	Site          Coordinate        `json:"site"`
	RadiusMiles   float64           `json:"radius_miles"`
	Shelters      []ShelterDistance `json:"shelters"`
	CoveredTracts []string          `json:"covered_tracts"`
	Population    int               `json:"population"`
	Unhoused      int               `json:"unhoused"`
	Overlay       *geom.Polygon     `json:"-"`
}

// CoverageResult describes service coverage for a set of sites. City-wide
// totals count each tract at most once.
type CoverageResult struct {
	Sites             []SiteCoverage `json:"sites"`
	CoveredTracts     []string       `json:"covered_tracts"`
	UncoveredTracts   []TractGap     `json:"uncovered_tracts"`
	PopulationCovered int            `json:"population_covered"`
	UnhousedCovered   int            `json:"unhoused_covered"`

	// Delta fields are set by AggregateDelta and describe what the newest
	// site added beyond the existing sites.
	NewlyCoveredTracts []string `json:"newly_covered_tracts,omitempty"`
	PopulationDelta    int      `json:"population_delta,omitempty"`
	UnhousedDelta      int      `json:"unhoused_delta,omitempty"`

	Flags []string `json:"flags,omitempty"`
}

// EvaluationKind identifies which analysis produced a persisted evaluation.
type EvaluationKind string

const (
	EvaluationScore       EvaluationKind = "score"
	EvaluationFeasibility EvaluationKind = "feasibility"
	EvaluationCoverage    EvaluationKind = "coverage"
)

// Evaluation is a persisted analysis run: the input, the kind of analysis,
// and the result serialized as JSON.
type Evaluation struct {
	ID        string         `json:"id"`
	Kind      EvaluationKind `json:"kind"`
	Address   string         `json:"address,omitempty"`
	Site      Coordinate     `json:"site"`
	Result    string         `json:"result"`
	CreatedAt time.Time      `json:"created_at"`
}

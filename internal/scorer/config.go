// Package scorer implements the weighted composite site-suitability score.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/placewell/placewell/internal/config"
)

// WeightSum returns the sum of the three top-level component weights.
func WeightSum(c config.ScorerConfig) float64 {
	return c.AccessWeight + c.InfrastructureWeight + c.CommunityWeight
}

// ValidateConfig checks that a ScorerConfig is internally consistent.
func ValidateConfig(c config.ScorerConfig) error {
	var errs []string

	weights := map[string]float64{
		"access_weight":         c.AccessWeight,
		"infrastructure_weight": c.InfrastructureWeight,
		"community_weight":      c.CommunityWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	// Weights must sum to 1.0 (allow tolerance for floating-point).
	if sum := WeightSum(c); math.Abs(sum-1.0) > 1e-6 {
		errs = append(errs, fmt.Sprintf("weights must sum to 1.0, got %.4f", sum))
	}

	cutoffs := map[string]float64{
		"shelter_cutoff_miles":    c.ShelterCutoffMiles,
		"healthcare_cutoff_miles": c.HealthcareCutoffMiles,
		"grocery_cutoff_miles":    c.GroceryCutoffMiles,
		"transit_cutoff_miles":    c.TransitCutoffMiles,
	}
	for name, d := range cutoffs {
		if d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be > 0", name))
		}
	}

	if c.PovertyRateCeiling <= 0 || c.PovertyRateCeiling > 1 {
		errs = append(errs, "poverty_rate_ceiling must be in (0, 1]")
	}
	if c.EnvEquityIndicator < 0 || c.EnvEquityIndicator > 1 {
		errs = append(errs, "env_equity_indicator must be in [0, 1]")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// clamp01 clamps a value into [0,1]. Upstream data errors are clamped here
// rather than propagated.
func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

// round4 rounds a score to 4 decimal places.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

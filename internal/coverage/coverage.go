// Package coverage computes fixed-radius service-area relationships between
// sites, shelters, and census tracts.
package coverage

import (
	"math"
	"sort"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/placewell/placewell/internal/config"
	"github.com/placewell/placewell/internal/geodata"
	"github.com/placewell/placewell/internal/model"
)

// circleSegments is the vertex count of the overlay polygons handed to the
// map layer.
const circleSegments = 64

// Analyzer derives coverage, gap, and overlap relationships against the
// reference tracts and shelters.
type Analyzer struct {
	store *geodata.Store
	cfg   config.CoverageConfig
}

// NewAnalyzer creates an Analyzer. Returns nil if store is nil.
func NewAnalyzer(store *geodata.Store, cfg config.CoverageConfig) *Analyzer {
	if store == nil {
		return nil
	}
	return &Analyzer{store: store, cfg: cfg}
}

// CoverageFor computes the coverage result for a single site. radiusMiles <= 0
// falls back to the configured default radius.
func (a *Analyzer) CoverageFor(site model.Coordinate, radiusMiles float64) model.CoverageResult {
	if radiusMiles <= 0 {
		radiusMiles = a.cfg.RadiusMiles
	}

	result := a.analyze([]model.Coordinate{site}, radiusMiles)

	zap.L().Info("coverage: site analyzed",
		zap.Float64("lat", site.Latitude),
		zap.Float64("lon", site.Longitude),
		zap.Float64("radius_miles", radiusMiles),
		zap.Int("covered_tracts", len(result.CoveredTracts)),
		zap.Int("population_covered", result.PopulationCovered),
	)
	return result
}

// AggregateDelta compares city-wide coverage with and without the new site.
// Union semantics: the city totals count a tract at most once even when two
// sites cover it, while the per-site breakdowns retain full multiplicity.
func (a *Analyzer) AggregateDelta(existing []model.Coordinate, newSite model.Coordinate) model.CoverageResult {
	radius := a.cfg.RadiusMiles

	before := a.analyze(existing, radius)
	after := a.analyze(append(append([]model.Coordinate(nil), existing...), newSite), radius)

	prior := make(map[string]bool, len(before.CoveredTracts))
	for _, id := range before.CoveredTracts {
		prior[id] = true
	}

	for _, t := range a.store.Tracts() {
		if !prior[t.ID] && containsID(after.CoveredTracts, t.ID) {
			after.NewlyCoveredTracts = append(after.NewlyCoveredTracts, t.ID)
			after.PopulationDelta += t.Population
			after.UnhousedDelta += t.UnhousedCount
		}
	}

	zap.L().Info("coverage: aggregate delta computed",
		zap.Int("existing_sites", len(existing)),
		zap.Int("newly_covered_tracts", len(after.NewlyCoveredTracts)),
		zap.Int("population_delta", after.PopulationDelta),
		zap.Int("unhoused_delta", after.UnhousedDelta),
	)
	return after
}

// analyze computes coverage for a set of sites at the given radius.
func (a *Analyzer) analyze(sites []model.Coordinate, radiusMiles float64) model.CoverageResult {
	var result model.CoverageResult
	covered := make(map[string]bool)

	for _, site := range sites {
		sc := model.SiteCoverage{
			Site:        site,
			RadiusMiles: radiusMiles,
			Shelters:    a.store.SheltersWithin(site, radiusMiles),
			Overlay:     CirclePolygon(site, radiusMiles),
		}
		for _, t := range a.store.Tracts() {
			d := geodata.Haversine(site.Latitude, site.Longitude,
				t.Representative.Latitude, t.Representative.Longitude)
			if d <= radiusMiles {
				sc.CoveredTracts = append(sc.CoveredTracts, t.ID)
				sc.Population += t.Population
				sc.Unhoused += t.UnhousedCount
				covered[t.ID] = true
			}
		}
		result.Sites = append(result.Sites, sc)

		if !a.store.InBounds(site) && !containsID(result.Flags, model.FlagOutOfBounds) {
			result.Flags = append(result.Flags, model.FlagOutOfBounds, model.FlagLowConfidence)
		}
	}

	// City-wide union totals and the gap list, tracts iterated in ID order.
	for _, t := range a.store.Tracts() {
		if covered[t.ID] {
			result.CoveredTracts = append(result.CoveredTracts, t.ID)
			result.PopulationCovered += t.Population
			result.UnhousedCovered += t.UnhousedCount
		} else {
			result.UncoveredTracts = append(result.UncoveredTracts, model.TractGap{
				TractID:       t.ID,
				Population:    t.Population,
				UnhousedCount: t.UnhousedCount,
			})
		}
	}

	// Gaps ranked by descending unhoused count for prioritization; equal
	// counts keep tract ID order.
	sort.SliceStable(result.UncoveredTracts, func(i, j int) bool {
		return result.UncoveredTracts[i].UnhousedCount > result.UncoveredTracts[j].UnhousedCount
	})

	return result
}

// CirclePolygon builds the map-overlay circle for a site: a closed go-geom
// polygon approximating the radius in degree space, adequate for rendering
// at city scale.
func CirclePolygon(center model.Coordinate, radiusMiles float64) *geom.Polygon {
	latDeg := radiusMiles / 69.0
	lngDeg := radiusMiles / (69.0 * math.Cos(center.Latitude*math.Pi/180))

	flat := make([]float64, 0, (circleSegments+1)*2)
	for i := 0; i <= circleSegments; i++ {
		theta := 2 * math.Pi * float64(i) / circleSegments
		flat = append(flat,
			center.Longitude+lngDeg*math.Cos(theta),
			center.Latitude+latDeg*math.Sin(theta),
		)
	}
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}).SetSRID(4326)
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

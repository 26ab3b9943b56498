package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placewell/placewell/internal/config"
	"github.com/placewell/placewell/internal/geodata"
	"github.com/placewell/placewell/internal/model"
)

var downtown = model.Coordinate{Latitude: 37.3382, Longitude: -121.8863}

// eastSide sits ~3.5 miles from downtown; its tract is out of reach of a
// 1-mile downtown radius.
var eastSide = model.Coordinate{Latitude: 37.3385, Longitude: -121.8230}

func testStore(t *testing.T) *geodata.Store {
	t.Helper()
	s, err := geodata.New(
		[]model.Shelter{
			{ID: "SH-01", Name: "Guadalupe", Location: model.Coordinate{Latitude: 37.3400, Longitude: -121.8900}},
			{ID: "SH-02", Name: "Monterey Rd", Location: model.Coordinate{Latitude: 37.3000, Longitude: -121.8600}},
		},
		[]model.CensusTract{
			{ID: "5001", Representative: model.Coordinate{Latitude: 37.3380, Longitude: -121.8860}, Population: 4200, UnhousedCount: 310},
			{ID: "5002", Representative: model.Coordinate{Latitude: 37.3450, Longitude: -121.8800}, Population: 5100, UnhousedCount: 120},
			{ID: "5003", Representative: eastSide, Population: 3800, UnhousedCount: 450},
		},
		nil, nil, 5.0,
	)
	require.NoError(t, err)
	return s
}

func analyzer(t *testing.T) *Analyzer {
	t.Helper()
	return NewAnalyzer(testStore(t), config.Default().Coverage)
}

func TestCoverageFor_SheltersAndTractsWithinRadius(t *testing.T) {
	a := analyzer(t)

	r := a.CoverageFor(downtown, 1.0)

	require.Len(t, r.Sites, 1)
	site := r.Sites[0]

	// SH-01 is ~0.3 miles out; SH-02 is ~3 miles out.
	require.Len(t, site.Shelters, 1)
	assert.Equal(t, "SH-01", site.Shelters[0].Shelter.ID)
	assert.Less(t, site.Shelters[0].DistanceMiles, 1.0)

	assert.Contains(t, r.CoveredTracts, "5001")
	assert.Contains(t, r.CoveredTracts, "5002")
	assert.NotContains(t, r.CoveredTracts, "5003")
	assert.Equal(t, 4200+5100, r.PopulationCovered)

	require.NotNil(t, site.Overlay)
	assert.Positive(t, site.Overlay.NumLinearRings())
}

func TestCoverageFor_GapsRankedByUnhoused(t *testing.T) {
	a := analyzer(t)

	// A site far from every tract leaves all three uncovered.
	r := a.CoverageFor(model.Coordinate{Latitude: 37.20, Longitude: -121.75}, 0.5)

	require.Len(t, r.UncoveredTracts, 3)
	assert.Equal(t, "5003", r.UncoveredTracts[0].TractID) // 450 unhoused
	assert.Equal(t, "5001", r.UncoveredTracts[1].TractID) // 310
	assert.Equal(t, "5002", r.UncoveredTracts[2].TractID) // 120
}

func TestAggregateDelta_NoDoubleCounting(t *testing.T) {
	a := analyzer(t)

	// Two sites whose radii both contain tract 5001.
	siteA := downtown
	siteB := model.Coordinate{Latitude: 37.3360, Longitude: -121.8840}

	r := a.AggregateDelta([]model.Coordinate{siteA}, siteB)

	// Union total counts 5001 once...
	count := 0
	for _, id := range r.CoveredTracts {
		if id == "5001" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	// ...but both per-site breakdowns list it.
	require.Len(t, r.Sites, 2)
	assert.Contains(t, r.Sites[0].CoveredTracts, "5001")
	assert.Contains(t, r.Sites[1].CoveredTracts, "5001")

	// Nothing newly covered: siteA already reached both downtown tracts.
	assert.Empty(t, r.NewlyCoveredTracts)
	assert.Zero(t, r.PopulationDelta)
}

func TestAggregateDelta_NewSiteCoversGapTract(t *testing.T) {
	a := analyzer(t)

	// Downtown alone leaves 5003 uncovered.
	before := a.CoverageFor(downtown, 1.0)
	uncoveredIDs := make([]string, 0, len(before.UncoveredTracts))
	for _, g := range before.UncoveredTracts {
		uncoveredIDs = append(uncoveredIDs, g.TractID)
	}
	require.Contains(t, uncoveredIDs, "5003")

	// A new site on the east side moves 5003 from uncovered to covered.
	r := a.AggregateDelta([]model.Coordinate{downtown}, eastSide)

	assert.Contains(t, r.CoveredTracts, "5003")
	assert.Contains(t, r.NewlyCoveredTracts, "5003")
	assert.Equal(t, 3800, r.PopulationDelta)
	assert.Equal(t, 450, r.UnhousedDelta)
	for _, g := range r.UncoveredTracts {
		assert.NotEqual(t, "5003", g.TractID)
	}
}

func TestCoverageFor_OutOfBoundsFlagged(t *testing.T) {
	a := analyzer(t)

	r := a.CoverageFor(model.Coordinate{Latitude: 38.5, Longitude: -120.9}, 1.0)
	assert.Contains(t, r.Flags, model.FlagOutOfBounds)
	assert.Contains(t, r.Flags, model.FlagLowConfidence)
}

func TestCirclePolygon_ClosedRingAroundCenter(t *testing.T) {
	p := CirclePolygon(downtown, 1.0)

	require.Equal(t, 1, p.NumLinearRings())
	flat := p.LinearRing(0).FlatCoords()
	n := len(flat)
	require.GreaterOrEqual(t, n/2, circleSegments)

	// Ring closes on itself.
	assert.InDelta(t, flat[0], flat[n-2], 1e-9)
	assert.InDelta(t, flat[1], flat[n-1], 1e-9)

	// Every vertex sits ~1 mile from the center.
	for i := 0; i < n; i += 2 {
		d := geodata.Haversine(downtown.Latitude, downtown.Longitude, flat[i+1], flat[i])
		assert.InDelta(t, 1.0, d, 0.05)
	}
}

func TestNewAnalyzer_NilStore(t *testing.T) {
	assert.Nil(t, NewAnalyzer(nil, config.Default().Coverage))
}

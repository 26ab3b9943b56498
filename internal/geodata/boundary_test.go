package geodata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/placewell/placewell/internal/model"
)

// square ring around downtown, ~0.02 degrees on a side
func squareAround(lat, lng, half float64) *geom.Polygon {
	flat := []float64{
		lng - half, lat - half,
		lng + half, lat - half,
		lng + half, lat + half,
		lng - half, lat + half,
		lng - half, lat - half,
	}
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}).SetSRID(4326)
}

func TestPolygonContains(t *testing.T) {
	p := squareAround(37.33, -121.89, 0.01)

	assert.True(t, polygonContains(p, model.Coordinate{Latitude: 37.33, Longitude: -121.89}))
	assert.False(t, polygonContains(p, model.Coordinate{Latitude: 37.36, Longitude: -121.89}))
	assert.False(t, polygonContains(p, model.Coordinate{Latitude: 37.33, Longitude: -121.80}))
}

func TestNearestTract_ContainmentWins(t *testing.T) {
	// The point sits inside tract 7002's polygon but closer to 7001's
	// representative point; containment must win.
	probe := model.Coordinate{Latitude: 37.3300, Longitude: -121.8900}
	s, err := New(
		[]model.Shelter{{ID: "SH-01", Location: probe}},
		[]model.CensusTract{
			{ID: "7001", Representative: model.Coordinate{Latitude: 37.3301, Longitude: -121.8901}},
			{
				ID:             "7002",
				Representative: model.Coordinate{Latitude: 37.4000, Longitude: -121.9500},
				Boundary:       squareAround(37.33, -121.89, 0.01),
			},
		},
		nil, nil, 5.0,
	)
	require.NoError(t, err)

	assert.Equal(t, "7002", s.NearestTract(probe).ID)
}

func TestMatchTract_SuffixMatch(t *testing.T) {
	byID := map[string]int{"500100": 0, "500200": 1}

	idx, ok := matchTract(byID, "06085500200")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = matchTract(byID, "06085999999")
	assert.False(t, ok)
}

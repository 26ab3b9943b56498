package geodata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placewell/placewell/internal/config"
	"github.com/placewell/placewell/internal/model"
)

// downtown San Jose
var downtown = model.Coordinate{Latitude: 37.3382, Longitude: -121.8863}

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(
		[]model.Shelter{
			{ID: "SH-01", Name: "Guadalupe", Location: model.Coordinate{Latitude: 37.3400, Longitude: -121.8900}, Capacity: 120, Occupancy: 95, Type: model.ShelterTypeEmergency},
			{ID: "SH-02", Name: "Monterey Rd", Location: model.Coordinate{Latitude: 37.3000, Longitude: -121.8600}, Capacity: 80, Occupancy: 60, Type: model.ShelterTypeTemporary},
			{ID: "SH-03", Name: "Berryessa", Location: model.Coordinate{Latitude: 37.3700, Longitude: -121.8500}, Capacity: 200, Occupancy: 180, Type: model.ShelterTypeTransitional},
		},
		[]model.CensusTract{
			{ID: "5001", Representative: model.Coordinate{Latitude: 37.3380, Longitude: -121.8860}, Population: 4200, UnhousedCount: 310, PovertyRate: 0.22, Density: 9800},
			{ID: "5002", Representative: model.Coordinate{Latitude: 37.3100, Longitude: -121.8700}, Population: 5100, UnhousedCount: 120, PovertyRate: 0.14, Density: 6400},
			{ID: "5003", Representative: model.Coordinate{Latitude: 37.3650, Longitude: -121.8550}, Population: 3800, UnhousedCount: 75, PovertyRate: 0.09, Density: 4100},
		},
		[]model.PITRecord{
			{Category: "sheltered", Count: 2100, Year: 2024},
			{Category: "unsheltered", Count: 4300, Year: 2024},
		},
		[]model.Facility{
			{ID: "H-01", Name: "Valley Med", Category: model.FacilityHealthcare, Location: model.Coordinate{Latitude: 37.3130, Longitude: -121.9360}},
			{ID: "G-01", Name: "Market St Grocery", Category: model.FacilityGrocery, Location: model.Coordinate{Latitude: 37.3360, Longitude: -121.8850}},
			{ID: "T-01", Name: "Diridon Station", Category: model.FacilityTransit, Location: model.Coordinate{Latitude: 37.3297, Longitude: -121.9026}},
		},
		5.0,
	)
	require.NoError(t, err)
	return s
}

func TestHaversine_SymmetricAndZero(t *testing.T) {
	a := model.Coordinate{Latitude: 37.3382, Longitude: -121.8863}
	b := model.Coordinate{Latitude: 37.7749, Longitude: -122.4194}

	ab := Haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	ba := Haversine(b.Latitude, b.Longitude, a.Latitude, a.Longitude)

	assert.Equal(t, ab, ba)
	assert.Zero(t, Haversine(a.Latitude, a.Longitude, a.Latitude, a.Longitude))

	// San Jose to San Francisco is roughly 42 miles.
	assert.InDelta(t, 42, ab, 2)
}

func TestNearestTract_ClosestRepresentative(t *testing.T) {
	s := testStore(t)
	tract := s.NearestTract(downtown)
	assert.Equal(t, "5001", tract.ID)
}

func TestNearestTract_TieBreaksOnSmallestID(t *testing.T) {
	// Two tracts at the identical representative point: smallest ID wins.
	s, err := New(
		[]model.Shelter{{ID: "SH-01", Location: downtown}},
		[]model.CensusTract{
			{ID: "9002", Representative: model.Coordinate{Latitude: 37.30, Longitude: -121.90}},
			{ID: "9001", Representative: model.Coordinate{Latitude: 37.30, Longitude: -121.90}},
		},
		nil, nil, 5.0,
	)
	require.NoError(t, err)
	assert.Equal(t, "9001", s.NearestTract(downtown).ID)
}

func TestSheltersWithin_OrderedAndSubset(t *testing.T) {
	s := testStore(t)

	within1 := s.SheltersWithin(downtown, 1.0)
	within5 := s.SheltersWithin(downtown, 5.0)

	require.NotEmpty(t, within1)
	assert.Greater(t, len(within5), len(within1))

	// Ascending by distance.
	for i := 1; i < len(within5); i++ {
		assert.LessOrEqual(t, within5[i-1].DistanceMiles, within5[i].DistanceMiles)
	}

	// Every shelter in the smaller radius appears in the larger one.
	ids := make(map[string]bool)
	for _, sd := range within5 {
		ids[sd.Shelter.ID] = true
	}
	for _, sd := range within1 {
		assert.True(t, ids[sd.Shelter.ID])
	}
}

func TestAccessors_ReturnCopies(t *testing.T) {
	s := testStore(t)

	shelters := s.Shelters()
	shelters[0].ID = "mutated"
	assert.Equal(t, "SH-01", s.Shelters()[0].ID)

	tracts := s.Tracts()
	tracts[0].Population = -1
	assert.Equal(t, 4200, s.Tracts()[0].Population)
}

func TestNearestFacility_EmptyCategory(t *testing.T) {
	s, err := New(
		[]model.Shelter{{ID: "SH-01", Location: downtown}},
		[]model.CensusTract{{ID: "5001", Representative: downtown}},
		nil, nil, 5.0,
	)
	require.NoError(t, err)

	_, _, ok := s.NearestFacility(downtown, model.FacilityHealthcare)
	assert.False(t, ok)
}

func TestInBounds(t *testing.T) {
	s := testStore(t)

	assert.True(t, s.InBounds(downtown))

	// ~50 miles north of the city box.
	far := model.Coordinate{Latitude: 38.1, Longitude: -121.8863}
	assert.False(t, s.InBounds(far))
}

func TestSummary(t *testing.T) {
	s := testStore(t)
	sum := s.Summary()
	assert.Equal(t, 2100, sum.Sheltered)
	assert.Equal(t, 4300, sum.Unsheltered)
	assert.Equal(t, 6400, sum.Total)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func validDataConfig(t *testing.T) config.DataConfig {
	t.Helper()
	dir := t.TempDir()
	return config.DataConfig{
		SheltersPath: writeFile(t, dir, "shelters.csv",
			"id,name,latitude,longitude,capacity,occupancy,type\n"+
				"SH-01,Guadalupe,37.3400,-121.8900,120,95,emergency\n"),
		TractsPath: writeFile(t, dir, "tracts.csv",
			"tract_id,latitude,longitude,population,unhoused_count,poverty_rate,population_density\n"+
				"5001,37.3380,-121.8860,4200,310,0.22,9800\n"),
		PITPath: writeFile(t, dir, "pit.csv",
			"category,count,year\nsheltered,2100,2024\nunsheltered,4300,2024\n"),
		FacilitiesPath: writeFile(t, dir, "facilities.csv",
			"id,name,category,latitude,longitude\nH-01,Valley Med,healthcare,37.3130,-121.9360\n"),
		BoundsMarginMiles: 5.0,
	}
}

func TestLoad_Success(t *testing.T) {
	s, err := Load(validDataConfig(t))
	require.NoError(t, err)
	assert.Len(t, s.Shelters(), 1)
	assert.Len(t, s.Tracts(), 1)
	assert.Equal(t, 310, s.MaxUnhoused())
}

func TestLoad_MissingFile(t *testing.T) {
	cfg := validDataConfig(t)
	cfg.SheltersPath = filepath.Join(t.TempDir(), "does-not-exist.csv")

	_, err := Load(cfg)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDataLoad))
}

func TestLoad_MissingColumn(t *testing.T) {
	cfg := validDataConfig(t)
	cfg.TractsPath = writeFile(t, t.TempDir(), "tracts.csv",
		"tract_id,latitude,longitude,population\n5001,37.3380,-121.8860,4200\n")

	_, err := Load(cfg)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDataLoad))
	assert.Contains(t, err.Error(), "unhoused_count")
}

func TestLoad_NonNumericCoordinate(t *testing.T) {
	cfg := validDataConfig(t)
	cfg.SheltersPath = writeFile(t, t.TempDir(), "shelters.csv",
		"id,name,latitude,longitude,capacity,occupancy,type\n"+
			"SH-01,Guadalupe,not-a-number,-121.8900,120,95,emergency\n")

	_, err := Load(cfg)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrDataLoad))
}

func TestLoad_AbsentFacilitiesTolerated(t *testing.T) {
	cfg := validDataConfig(t)
	cfg.FacilitiesPath = filepath.Join(t.TempDir(), "missing.csv")

	s, err := Load(cfg)
	require.NoError(t, err)

	_, _, ok := s.NearestFacility(downtown, model.FacilityGrocery)
	assert.False(t, ok)
}

package main

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/require"

	"github.com/placewell/placewell/internal/config"
	"github.com/placewell/placewell/internal/coverage"
	"github.com/placewell/placewell/internal/feasibility"
	"github.com/placewell/placewell/internal/geodata"
	"github.com/placewell/placewell/internal/model"
	"github.com/placewell/placewell/internal/scorer"
	"github.com/placewell/placewell/pkg/geocode"
)

// stubGeocoder resolves every address to a fixed coordinate, or misses.
type stubGeocoder struct {
	result *geocode.Result
}

func (s *stubGeocoder) Geocode(_ context.Context, addr string) (*geocode.Result, error) {
	if s.result == nil {
		return nil, eris.Wrapf(geocode.ErrNoMatch, "geocode: %q", addr)
	}
	return s.result, nil
}

func (s *stubGeocoder) BatchGeocode(ctx context.Context, addrs []string) ([]geocode.Result, error) {
	results := make([]geocode.Result, len(addrs))
	for i, addr := range addrs {
		r, err := s.Geocode(ctx, addr)
		if err != nil {
			results[i] = geocode.Result{Matched: false}
			continue
		}
		results[i] = *r
	}
	return results, nil
}

func testEnv(t *testing.T) *appEnv {
	t.Helper()

	shelters := []model.Shelter{
		{ID: "SH-01", Name: "Downtown Navigation Center", Location: model.Coordinate{Latitude: 37.3400, Longitude: -121.8850}, Capacity: 120, Occupancy: 110, Type: model.ShelterTypeEmergency},
		{ID: "SH-02", Name: "South Hall", Location: model.Coordinate{Latitude: 37.3100, Longitude: -121.8400}, Capacity: 80, Occupancy: 60, Type: model.ShelterTypeTransitional},
	}
	tracts := []model.CensusTract{
		{ID: "5001", Representative: model.Coordinate{Latitude: 37.3382, Longitude: -121.8863}, Population: 4800, UnhousedCount: 320, PovertyRate: 0.22, Density: 5200},
		{ID: "5002", Representative: model.Coordinate{Latitude: 37.3300, Longitude: -121.8900}, Population: 4500, UnhousedCount: 150, PovertyRate: 0.15, Density: 4100},
		{ID: "5003", Representative: model.Coordinate{Latitude: 37.3385, Longitude: -121.8230}, Population: 3800, UnhousedCount: 450, PovertyRate: 0.31, Density: 6400},
	}
	pit := []model.PITRecord{
		{Category: "sheltered", Count: 2800, Year: 2024},
		{Category: "unsheltered", Count: 3900, Year: 2024},
	}
	facilities := []model.Facility{
		{ID: "H-01", Name: "Valley Medical", Category: model.FacilityHealthcare, Location: model.Coordinate{Latitude: 37.3350, Longitude: -121.8800}},
		{ID: "G-01", Name: "Market on San Carlos", Category: model.FacilityGrocery, Location: model.Coordinate{Latitude: 37.3390, Longitude: -121.8900}},
		{ID: "T-01", Name: "Santa Clara Station", Category: model.FacilityTransit, Location: model.Coordinate{Latitude: 37.3380, Longitude: -121.8860}},
	}

	geo, err := geodata.New(shelters, tracts, pit, facilities, 5.0)
	require.NoError(t, err)

	c := config.Default()
	return &appEnv{
		Geo:         geo,
		Scorer:      scorer.New(geo, c.Scorer),
		Feasibility: feasibility.New(nil, c.Feasibility),
		Coverage:    coverage.NewAnalyzer(geo, c.Coverage),
		Geocoder: &stubGeocoder{result: &geocode.Result{
			Latitude: 37.3382, Longitude: -121.8863, Source: "stub", Matched: true,
		}},
	}
}

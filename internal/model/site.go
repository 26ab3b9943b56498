// Package model defines the domain types shared across the scoring,
// feasibility, and coverage packages.
package model

import "github.com/twpayne/go-geom"

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ShelterType categorizes a shelter site.
type ShelterType string

const (
	ShelterTypeEmergency    ShelterType = "emergency"
	ShelterTypeTemporary    ShelterType = "temporary"
	ShelterTypeTransitional ShelterType = "transitional"
	ShelterTypeSupportive   ShelterType = "supportive"
)

// Shelter is a single shelter record from the reference dataset.
// Reference records are immutable after load.
type Shelter struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Location  Coordinate  `json:"location"`
	Capacity  int         `json:"capacity"`
	Occupancy int         `json:"occupancy"`
	Type      ShelterType `json:"type"`
}

// CensusTract is a single tract record from the reference dataset.
// Boundary is nil unless tract polygons have been attached from a
// TIGER/Line shapefile; Representative is always set.
type CensusTract struct {
	ID             string        `json:"tract_id"`
	Representative Coordinate    `json:"representative"`
	Boundary       *geom.Polygon `json:"-"`
	Population     int           `json:"population"`
	UnhousedCount  int           `json:"unhoused_count"`
	PovertyRate    float64       `json:"poverty_rate"` // 0-1
	Density        float64       `json:"population_density"`
}

// PITRecord is an aggregated point-in-time count keyed by category
// (e.g. "sheltered", "unsheltered").
type PITRecord struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
	Year     int    `json:"year"`
}

// FacilityCategory identifies a service facility category used by the
// proximity metrics.
type FacilityCategory string

const (
	FacilityHealthcare FacilityCategory = "healthcare"
	FacilityGrocery    FacilityCategory = "grocery"
	FacilityTransit    FacilityCategory = "transit"
)

// Facility is a non-shelter service facility record.
type Facility struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Category FacilityCategory `json:"category"`
	Location Coordinate       `json:"location"`
}

// Package geodata loads the reference datasets and answers spatial queries
// against them. Reference data is read-only for the lifetime of a session:
// nothing mutates a Shelter, CensusTract, PITRecord, or Facility after Load
// returns, so concurrent readers need no locking.
package geodata

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/placewell/placewell/internal/config"
	"github.com/placewell/placewell/internal/model"
)

// ErrDataLoad marks a missing or malformed reference dataset. Load errors are
// fatal to session start and must be reported, never silently defaulted.
var ErrDataLoad = eris.New("geodata: malformed or missing reference dataset")

// BBox is a geographic bounding box in decimal degrees.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Contains reports whether the coordinate falls inside the box.
func (b BBox) Contains(c model.Coordinate) bool {
	return c.Latitude >= b.MinLat && c.Latitude <= b.MaxLat &&
		c.Longitude >= b.MinLng && c.Longitude <= b.MaxLng
}

// PITSummary aggregates the point-in-time records by category.
type PITSummary struct {
	Sheltered   int `json:"sheltered"`
	Unsheltered int `json:"unsheltered"`
	Total       int `json:"total"`
}

// Store indexes the loaded reference datasets.
type Store struct {
	shelters   []model.Shelter
	tracts     []model.CensusTract
	pit        []model.PITRecord
	facilities map[model.FacilityCategory][]model.Facility

	maxUnhoused int
	bounds      BBox
}

// Load parses the reference datasets named by cfg and returns a ready-to-query
// store. A missing or malformed shelters/tracts/PIT file is an ErrDataLoad;
// an absent facilities file is tolerated (every facility category will score
// zero and be reported as degraded).
func Load(cfg config.DataConfig) (*Store, error) {
	s := &Store{facilities: make(map[model.FacilityCategory][]model.Facility)}

	if err := loadCSV(cfg.SheltersPath, s.appendShelter); err != nil {
		return nil, err
	}
	if err := loadCSV(cfg.TractsPath, s.appendTract); err != nil {
		return nil, err
	}
	if err := loadCSV(cfg.PITPath, s.appendPIT); err != nil {
		return nil, err
	}
	if cfg.FacilitiesPath != "" {
		if _, err := os.Stat(cfg.FacilitiesPath); err != nil {
			zap.L().Warn("geodata: facilities dataset absent, proximity categories will be degraded",
				zap.String("path", cfg.FacilitiesPath),
			)
		} else if err := loadCSV(cfg.FacilitiesPath, s.appendFacility); err != nil {
			return nil, err
		}
	}

	if len(s.tracts) == 0 {
		return nil, eris.Wrapf(ErrDataLoad, "geodata: tract dataset %s has no rows", cfg.TractsPath)
	}
	if len(s.shelters) == 0 {
		return nil, eris.Wrapf(ErrDataLoad, "geodata: shelter dataset %s has no rows", cfg.SheltersPath)
	}

	sort.Slice(s.tracts, func(i, j int) bool { return s.tracts[i].ID < s.tracts[j].ID })
	sort.Slice(s.shelters, func(i, j int) bool { return s.shelters[i].ID < s.shelters[j].ID })

	for _, t := range s.tracts {
		if t.UnhousedCount > s.maxUnhoused {
			s.maxUnhoused = t.UnhousedCount
		}
	}
	s.bounds = tractBounds(s.tracts, cfg.BoundsMarginMiles)

	zap.L().Info("geodata: reference datasets loaded",
		zap.Int("shelters", len(s.shelters)),
		zap.Int("tracts", len(s.tracts)),
		zap.Int("pit_records", len(s.pit)),
		zap.Int("facility_categories", len(s.facilities)),
	)
	return s, nil
}

// New builds a store from in-memory records, bypassing file parsing. It
// indexes exactly as Load does, so alternate dataset sources (embedded
// tables, a remote service) can feed the same query surface.
func New(shelters []model.Shelter, tracts []model.CensusTract, pit []model.PITRecord, facilities []model.Facility, boundsMarginMiles float64) (*Store, error) {
	if len(tracts) == 0 {
		return nil, eris.Wrap(ErrDataLoad, "geodata: no tract records")
	}
	if len(shelters) == 0 {
		return nil, eris.Wrap(ErrDataLoad, "geodata: no shelter records")
	}

	s := &Store{
		shelters:   append([]model.Shelter(nil), shelters...),
		tracts:     append([]model.CensusTract(nil), tracts...),
		pit:        append([]model.PITRecord(nil), pit...),
		facilities: make(map[model.FacilityCategory][]model.Facility),
	}
	for _, f := range facilities {
		s.facilities[f.Category] = append(s.facilities[f.Category], f)
	}

	sort.Slice(s.tracts, func(i, j int) bool { return s.tracts[i].ID < s.tracts[j].ID })
	sort.Slice(s.shelters, func(i, j int) bool { return s.shelters[i].ID < s.shelters[j].ID })
	for _, t := range s.tracts {
		if t.UnhousedCount > s.maxUnhoused {
			s.maxUnhoused = t.UnhousedCount
		}
	}
	s.bounds = tractBounds(s.tracts, boundsMarginMiles)
	return s, nil
}

// Shelters returns a copy of the loaded shelter records, sorted by ID.
func (s *Store) Shelters() []model.Shelter { return slices.Clone(s.shelters) }

// Tracts returns a copy of the loaded tract records, sorted by tract ID.
func (s *Store) Tracts() []model.CensusTract { return slices.Clone(s.tracts) }

// MaxUnhoused returns the largest per-tract unhoused count in the city,
// used to scale the community unhoused component.
func (s *Store) MaxUnhoused() int { return s.maxUnhoused }

// Bounds returns the city service-area bounding box, widened by the
// configured margin.
func (s *Store) Bounds() BBox { return s.bounds }

// InBounds reports whether the coordinate falls inside the service-area box.
// Out-of-bounds coordinates are a flagged condition downstream, not an error.
func (s *Store) InBounds(c model.Coordinate) bool { return s.bounds.Contains(c) }

// PIT returns a copy of the loaded point-in-time records.
func (s *Store) PIT() []model.PITRecord { return slices.Clone(s.pit) }

// Summary aggregates the PIT records into sheltered/unsheltered totals.
func (s *Store) Summary() PITSummary {
	var sum PITSummary
	for _, r := range s.pit {
		switch strings.ToLower(r.Category) {
		case "sheltered":
			sum.Sheltered += r.Count
		case "unsheltered":
			sum.Unsheltered += r.Count
		}
		sum.Total += r.Count
	}
	return sum
}

// NearestTract resolves the tract for a coordinate. Tracts with an attached
// boundary polygon win on containment; otherwise the tract whose
// representative point is closest by great-circle distance is returned.
// Distance ties break toward the smallest tract ID, which the sorted slice
// gives for free with a strict less-than comparison.
func (s *Store) NearestTract(c model.Coordinate) model.CensusTract {
	for _, t := range s.tracts {
		if t.Boundary != nil && polygonContains(t.Boundary, c) {
			return t
		}
	}

	best := s.tracts[0]
	bestDist := Haversine(c.Latitude, c.Longitude, best.Representative.Latitude, best.Representative.Longitude)
	for _, t := range s.tracts[1:] {
		d := Haversine(c.Latitude, c.Longitude, t.Representative.Latitude, t.Representative.Longitude)
		if d < bestDist {
			best, bestDist = t, d
		}
	}
	return best
}

// SheltersWithin returns the shelters within radiusMiles of the coordinate,
// ascending by distance, ties broken by shelter ID ascending.
func (s *Store) SheltersWithin(c model.Coordinate, radiusMiles float64) []model.ShelterDistance {
	var out []model.ShelterDistance
	for _, sh := range s.shelters {
		d := Haversine(c.Latitude, c.Longitude, sh.Location.Latitude, sh.Location.Longitude)
		if d <= radiusMiles {
			out = append(out, model.ShelterDistance{Shelter: sh, DistanceMiles: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceMiles != out[j].DistanceMiles {
			return out[i].DistanceMiles < out[j].DistanceMiles
		}
		return out[i].Shelter.ID < out[j].Shelter.ID
	})
	return out
}

// NearestFacility returns the closest facility of the given category and its
// distance in miles. ok is false when the category has no records, which the
// caller reports as a degraded metric rather than an error.
func (s *Store) NearestFacility(c model.Coordinate, cat model.FacilityCategory) (model.Facility, float64, bool) {
	fs := s.facilities[cat]
	if len(fs) == 0 {
		return model.Facility{}, 0, false
	}
	best := fs[0]
	bestDist := Haversine(c.Latitude, c.Longitude, best.Location.Latitude, best.Location.Longitude)
	for _, f := range fs[1:] {
		d := Haversine(c.Latitude, c.Longitude, f.Location.Latitude, f.Location.Longitude)
		if d < bestDist {
			best, bestDist = f, d
		}
	}
	return best, bestDist, true
}

// NearestShelterDistance returns the distance in miles to the closest
// shelter. ok is false only when the shelter dataset is empty, which Load
// rejects, so callers can rely on ok in tests with hand-built stores.
func (s *Store) NearestShelterDistance(c model.Coordinate) (float64, bool) {
	if len(s.shelters) == 0 {
		return 0, false
	}
	best := math.MaxFloat64
	for _, sh := range s.shelters {
		if d := Haversine(c.Latitude, c.Longitude, sh.Location.Latitude, sh.Location.Longitude); d < best {
			best = d
		}
	}
	return best, true
}

// loadCSV opens a CSV file and feeds each record to addRow along with the
// lower-cased header. The file handle is released before returning.
func loadCSV(path string, addRow func(header map[string]int, record []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(ErrDataLoad, "geodata: open %s: %v", path, err)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	headerRow, err := r.Read()
	if err != nil {
		return eris.Wrapf(ErrDataLoad, "geodata: read header of %s: %v", path, err)
	}
	header := make(map[string]int, len(headerRow))
	for i, h := range headerRow {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}

	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return eris.Wrapf(ErrDataLoad, "geodata: read %s line %d: %v", path, line+1, err)
		}
		line++
		if err := addRow(header, record); err != nil {
			return eris.Wrapf(ErrDataLoad, "geodata: %s line %d: %v", path, line, err)
		}
	}
}

func (s *Store) appendShelter(header map[string]int, rec []string) error {
	id, err := field(header, rec, "id")
	if err != nil {
		return err
	}
	name, err := field(header, rec, "name")
	if err != nil {
		return err
	}
	loc, err := coordinateFields(header, rec)
	if err != nil {
		return err
	}
	capacity, err := intField(header, rec, "capacity")
	if err != nil {
		return err
	}
	occupancy, err := intField(header, rec, "occupancy")
	if err != nil {
		return err
	}
	typ, err := field(header, rec, "type")
	if err != nil {
		return err
	}
	s.shelters = append(s.shelters, model.Shelter{
		ID:        id,
		Name:      name,
		Location:  loc,
		Capacity:  capacity,
		Occupancy: occupancy,
		Type:      model.ShelterType(strings.ToLower(typ)),
	})
	return nil
}

func (s *Store) appendTract(header map[string]int, rec []string) error {
	id, err := field(header, rec, "tract_id")
	if err != nil {
		return err
	}
	loc, err := coordinateFields(header, rec)
	if err != nil {
		return err
	}
	population, err := intField(header, rec, "population")
	if err != nil {
		return err
	}
	unhoused, err := intField(header, rec, "unhoused_count")
	if err != nil {
		return err
	}
	poverty, err := floatField(header, rec, "poverty_rate")
	if err != nil {
		return err
	}
	density, err := floatField(header, rec, "population_density")
	if err != nil {
		return err
	}
	if poverty < 0 || poverty > 1 {
		return eris.Errorf("poverty_rate %v outside [0,1]", poverty)
	}
	s.tracts = append(s.tracts, model.CensusTract{
		ID:             id,
		Representative: loc,
		Population:     population,
		UnhousedCount:  unhoused,
		PovertyRate:    poverty,
		Density:        density,
	})
	return nil
}

func (s *Store) appendPIT(header map[string]int, rec []string) error {
	category, err := field(header, rec, "category")
	if err != nil {
		return err
	}
	count, err := intField(header, rec, "count")
	if err != nil {
		return err
	}
	year, err := intField(header, rec, "year")
	if err != nil {
		return err
	}
	s.pit = append(s.pit, model.PITRecord{Category: category, Count: count, Year: year})
	return nil
}

func (s *Store) appendFacility(header map[string]int, rec []string) error {
	id, err := field(header, rec, "id")
	if err != nil {
		return err
	}
	name, err := field(header, rec, "name")
	if err != nil {
		return err
	}
	category, err := field(header, rec, "category")
	if err != nil {
		return err
	}
	loc, err := coordinateFields(header, rec)
	if err != nil {
		return err
	}
	cat := model.FacilityCategory(strings.ToLower(category))
	switch cat {
	case model.FacilityHealthcare, model.FacilityGrocery, model.FacilityTransit:
	default:
		return eris.Errorf("unknown facility category %q", category)
	}
	s.facilities[cat] = append(s.facilities[cat], model.Facility{
		ID:       id,
		Name:     name,
		Category: cat,
		Location: loc,
	})
	return nil
}

func field(header map[string]int, rec []string, name string) (string, error) {
	idx, ok := header[name]
	if !ok {
		return "", eris.Errorf("missing required column %q", name)
	}
	if idx >= len(rec) {
		return "", eris.Errorf("short row, no value for column %q", name)
	}
	v := strings.TrimSpace(rec[idx])
	if v == "" {
		return "", eris.Errorf("empty value for column %q", name)
	}
	return v, nil
}

func intField(header map[string]int, rec []string, name string) (int, error) {
	raw, err := field(header, rec, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Errorf("column %q: %q is not an integer", name, raw)
	}
	return v, nil
}

func floatField(header map[string]int, rec []string, name string) (float64, error) {
	raw, err := field(header, rec, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Errorf("column %q: %q is not numeric", name, raw)
	}
	return v, nil
}

func coordinateFields(header map[string]int, rec []string) (model.Coordinate, error) {
	lat, err := floatField(header, rec, "latitude")
	if err != nil {
		return model.Coordinate{}, err
	}
	lon, err := floatField(header, rec, "longitude")
	if err != nil {
		return model.Coordinate{}, err
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return model.Coordinate{}, eris.Errorf("coordinate (%v, %v) outside valid range", lat, lon)
	}
	return model.Coordinate{Latitude: lat, Longitude: lon}, nil
}

// tractBounds computes the bounding box of the tract representative points,
// widened by marginMiles on every side.
func tractBounds(tracts []model.CensusTract, marginMiles float64) BBox {
	b := BBox{
		MinLat: tracts[0].Representative.Latitude,
		MaxLat: tracts[0].Representative.Latitude,
		MinLng: tracts[0].Representative.Longitude,
		MaxLng: tracts[0].Representative.Longitude,
	}
	for _, t := range tracts[1:] {
		b.MinLat = math.Min(b.MinLat, t.Representative.Latitude)
		b.MaxLat = math.Max(b.MaxLat, t.Representative.Latitude)
		b.MinLng = math.Min(b.MinLng, t.Representative.Longitude)
		b.MaxLng = math.Max(b.MaxLng, t.Representative.Longitude)
	}

	// One degree of latitude is ~69 miles; longitude shrinks by cos(lat).
	latMargin := marginMiles / 69.0
	midLat := (b.MinLat + b.MaxLat) / 2
	lngMargin := marginMiles / (69.0 * math.Cos(radians(midLat)))

	b.MinLat -= latMargin
	b.MaxLat += latMargin
	b.MinLng -= lngMargin
	b.MaxLng += lngMargin
	return b
}

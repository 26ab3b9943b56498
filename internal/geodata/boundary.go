package geodata

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/placewell/placewell/internal/model"
)

// LoadBoundaries attaches tract boundary polygons from a TIGER/Line census
// tract shapefile. Records are matched when the shapefile GEOID ends with the
// tract ID (local datasets carry the short tract number, TIGER carries the
// full state+county+tract GEOID). Unmatched shapefile records are skipped;
// tracts without a match keep representative-point resolution.
func (s *Store) LoadBoundaries(path string) error {
	reader, err := shp.Open(path)
	if err != nil {
		return eris.Wrapf(ErrDataLoad, "geodata: open shapefile %s: %v", path, err)
	}
	defer func() { _ = reader.Close() }()

	geoidIdx := fieldIndex(reader, "GEOID")
	if geoidIdx < 0 {
		return eris.Wrapf(ErrDataLoad, "geodata: shapefile %s has no GEOID field", path)
	}

	byID := make(map[string]int, len(s.tracts))
	for i, t := range s.tracts {
		byID[t.ID] = i
	}

	var attached int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}

		geoid := strings.TrimSpace(reader.Attribute(geoidIdx))
		idx, ok := matchTract(byID, geoid)
		if !ok {
			continue
		}

		g := polygonToGeom(poly)
		if g == nil {
			zap.L().Debug("geodata: skipping degenerate boundary", zap.String("geoid", geoid))
			continue
		}
		s.tracts[idx].Boundary = g
		attached++
	}

	zap.L().Info("geodata: tract boundaries attached",
		zap.String("path", path),
		zap.Int("attached", attached),
		zap.Int("tracts", len(s.tracts)),
	)
	return nil
}

// matchTract finds the tract index for a shapefile GEOID, by exact match
// first, then by suffix.
func matchTract(byID map[string]int, geoid string) (int, bool) {
	if idx, ok := byID[geoid]; ok {
		return idx, true
	}
	for id, idx := range byID {
		if strings.HasSuffix(geoid, id) {
			return idx, true
		}
	}
	return 0, false
}

// polygonToGeom converts the first ring of a shapefile polygon to a go-geom
// polygon with SRID 4326. Interior rings (holes) are rare in tract data and
// are ignored for containment purposes.
func polygonToGeom(p *shp.Polygon) *geom.Polygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	end := int32(len(p.Points))
	if p.NumParts > 1 {
		end = p.Parts[1]
	}
	if end-p.Parts[0] < 3 {
		return nil
	}

	flat := make([]float64, 0, (end-p.Parts[0])*2)
	for j := p.Parts[0]; j < end; j++ {
		flat = append(flat, p.Points[j].X, p.Points[j].Y)
	}
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}).SetSRID(4326)
}

// fieldIndex returns the index of a named field in the shapefile, or -1.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// polygonContains reports whether the coordinate lies inside the polygon's
// exterior ring, by ray casting in planar lng/lat space. Adequate at tract
// scale where curvature is negligible.
func polygonContains(p *geom.Polygon, c model.Coordinate) bool {
	if p == nil || p.NumLinearRings() == 0 {
		return false
	}
	ring := p.LinearRing(0).FlatCoords()
	n := len(ring) / 2
	if n < 3 {
		return false
	}

	x, y := c.Longitude, c.Latitude
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[2*i], ring[2*i+1]
		xj, yj := ring[2*j], ring[2*j+1]
		if (yi > y) != (yj > y) &&
			x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

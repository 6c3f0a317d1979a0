package geo

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"os"
)

// Bounds is a latitude/longitude bounding box.
type Bounds struct {
	MinLat, MinLng float64
	MaxLat, MaxLng float64
}

func (b Bounds) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ApproxBounds is the approximate bounding box of Algeria, used whenever no
// exact boundary polygon is available.
var ApproxBounds = Bounds{MinLat: 18.9681, MinLng: -8.6675, MaxLat: 37.0937, MaxLng: 11.9795}

type point struct {
	lat, lng float64
}

// Boundary validates coordinates against the configured planting region:
// an exact GeoJSON polygon when one loaded, otherwise its bounding box.
type Boundary struct {
	rings [][]point
	bbox  Bounds
	exact bool
}

// Simplified national boundary, used when no polygon file is configured.
//
//go:embed dza.geo.json
var defaultRegion []byte

// Default returns the embedded region boundary. A parse failure falls back
// to the approximate bounding box rather than failing.
func Default() *Boundary {
	b, err := FromGeoJSON(defaultRegion)
	if err != nil {
		log.Printf("[Geo] Embedded boundary parse failed, using approximate bounds: %v", err)
		return Approximate()
	}
	return b
}

// Approximate returns a bounding-box-only boundary.
func Approximate() *Boundary {
	return &Boundary{bbox: ApproxBounds}
}

// Load reads a boundary polygon from a GeoJSON file.
func Load(path string) (*Boundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read boundary file: %w", err)
	}
	return FromGeoJSON(data)
}

// Geometry shapes accepted: a bare Polygon/MultiPolygon geometry, a
// Feature, or a FeatureCollection (the first feature is used).
type geoJSON struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
	Geometry    *geoJSON        `json:"geometry"`
	Features    []geoJSON       `json:"features"`
}

// FromGeoJSON parses a Polygon or MultiPolygon boundary. Coordinates follow
// the GeoJSON convention: [lng, lat].
func FromGeoJSON(data []byte) (*Boundary, error) {
	var g geoJSON
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	geom := &g
	if g.Type == "FeatureCollection" {
		if len(g.Features) == 0 {
			return nil, fmt.Errorf("FeatureCollection has no features")
		}
		geom = g.Features[0].Geometry
	} else if g.Type == "Feature" {
		geom = g.Geometry
	}
	if geom == nil {
		return nil, fmt.Errorf("missing geometry")
	}

	var polys [][][][2]float64
	switch geom.Type {
	case "Polygon":
		var rings [][][2]float64
		if err := json.Unmarshal(geom.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("failed to parse polygon coordinates: %w", err)
		}
		polys = append(polys, rings)
	case "MultiPolygon":
		if err := json.Unmarshal(geom.Coordinates, &polys); err != nil {
			return nil, fmt.Errorf("failed to parse multipolygon coordinates: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", geom.Type)
	}

	b := &Boundary{exact: true}
	first := true
	for _, rings := range polys {
		for _, ring := range rings {
			if len(ring) < 3 {
				continue
			}
			pts := make([]point, 0, len(ring))
			for _, c := range ring {
				p := point{lat: c[1], lng: c[0]}
				pts = append(pts, p)
				if first {
					b.bbox = Bounds{MinLat: p.lat, MinLng: p.lng, MaxLat: p.lat, MaxLng: p.lng}
					first = false
					continue
				}
				if p.lat < b.bbox.MinLat {
					b.bbox.MinLat = p.lat
				}
				if p.lat > b.bbox.MaxLat {
					b.bbox.MaxLat = p.lat
				}
				if p.lng < b.bbox.MinLng {
					b.bbox.MinLng = p.lng
				}
				if p.lng > b.bbox.MaxLng {
					b.bbox.MaxLng = p.lng
				}
			}
			b.rings = append(b.rings, pts)
		}
	}
	if len(b.rings) == 0 {
		return nil, fmt.Errorf("boundary contains no usable rings")
	}
	return b, nil
}

// Exact reports whether an actual polygon is loaded (false means bounding
// box only).
func (b *Boundary) Exact() bool {
	return b.exact
}

// BBox returns the boundary's bounding box.
func (b *Boundary) BBox() Bounds {
	return b.bbox
}

// Contains reports whether the coordinates fall inside the region. With an
// exact polygon this is an even-odd ray cast over all rings, so holes are
// honoured; otherwise the bounding box decides.
func (b *Boundary) Contains(lat, lng float64) bool {
	if !b.exact {
		return b.bbox.Contains(lat, lng)
	}
	if !b.bbox.Contains(lat, lng) {
		return false
	}
	inside := false
	for _, ring := range b.rings {
		n := len(ring)
		for i, j := 0, n-1; i < n; j, i = i, i+1 {
			pi, pj := ring[i], ring[j]
			if (pi.lat > lat) != (pj.lat > lat) &&
				lng < (pj.lng-pi.lng)*(lat-pi.lat)/(pj.lat-pi.lat)+pi.lng {
				inside = !inside
			}
		}
	}
	return inside
}

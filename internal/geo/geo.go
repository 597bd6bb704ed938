package geo

import (
	"errors"
	"fmt"
	"math"
)

const earthRadiusMeters = 6371000

// MaxPlanarLatitude bounds the latitude range where the planar polygon test
// is considered accurate enough for alerting.
const MaxPlanarLatitude = 80.0

// ErrInvalidRegion reports a region that cannot be matched against, such as a
// polygon with fewer than three vertices.
var ErrInvalidRegion = errors.New("invalid region")

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Valid reports whether the point holds finite, in-range coordinates.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func (p Point) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.Lat, p.Lng)
}

// DistanceMeters returns the haversine great-circle distance between a and b.
func DistanceMeters(a, b Point) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// PointInCircle reports whether point lies within radiusMeters of center.
// The boundary is inclusive.
func PointInCircle(point, center Point, radiusMeters float64) bool {
	return DistanceMeters(point, center) <= radiusMeters
}

// PointInPolygon runs an even-odd ray cast of point against the implicitly
// closed vertex ring. It returns ErrInvalidRegion for fewer than three
// vertices instead of guessing.
func PointInPolygon(point Point, vertices []Point) (bool, error) {
	if len(vertices) < 3 {
		return false, fmt.Errorf("%w: polygon has %d vertices, need at least 3", ErrInvalidRegion, len(vertices))
	}
	inside := false
	j := len(vertices) - 1
	for i := 0; i < len(vertices); i++ {
		vi, vj := vertices[i], vertices[j]
		if (vi.Lat > point.Lat) != (vj.Lat > point.Lat) {
			crossLng := (vj.Lng-vi.Lng)*(point.Lat-vi.Lat)/(vj.Lat-vi.Lat) + vi.Lng
			if point.Lng < crossLng {
				inside = !inside
			}
		}
		j = i
	}
	return inside, nil
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

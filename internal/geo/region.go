package geo

import (
	"fmt"
	"math"
)

// Shape identifies how a region is encoded.
type Shape string

const (
	ShapeCircle  Shape = "circle"
	ShapePolygon Shape = "polygon"
)

// Region is a circle or polygon. Only the fields of the selected shape are
// meaningful.
type Region struct {
	Shape        Shape   `json:"shape" yaml:"shape"`
	Center       Point   `json:"center" yaml:"center"`
	RadiusMeters float64 `json:"radius_meters,omitempty" yaml:"radius_meters,omitempty"`
	Vertices     []Point `json:"vertices,omitempty" yaml:"vertices,omitempty"`
}

// Circle builds a circular region.
func Circle(center Point, radiusMeters float64) Region {
	return Region{Shape: ShapeCircle, Center: center, RadiusMeters: radiusMeters}
}

// Polygon builds a polygonal region from an open vertex ring.
func Polygon(vertices ...Point) Region {
	cp := make([]Point, len(vertices))
	copy(cp, vertices)
	return Region{Shape: ShapePolygon, Vertices: cp}
}

// Validate rejects regions that must never be stored or matched.
func (r Region) Validate() error {
	switch r.Shape {
	case ShapeCircle:
		if !r.Center.Valid() {
			return fmt.Errorf("%w: circle center %s out of range", ErrInvalidRegion, r.Center)
		}
		if math.IsNaN(r.RadiusMeters) || r.RadiusMeters <= 0 {
			return fmt.Errorf("%w: circle radius must be positive, got %v", ErrInvalidRegion, r.RadiusMeters)
		}
	case ShapePolygon:
		if len(r.Vertices) < 3 {
			return fmt.Errorf("%w: polygon has %d vertices, need at least 3", ErrInvalidRegion, len(r.Vertices))
		}
		for i, v := range r.Vertices {
			if !v.Valid() {
				return fmt.Errorf("%w: polygon vertex %d %s out of range", ErrInvalidRegion, i, v)
			}
		}
	default:
		return fmt.Errorf("%w: unknown shape %q", ErrInvalidRegion, r.Shape)
	}
	return nil
}

// Contains reports whether point falls inside the region.
func (r Region) Contains(point Point) (bool, error) {
	switch r.Shape {
	case ShapeCircle:
		if err := r.Validate(); err != nil {
			return false, err
		}
		return PointInCircle(point, r.Center, r.RadiusMeters), nil
	case ShapePolygon:
		return PointInPolygon(point, r.Vertices)
	default:
		return false, fmt.Errorf("%w: unknown shape %q", ErrInvalidRegion, r.Shape)
	}
}

// Centroid returns the vertex average of a polygon, which lies inside any
// convex polygon. Circles return their center.
func (r Region) Centroid() Point {
	if r.Shape == ShapeCircle || len(r.Vertices) == 0 {
		return r.Center
	}
	var lat, lng float64
	for _, v := range r.Vertices {
		lat += v.Lat
		lng += v.Lng
	}
	n := float64(len(r.Vertices))
	return Point{Lat: lat / n, Lng: lng / n}
}

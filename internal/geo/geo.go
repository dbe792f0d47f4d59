// Package geo provides the distance and centroid primitives the graph is built on.
package geo

import (
	"math"

	"github.com/persistorai/navgraph/internal/models"
)

// EarthRadius is the mean Earth radius in meters used by Distance.
const EarthRadius = 6371000.0

// areaEpsilon is the absolute shoelace area (deg²) below which a ring is
// treated as degenerate.
const areaEpsilon = 1e-18

// Distance returns the great-circle (haversine) distance between two points in meters.
func Distance(a, b models.Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	if h > 1 {
		h = 1
	}

	return 2 * EarthRadius * math.Asin(math.Sqrt(h))
}

// Centroid returns the area-weighted centroid of a coordinate ring.
// Degenerate rings (fewer than three points, collinear, zero area) fall back
// to the arithmetic mean of the distinct vertices. An empty ring yields the zero Point.
func Centroid(ring []models.Point) models.Point {
	pts := openRing(ring)
	if len(pts) == 0 {
		return models.Point{}
	}

	if len(pts) < 3 {
		return mean(pts)
	}

	// Shoelace over (x=lng, y=lat), relative to the first vertex for precision.
	ox, oy := pts[0].Lng, pts[0].Lat
	var area2, cx, cy float64

	for i := range pts {
		j := (i + 1) % len(pts)
		x0, y0 := pts[i].Lng-ox, pts[i].Lat-oy
		x1, y1 := pts[j].Lng-ox, pts[j].Lat-oy
		cross := x0*y1 - x1*y0
		area2 += cross
		cx += (x0 + x1) * cross
		cy += (y0 + y1) * cross
	}

	if math.Abs(area2/2) < areaEpsilon || math.IsNaN(area2) {
		return mean(pts)
	}

	return models.Point{
		Lat: oy + cy/(3*area2),
		Lng: ox + cx/(3*area2),
	}
}

// ValidPoint reports whether p is a finite coordinate within geographic bounds.
func ValidPoint(p models.Point) bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}

	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// ValidRing reports whether ring has at least three valid points.
func ValidRing(ring []models.Point) bool {
	if len(openRing(ring)) < 3 {
		return false
	}

	for _, p := range ring {
		if !ValidPoint(p) {
			return false
		}
	}

	return true
}

// Bounds is an axis-aligned bounding box in degrees.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MinLng float64 `json:"minLng"`
	MaxLat float64 `json:"maxLat"`
	MaxLng float64 `json:"maxLng"`
}

// BoundingBox returns the bounds of points. ok is false for empty input.
func BoundingBox(points []models.Point) (b Bounds, ok bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}

	b = Bounds{MinLat: points[0].Lat, MaxLat: points[0].Lat, MinLng: points[0].Lng, MaxLng: points[0].Lng}
	for _, p := range points[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLng = math.Min(b.MinLng, p.Lng)
		b.MaxLng = math.Max(b.MaxLng, p.Lng)
	}

	return b, true
}

// MetersPerDegreeLat is the length of one degree of latitude on the haversine sphere.
const MetersPerDegreeLat = EarthRadius * math.Pi / 180

// MetersPerDegreeLng returns the length of one degree of longitude at lat.
func MetersPerDegreeLng(lat float64) float64 {
	return MetersPerDegreeLat * math.Cos(lat*math.Pi/180)
}

// openRing drops a closing vertex equal to the first one.
func openRing(ring []models.Point) []models.Point {
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		return ring[:len(ring)-1]
	}

	return ring
}

func mean(pts []models.Point) models.Point {
	var lat, lng float64
	for _, p := range pts {
		lat += p.Lat
		lng += p.Lng
	}

	n := float64(len(pts))

	return models.Point{Lat: lat / n, Lng: lng / n}
}

// Package geo holds the great-circle primitives shared by the signal
// registry, the waypoint sequencer and the progress tracker.
package geo

import (
	"math"

	"github.com/ukydev/rapidroute-sim/internal/models"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceKm returns the haversine great-circle distance between a and b in kilometers.
func DistanceKm(a, b models.Coordinate) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	s := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push s a hair outside [0, 1] for antipodal points.
	s = math.Min(1, math.Max(0, s))
	c := 2 * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
	return EarthRadiusKm * c
}

// Bounds is a lat/lon box in decimal degrees.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Min returns the lower corner as [lon, lat].
func (b Bounds) Min() [2]float64 {
	return [2]float64{b.MinLon, b.MinLat}
}

// Max returns the upper corner as [lon, lat].
func (b Bounds) Max() [2]float64 {
	return [2]float64{b.MaxLon, b.MaxLat}
}

// BoundingBox returns a box that contains every point within radiusKm of center.
// It is conservative: callers still confirm candidates with DistanceKm.
// Near the poles the longitude span widens to the full range.
func BoundingBox(center models.Coordinate, radiusKm float64) Bounds {
	latOffset := radiusKm / EarthRadiusKm * 180 / math.Pi
	cosLat := math.Cos(radians(center.Lat))

	lonOffset := 180.0
	if cosLat > 1e-9 {
		lonOffset = math.Min(180, latOffset/cosLat)
	}
	// Pad slightly so points sitting exactly on the radius are never dropped.
	latOffset *= 1.01
	lonOffset = math.Min(180, lonOffset*1.01)

	return Bounds{
		MinLat: math.Max(-90, center.Lat-latOffset),
		MaxLat: math.Min(90, center.Lat+latOffset),
		MinLon: center.Lon - lonOffset,
		MaxLon: center.Lon + lonOffset,
	}
}

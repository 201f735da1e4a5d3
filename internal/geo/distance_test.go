package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ukydev/rapidroute-sim/internal/models"
)

func TestDistanceKm_IdenticalPoints(t *testing.T) {
	points := []models.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 22.308333, Lon: 73.165278},
		{Lat: -89.9, Lon: 179.9},
		{Lat: 90, Lon: -180},
	}
	for _, p := range points {
		assert.InDelta(t, 0, DistanceKm(p, p), 1e-9)
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	a := models.Coordinate{Lat: 22.308333, Lon: 73.165278}
	b := models.Coordinate{Lat: 22.280444, Lon: 73.153194}
	assert.InDelta(t, DistanceKm(a, b), DistanceKm(b, a), 1e-12)
}

func TestDistanceKm_KnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b models.Coordinate
		want float64
		tol  float64
	}{
		// One degree of longitude on the equator is R*pi/180.
		{"one degree on equator", models.Coordinate{Lat: 0, Lon: 0}, models.Coordinate{Lat: 0, Lon: 1}, 111.19492664, 1e-6},
		{"london to paris", models.Coordinate{Lat: 51.5074, Lon: -0.1278}, models.Coordinate{Lat: 48.8566, Lon: 2.3522}, 343.5, 1.0},
		{"antipodal", models.Coordinate{Lat: 0, Lon: 0}, models.Coordinate{Lat: 0, Lon: 180}, 20015.086796, 1e-3},
		{"pole to pole", models.Coordinate{Lat: 90, Lon: 0}, models.Coordinate{Lat: -90, Lon: 0}, 20015.086796, 1e-3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DistanceKm(tt.a, tt.b), tt.tol)
		})
	}
}

func TestDistanceKm_TriangleInequality(t *testing.T) {
	a := models.Coordinate{Lat: 22.3083, Lon: 73.1652}
	b := models.Coordinate{Lat: 22.3155, Lon: 73.1380}
	c := models.Coordinate{Lat: 22.2804, Lon: 73.1531}
	assert.LessOrEqual(t, DistanceKm(a, c), DistanceKm(a, b)+DistanceKm(b, c)+1e-9)
}

func TestBoundingBox_ContainsRadius(t *testing.T) {
	center := models.Coordinate{Lat: 22.3083, Lon: 73.1652}
	box := BoundingBox(center, 0.1)

	// Points exactly 0.1 km north and east must sit inside the box.
	north := models.Coordinate{Lat: center.Lat + 0.1/EarthRadiusKm*180/3.141592653589793, Lon: center.Lon}
	assert.True(t, north.Lat <= box.MaxLat)
	assert.True(t, box.MinLon < center.Lon && center.Lon < box.MaxLon)
	assert.Less(t, box.MaxLat-box.MinLat, 0.01)
}

func TestBoundingBox_PoleWidensLongitude(t *testing.T) {
	box := BoundingBox(models.Coordinate{Lat: 90, Lon: 0}, 1)
	assert.Equal(t, 90.0, box.MaxLat)
	assert.Equal(t, -180.0, box.MinLon)
	assert.Equal(t, 180.0, box.MaxLon)
}

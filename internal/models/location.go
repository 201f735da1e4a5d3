package models

import (
	"encoding/json"
	"fmt"
)

// Coordinate represents a geographical location with latitude and longitude coordinates.
// It is rendered in JSON as a [lat, lon] pair, which is the shape the map viewer expects.
type Coordinate struct {
	Lat float64 `bson:"lat"`
	Lon float64 `bson:"lon"`
}

// MarshalJSON encodes the coordinate as [lat, lon].
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Lon})
}

// UnmarshalJSON decodes a [lat, lon] pair.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("coordinate: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinate: expected [lat, lon], got %d values", len(pair))
	}
	c.Lat, c.Lon = pair[0], pair[1]
	return nil
}

// Valid reports whether the coordinate lies within the WGS84 range.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

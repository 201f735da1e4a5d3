// Package telemetry encodes the plain-text position frame polled by
// embedded clients.
package telemetry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ukydev/rapidroute-sim/internal/models"
)

const fieldCount = 7

// Frame is one telemetry sample. Signal ids are 0 when unknown.
type Frame struct {
	Current  models.Coordinate
	Previous models.Coordinate
	StartID  int
	EndID    int
	NextID   int
}

// Encode renders f as "curLat,curLon,prevLat,prevLon,start,end,next" with
// coordinates fixed at six decimal places.
func Encode(f Frame) string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f,%d,%d,%d",
		f.Current.Lat, f.Current.Lon,
		f.Previous.Lat, f.Previous.Lon,
		f.StartID, f.EndID, f.NextID)
}

// Decode parses a frame produced by Encode.
func Decode(s string) (Frame, error) {
	fields := strings.Split(strings.TrimSpace(s), ",")
	if len(fields) != fieldCount {
		return Frame{}, fmt.Errorf("telemetry frame has %d fields, want %d", len(fields), fieldCount)
	}

	var coords [4]float64
	for i := range coords {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return Frame{}, fmt.Errorf("telemetry field %d: %w", i+1, err)
		}
		coords[i] = v
	}
	var ids [3]int
	for i := range ids {
		v, err := strconv.Atoi(fields[4+i])
		if err != nil {
			return Frame{}, fmt.Errorf("telemetry field %d: %w", 5+i, err)
		}
		ids[i] = v
	}

	return Frame{
		Current:  models.Coordinate{Lat: coords[0], Lon: coords[1]},
		Previous: models.Coordinate{Lat: coords[2], Lon: coords[3]},
		StartID:  ids[0],
		EndID:    ids[1],
		NextID:   ids[2],
	}, nil
}

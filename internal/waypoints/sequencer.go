// Package waypoints derives the ordered list of known signals a route passes near.
package waypoints

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tidwall/rtree"

	"github.com/ukydev/rapidroute-sim/internal/geo"
	"github.com/ukydev/rapidroute-sim/internal/models"
	"github.com/ukydev/rapidroute-sim/internal/signals"
)

// ErrUnknownSignal reports a start or end name missing from the registry.
var ErrUnknownSignal = errors.New("unknown signal")

// Sequencer computes waypoint sequences against a fixed registry. The spatial
// index only narrows candidates; selection order always follows the registry.
type Sequencer struct {
	registry    *signals.Registry
	proximityKm float64
	index       rtree.RTreeG[int] // signal id
}

// NewSequencer indexes every registered signal.
func NewSequencer(registry *signals.Registry, proximityKm float64) (*Sequencer, error) {
	if registry == nil {
		return nil, errors.New("waypoints: nil registry")
	}
	if proximityKm <= 0 {
		return nil, fmt.Errorf("waypoints: proximity must be positive, got %v", proximityKm)
	}
	s := &Sequencer{registry: registry, proximityKm: proximityKm}
	for _, sig := range registry.All() {
		pt := [2]float64{sig.Location.Lon, sig.Location.Lat}
		s.index.Insert(pt, pt, sig.ID)
	}
	return s, nil
}

// ProximityKm returns the distance under which a signal counts as on the path.
func (s *Sequencer) ProximityKm() float64 {
	return s.proximityKm
}

// Sequence returns [start, signals near path ordered by distance from start..., end]
// with duplicates removed, keeping the first occurrence.
func (s *Sequencer) Sequence(path []models.Coordinate, startName, endName string) ([]models.Signal, error) {
	start, err := s.registry.LookupByName(startName)
	if err != nil {
		return nil, fmt.Errorf("%w: start %q", ErrUnknownSignal, startName)
	}
	end, err := s.registry.LookupByName(endName)
	if err != nil {
		return nil, fmt.Errorf("%w: end %q", ErrUnknownSignal, endName)
	}

	near := s.nearPath(path)

	selected := make([]models.Signal, 0, len(near))
	for _, sig := range s.registry.All() {
		if near[sig.ID] {
			selected = append(selected, sig)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return geo.DistanceKm(start.Location, selected[i].Location) < geo.DistanceKm(start.Location, selected[j].Location)
	})

	sequence := make([]models.Signal, 0, len(selected)+2)
	sequence = append(sequence, start)
	for _, sig := range selected {
		if sig.Name == start.Name || sig.Name == end.Name {
			continue
		}
		sequence = append(sequence, sig)
	}
	sequence = append(sequence, end)

	return dedupe(sequence), nil
}

// nearPath returns the ids of signals within proximity of at least one path point.
func (s *Sequencer) nearPath(path []models.Coordinate) map[int]bool {
	near := make(map[int]bool)
	for _, pt := range path {
		box := geo.BoundingBox(pt, s.proximityKm)
		s.search(box, func(id int) {
			if near[id] {
				return
			}
			sig, err := s.registry.LookupByID(id)
			if err != nil {
				return
			}
			if geo.DistanceKm(pt, sig.Location) < s.proximityKm {
				near[id] = true
			}
		})
	}
	return near
}

// search visits every indexed id inside box, splitting boxes that cross the antimeridian.
func (s *Sequencer) search(box geo.Bounds, visit func(id int)) {
	iter := func(_, _ [2]float64, id int) bool {
		visit(id)
		return true
	}
	switch {
	case box.MinLon < -180:
		s.index.Search([2]float64{box.MinLon + 360, box.MinLat}, [2]float64{180, box.MaxLat}, iter)
		s.index.Search([2]float64{-180, box.MinLat}, box.Max(), iter)
	case box.MaxLon > 180:
		s.index.Search(box.Min(), [2]float64{180, box.MaxLat}, iter)
		s.index.Search([2]float64{-180, box.MinLat}, [2]float64{box.MaxLon - 360, box.MaxLat}, iter)
	default:
		s.index.Search(box.Min(), box.Max(), iter)
	}
}

func dedupe(in []models.Signal) []models.Signal {
	seen := make(map[string]struct{}, len(in))
	out := make([]models.Signal, 0, len(in))
	for _, sig := range in {
		if _, ok := seen[sig.Name]; ok {
			continue
		}
		seen[sig.Name] = struct{}{}
		out = append(out, sig)
	}
	return out
}

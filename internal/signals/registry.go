// Package signals holds the static catalogue of known traffic signals and the
// deterministic name <-> id mapping shared with the telemetry client.
package signals

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ukydev/rapidroute-sim/internal/models"
)

// ErrNotFound is returned when no signal has the requested id or name.
var ErrNotFound = errors.New("signal not found")

// Registry is the immutable signal catalogue. Identifiers are assigned by
// sorting names in byte order and numbering from 1, so the mapping depends only
// on the set of names. A Registry is safe for concurrent reads.
type Registry struct {
	byID   []models.Signal // index i holds id i+1
	byName map[string]models.Signal
}

// NewRegistry indexes the catalogue.
func NewRegistry(catalogue map[string]models.Coordinate) (*Registry, error) {
	names := make([]string, 0, len(catalogue))
	for name, loc := range catalogue {
		if name == "" {
			return nil, errors.New("signal catalogue: empty signal name")
		}
		if !loc.Valid() {
			return nil, fmt.Errorf("signal catalogue: %q has invalid coordinate %v,%v", name, loc.Lat, loc.Lon)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	r := &Registry{
		byID:   make([]models.Signal, 0, len(names)),
		byName: make(map[string]models.Signal, len(names)),
	}
	for i, name := range names {
		s := models.Signal{ID: i + 1, Name: name, Location: catalogue[name]}
		r.byID = append(r.byID, s)
		r.byName[name] = s
	}
	return r, nil
}

// Len returns the number of registered signals.
func (r *Registry) Len() int {
	return len(r.byID)
}

// LookupByID returns the signal with the given id.
func (r *Registry) LookupByID(id int) (models.Signal, error) {
	if id < 1 || id > len(r.byID) {
		return models.Signal{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return r.byID[id-1], nil
}

// LookupByName returns the signal with the given name.
func (r *Registry) LookupByName(name string) (models.Signal, error) {
	s, ok := r.byName[name]
	if !ok {
		return models.Signal{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return s, nil
}

// IDOf returns the id for name, or 0 when the name is empty or unknown.
// Zero is the "unknown" value on the telemetry wire.
func (r *Registry) IDOf(name string) int {
	if s, ok := r.byName[name]; ok {
		return s.ID
	}
	return 0
}

// NameByID returns a copy of the id -> name mapping.
func (r *Registry) NameByID() map[int]string {
	out := make(map[int]string, len(r.byID))
	for _, s := range r.byID {
		out[s.ID] = s.Name
	}
	return out
}

// All returns every signal in id order. This is the registry's iteration order.
func (r *Registry) All() []models.Signal {
	out := make([]models.Signal, len(r.byID))
	copy(out, r.byID)
	return out
}

package models

import (
	"errors"
	"fmt"
)

// ErrInvalidRoute wraps every Route validation failure.
var ErrInvalidRoute = errors.New("invalid route")

// Route is a dense path from the route provider plus the sparse, ordered
// sequence of known signals that path passes near. Routes are immutable once
// built and may be shared between goroutines for reads.
type Route struct {
	Start     Signal
	End       Signal
	Points    []Coordinate
	Waypoints []Signal
}

// NewRoute validates and builds a Route. Points and waypoints are copied.
func NewRoute(start, end Signal, points []Coordinate, waypoints []Signal) (*Route, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no points", ErrInvalidRoute)
	}
	seen := make(map[string]struct{}, len(waypoints))
	for _, w := range waypoints {
		if _, dup := seen[w.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate waypoint %q", ErrInvalidRoute, w.Name)
		}
		seen[w.Name] = struct{}{}
	}
	if len(waypoints) > 0 {
		if waypoints[0].Name != start.Name {
			return nil, fmt.Errorf("%w: first waypoint %q is not the start %q", ErrInvalidRoute, waypoints[0].Name, start.Name)
		}
		if start.Name != end.Name && waypoints[len(waypoints)-1].Name != end.Name {
			return nil, fmt.Errorf("%w: last waypoint %q is not the end %q", ErrInvalidRoute, waypoints[len(waypoints)-1].Name, end.Name)
		}
	}

	r := &Route{
		Start:     start,
		End:       end,
		Points:    make([]Coordinate, len(points)),
		Waypoints: make([]Signal, len(waypoints)),
	}
	copy(r.Points, points)
	copy(r.Waypoints, waypoints)
	return r, nil
}

// WaypointNames returns the waypoint names in route order.
func (r *Route) WaypointNames() []string {
	return SignalNames(r.Waypoints)
}

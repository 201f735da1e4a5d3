package simulation

import (
	"github.com/ukydev/rapidroute-sim/internal/geo"
	"github.com/ukydev/rapidroute-sim/internal/models"
)

// Passed is the ordered set of waypoint names a vehicle has reached.
// Names are only ever added. The zero value is ready to use.
type Passed struct {
	order []string
	seen  map[string]struct{}
}

// Add records name and reports whether it was new.
func (p *Passed) Add(name string) bool {
	if p.seen == nil {
		p.seen = make(map[string]struct{})
	}
	if _, ok := p.seen[name]; ok {
		return false
	}
	p.seen[name] = struct{}{}
	p.order = append(p.order, name)
	return true
}

func (p *Passed) Has(name string) bool {
	_, ok := p.seen[name]
	return ok
}

func (p *Passed) Len() int {
	return len(p.order)
}

// Names returns the passed names in arrival order.
func (p *Passed) Names() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// NextWaypoint returns the first waypoint of route not yet in passed.
// Every unpassed waypoint strictly inside radiusKm of current is marked
// passed along the way, so one call can skip several. Once all waypoints
// are passed the route's end signal is returned.
//
// A waypoint the vehicle went by without ever coming inside the radius
// stays next for the rest of the route.
func NextWaypoint(current models.Coordinate, route *models.Route, passed *Passed, radiusKm float64) models.Signal {
	for _, candidate := range route.Waypoints {
		if passed.Has(candidate.Name) {
			continue
		}
		if geo.DistanceKm(current, candidate.Location) < radiusKm {
			passed.Add(candidate.Name)
			continue
		}
		return candidate
	}
	return route.End
}

package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ukydev/rapidroute-sim/internal/models"
	"github.com/ukydev/rapidroute-sim/internal/routing"
	"github.com/ukydev/rapidroute-sim/internal/signals"
	"github.com/ukydev/rapidroute-sim/internal/waypoints"
)

// ErrEmptyPool means no route could be drawn or precomputed.
var ErrEmptyPool = errors.New("route pool is empty")

// Pool is a fixed set of precomputed routes. It is not modified after
// construction, so draws need no locking beyond the caller's rng.
type Pool struct {
	routes []*models.Route
}

func NewPool(routes ...*models.Route) *Pool {
	p := &Pool{}
	for _, r := range routes {
		if r != nil {
			p.routes = append(p.routes, r)
		}
	}
	return p
}

func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	return len(p.routes)
}

// Draw picks a route uniformly at random, or nil when the pool is empty.
func (p *Pool) Draw(rng *rand.Rand) *models.Route {
	if p.Len() == 0 {
		return nil
	}
	return p.routes[rng.Intn(len(p.routes))]
}

// Plan fetches the road path between two signals and derives its waypoints.
// Nothing is returned unless both steps succeed.
func Plan(ctx context.Context, provider routing.Provider, sequencer *waypoints.Sequencer, start, end models.Signal) (*models.Route, error) {
	points, err := provider.Route(ctx, start.Location, end.Location)
	if err != nil {
		return nil, fmt.Errorf("plan %s -> %s: %w", start.Name, end.Name, err)
	}
	sequence, err := sequencer.Sequence(points, start.Name, end.Name)
	if err != nil {
		return nil, fmt.Errorf("plan %s -> %s: %w", start.Name, end.Name, err)
	}
	return models.NewRoute(start, end, points, sequence)
}

// Precompute plans n routes between random distinct signal pairs. Pairs the
// provider cannot route are logged and skipped, so the pool may hold fewer
// than n routes. ErrEmptyPool is returned when none succeed.
func Precompute(ctx context.Context, provider routing.Provider, sequencer *waypoints.Sequencer, registry *signals.Registry, n int, rng *rand.Rand, logger logrus.FieldLogger) (*Pool, error) {
	all := registry.All()
	if len(all) < 2 {
		return nil, fmt.Errorf("%w: need at least two signals, have %d", ErrEmptyPool, len(all))
	}

	pool := NewPool()
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		a := rng.Intn(len(all))
		b := rng.Intn(len(all) - 1)
		if b >= a {
			b++
		}
		start, end := all[a], all[b]

		route, err := Plan(ctx, provider, sequencer, start, end)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"route": i,
				"start": start.Name,
				"end":   end.Name,
			}).WithError(err).Warn("Skipping route")
			continue
		}
		pool.routes = append(pool.routes, route)
		logger.WithFields(logrus.Fields{
			"route":     i,
			"of":        n,
			"points":    len(route.Points),
			"waypoints": strings.Join(route.WaypointNames(), " -> "),
		}).Info("Precomputed route")
	}

	if pool.Len() == 0 {
		return nil, ErrEmptyPool
	}
	return pool, nil
}

// Package simulation walks a vehicle along a route one point per tick and
// tracks which signals it has passed.
package simulation

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ukydev/rapidroute-sim/internal/metrics"
	"github.com/ukydev/rapidroute-sim/internal/models"
)

var (
	// ErrNoActiveRoute is returned by Tick before any route is active.
	ErrNoActiveRoute = errors.New("no active route")

	// ErrManualDisabled is returned by Activate outside manual mode.
	ErrManualDisabled = errors.New("manual activation is disabled in pool mode")
)

// Mode selects where routes come from.
type Mode string

const (
	ModeManual Mode = "manual"
	ModePool   Mode = "pool"
)

// ParseMode accepts "manual" or "pool", ignoring case and surrounding space.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeManual:
		return ModeManual, nil
	case ModePool:
		return ModePool, nil
	}
	return "", fmt.Errorf("unknown simulation mode %q", s)
}

// Publisher receives the geometry of each newly activated route.
// Publish is called while the engine lock is held and must not block.
type Publisher interface {
	Publish(points []models.Coordinate) error
}

// Options configures an Engine. Pool is required in pool mode.
type Options struct {
	Mode            Mode
	Pool            *Pool     // required in pool mode
	Broadcaster     Publisher // optional
	ArrivalRadiusKm float64
	Rand            *rand.Rand
	Logger          logrus.FieldLogger
	Metrics         *metrics.Metrics

	// OnActivate runs after every activation, outside the engine lock.
	OnActivate func(models.Activation)
	Now        func() time.Time
}

// Tick is the result of advancing the simulation by one point.
type Tick struct {
	Current  models.Coordinate
	Previous models.Coordinate
	Start    models.Signal
	End      models.Signal
	Next     models.Signal
	Cursor   int  // index of Current in the route's points
	Held     bool // manual route finished; Current is the final point
}

// Snapshot is a point-in-time copy of the engine state.
type Snapshot struct {
	Mode        Mode
	Active      bool
	Start       string
	End         string
	Cursor      int
	PointCount  int
	Waypoints   []string
	Passed      []string
	ActivatedAt time.Time
}

// Engine owns the single simulation state. Activation and ticking are
// serialized by one mutex so a tick never sees a half-installed route.
type Engine struct {
	opts Options
	log  logrus.FieldLogger

	mu          sync.Mutex
	route       *models.Route
	cursor      int
	passed      Passed
	activatedAt time.Time
	held        bool
}

// NewEngine validates opts and fills in defaults for Rand, Logger and Now.
func NewEngine(opts Options) (*Engine, error) {
	switch opts.Mode {
	case ModeManual:
	case ModePool:
		if opts.Pool.Len() == 0 {
			return nil, ErrEmptyPool
		}
	default:
		return nil, fmt.Errorf("unknown simulation mode %q", opts.Mode)
	}
	if opts.ArrivalRadiusKm <= 0 {
		return nil, fmt.Errorf("arrival radius must be positive, got %v", opts.ArrivalRadiusKm)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{opts: opts, log: opts.Logger}, nil
}

func (e *Engine) Mode() Mode {
	return e.opts.Mode
}

// Activate installs route as the active route in manual mode. The cursor and
// passed set are reset. Broadcast and history failures do not undo it.
func (e *Engine) Activate(route *models.Route) error {
	if e.opts.Mode != ModeManual {
		return ErrManualDisabled
	}
	if route == nil || len(route.Points) == 0 {
		return fmt.Errorf("%w: empty route", models.ErrInvalidRoute)
	}

	e.mu.Lock()
	activation := e.install(route, models.ActivationManual)
	e.mu.Unlock()

	e.afterActivate(activation)
	return nil
}

// install must be called with e.mu held.
func (e *Engine) install(route *models.Route, mode string) models.Activation {
	e.route = route
	e.cursor = 0
	e.passed = Passed{}
	e.held = false
	e.activatedAt = e.opts.Now()

	if e.opts.Metrics != nil {
		e.opts.Metrics.ActivationsTotal.WithLabelValues(mode).Inc()
	}
	if e.opts.Broadcaster != nil {
		if err := e.opts.Broadcaster.Publish(route.Points); err != nil {
			e.log.WithError(err).Warn("Failed to broadcast route")
		}
	}

	e.log.WithFields(logrus.Fields{
		"mode":   mode,
		"start":  route.Start.Name,
		"end":    route.End.Name,
		"points": len(route.Points),
	}).Info("Route activated")

	return models.NewActivation(mode, route, e.activatedAt)
}

func (e *Engine) afterActivate(a models.Activation) {
	if e.opts.OnActivate != nil {
		e.opts.OnActivate(a)
	}
}

// Tick advances the active route by one point and resolves the next
// waypoint at the new position. In pool mode a fresh route is drawn when
// none is active or the current one is exhausted. In manual mode an
// exhausted route holds at its final point.
func (e *Engine) Tick() (Tick, error) {
	e.mu.Lock()

	var drawn *models.Activation
	if e.opts.Mode == ModePool && (e.route == nil || e.cursor >= len(e.route.Points)) {
		route := e.opts.Pool.Draw(e.opts.Rand)
		if route != nil {
			a := e.install(route, models.ActivationPool)
			drawn = &a
		}
	}

	t, err := e.advance()
	e.mu.Unlock()

	if drawn != nil {
		e.afterActivate(*drawn)
	}
	return t, err
}

// advance must be called with e.mu held.
func (e *Engine) advance() (Tick, error) {
	if e.route == nil {
		return Tick{}, ErrNoActiveRoute
	}
	points := e.route.Points

	var t Tick
	if e.cursor >= len(points) {
		last := len(points) - 1
		t.Current = points[last]
		t.Previous = points[last]
		if last > 0 {
			t.Previous = points[last-1]
		}
		t.Cursor = last
		t.Held = true
		if !e.held {
			e.held = true
			e.log.WithField("end", e.route.End.Name).Info("End of manual route reached, waiting for a new route")
		}
	} else {
		t.Current = points[e.cursor]
		t.Previous = points[0]
		if e.cursor > 0 {
			t.Previous = points[e.cursor-1]
		}
		t.Cursor = e.cursor
		e.cursor++
		if e.opts.Metrics != nil {
			e.opts.Metrics.TicksTotal.Inc()
		}
	}

	before := e.passed.Len()
	t.Next = NextWaypoint(t.Current, e.route, &e.passed, e.opts.ArrivalRadiusKm)
	t.Start = e.route.Start
	t.End = e.route.End

	if arrived := e.passed.Len() - before; arrived > 0 {
		names := e.passed.Names()
		for _, name := range names[before:] {
			e.log.WithFields(logrus.Fields{
				"signal": name,
				"cursor": t.Cursor,
			}).Info("Arrived at waypoint")
		}
		if e.opts.Metrics != nil {
			e.opts.Metrics.WaypointArrivalsTotal.Add(float64(arrived))
		}
	}

	return t, nil
}

// Points returns a copy of the active route's geometry, empty when idle.
func (e *Engine) Points() []models.Coordinate {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.route == nil {
		return []models.Coordinate{}
	}
	out := make([]models.Coordinate, len(e.route.Points))
	copy(out, e.route.Points)
	return out
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{Mode: e.opts.Mode, Passed: e.passed.Names()}
	if e.route == nil {
		return s
	}
	s.Active = true
	s.Start = e.route.Start.Name
	s.End = e.route.End.Name
	s.Cursor = e.cursor
	s.PointCount = len(e.route.Points)
	s.Waypoints = e.route.WaypointNames()
	s.ActivatedAt = e.activatedAt
	return s
}

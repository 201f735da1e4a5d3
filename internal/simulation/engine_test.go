package simulation

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/rapidroute-sim/internal/metrics"
	"github.com/ukydev/rapidroute-sim/internal/models"
)

func newManualEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	opts.Mode = ModeManual
	if opts.ArrivalRadiusKm == 0 {
		opts.ArrivalRadiusKm = arrivalKm
	}
	if opts.Logger == nil {
		logger, _ := test.NewNullLogger()
		opts.Logger = logger
	}
	e, err := NewEngine(opts)
	require.NoError(t, err)
	return e
}

func scenarioRoute(t *testing.T) *models.Route {
	reg, seq := scenario(t)
	wps, err := seq.Sequence(scenarioPath(), "A", "C")
	require.NoError(t, err)
	return mustRoute(t, signal(t, reg, "A"), signal(t, reg, "C"), scenarioPath(), wps...)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("manual")
	require.NoError(t, err)
	assert.Equal(t, ModeManual, m)

	m, err = ParseMode(" POOL ")
	require.NoError(t, err)
	assert.Equal(t, ModePool, m)

	_, err = ParseMode("auto")
	assert.Error(t, err)
}

func TestNewEngine_Validation(t *testing.T) {
	_, err := NewEngine(Options{Mode: "replay", ArrivalRadiusKm: 0.05})
	assert.Error(t, err)

	_, err = NewEngine(Options{Mode: ModeManual})
	assert.Error(t, err)

	_, err = NewEngine(Options{Mode: ModePool, ArrivalRadiusKm: 0.05, Pool: NewPool()})
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestEngine_TickWithoutRoute(t *testing.T) {
	e := newManualEngine(t, Options{})

	_, err := e.Tick()
	assert.ErrorIs(t, err, ErrNoActiveRoute)
	assert.Equal(t, []models.Coordinate{}, e.Points())
	assert.False(t, e.Snapshot().Active)
}

func TestEngine_ManualWalkAndHold(t *testing.T) {
	e := newManualEngine(t, Options{})
	route := scenarioRoute(t)
	require.NoError(t, e.Activate(route))

	n := len(route.Points)
	for i := 0; i < n; i++ {
		tick, err := e.Tick()
		require.NoError(t, err)
		assert.Equal(t, i, tick.Cursor)
		assert.Equal(t, route.Points[i], tick.Current)
		if i == 0 {
			assert.Equal(t, route.Points[0], tick.Previous)
		} else {
			assert.Equal(t, route.Points[i-1], tick.Previous)
		}
		assert.False(t, tick.Held)
	}

	for i := 0; i < 3; i++ {
		tick, err := e.Tick()
		require.NoError(t, err)
		assert.True(t, tick.Held)
		assert.Equal(t, route.Points[n-1], tick.Current)
		assert.Equal(t, route.Points[n-2], tick.Previous)
		assert.Equal(t, "C", tick.Next.Name)
	}
}

func TestEngine_SinglePointRouteHoldsOnItself(t *testing.T) {
	e := newManualEngine(t, Options{})
	s := models.Signal{ID: 1, Name: "S", Location: pt(1, 1)}
	require.NoError(t, e.Activate(mustRoute(t, s, s, []models.Coordinate{pt(1, 1)}, s)))

	_, err := e.Tick()
	require.NoError(t, err)
	tick, err := e.Tick()
	require.NoError(t, err)
	assert.True(t, tick.Held)
	assert.Equal(t, pt(1, 1), tick.Current)
	assert.Equal(t, pt(1, 1), tick.Previous)
}

func TestEngine_FirstTickOfScenario(t *testing.T) {
	e := newManualEngine(t, Options{})
	require.NoError(t, e.Activate(scenarioRoute(t)))

	tick, err := e.Tick()
	require.NoError(t, err)
	assert.Equal(t, pt(0, 0), tick.Current)
	assert.Equal(t, pt(0, 0), tick.Previous)
	assert.Equal(t, "A", tick.Start.Name)
	assert.Equal(t, "C", tick.End.Name)
	assert.Equal(t, "B", tick.Next.Name)
	assert.Equal(t, []string{"A"}, e.Snapshot().Passed)
}

func TestEngine_ActivateResetsState(t *testing.T) {
	e := newManualEngine(t, Options{})
	route := scenarioRoute(t)
	require.NoError(t, e.Activate(route))
	for i := 0; i < 3; i++ {
		_, err := e.Tick()
		require.NoError(t, err)
	}
	require.Equal(t, 3, e.Snapshot().Cursor)

	require.NoError(t, e.Activate(route))
	snap := e.Snapshot()
	assert.Equal(t, 0, snap.Cursor)
	assert.Empty(t, snap.Passed)

	tick, err := e.Tick()
	require.NoError(t, err)
	assert.Equal(t, 0, tick.Cursor)
}

func TestEngine_ActivateBroadcastsAndRecords(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	var recorded []models.Activation
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := metrics.New()

	e := newManualEngine(t, Options{
		Broadcaster: pub,
		Metrics:     m,
		OnActivate:  func(a models.Activation) { recorded = append(recorded, a) },
		Now:         func() time.Time { return at },
	})
	route := scenarioRoute(t)

	// A failing broadcast does not stop activation.
	require.NoError(t, e.Activate(route))
	assert.Equal(t, 1, pub.count())
	assert.Equal(t, route.Points, pub.routes[0])
	assert.Equal(t, route.Points, e.Points())

	require.Len(t, recorded, 1)
	assert.Equal(t, models.ActivationManual, recorded[0].Mode)
	assert.Equal(t, []string{"A", "B", "C"}, recorded[0].Waypoints)
	assert.Equal(t, at, recorded[0].ActivatedAt)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ActivationsTotal.WithLabelValues("manual")))
}

func TestEngine_ActivateRejected(t *testing.T) {
	e := newManualEngine(t, Options{})
	assert.ErrorIs(t, e.Activate(nil), models.ErrInvalidRoute)

	pool, err := NewEngine(Options{
		Mode:            ModePool,
		Pool:            NewPool(scenarioRoute(t)),
		ArrivalRadiusKm: arrivalKm,
	})
	require.NoError(t, err)
	assert.ErrorIs(t, pool.Activate(scenarioRoute(t)), ErrManualDisabled)
}

func TestEngine_PointsIsACopy(t *testing.T) {
	e := newManualEngine(t, Options{})
	route := scenarioRoute(t)
	require.NoError(t, e.Activate(route))

	pts := e.Points()
	pts[0] = pt(89, 89)
	assert.Equal(t, pt(0, 0), e.Points()[0])
}

func TestEngine_PoolModeDrawsAndRedraws(t *testing.T) {
	s := models.Signal{ID: 1, Name: "S", Location: pt(0, 0)}
	e1 := models.Signal{ID: 2, Name: "E", Location: pt(0, 1)}
	route := mustRoute(t, s, e1, []models.Coordinate{pt(0, 0), pt(0, 1)}, s, e1)

	pub := &recordingPublisher{}
	var modes []string
	logger, _ := test.NewNullLogger()
	m := metrics.New()
	e, err := NewEngine(Options{
		Mode:            ModePool,
		Pool:            NewPool(route),
		Broadcaster:     pub,
		ArrivalRadiusKm: arrivalKm,
		Rand:            rand.New(rand.NewSource(1)),
		Logger:          logger,
		Metrics:         m,
		OnActivate:      func(a models.Activation) { modes = append(modes, a.Mode) },
	})
	require.NoError(t, err)
	assert.False(t, e.Snapshot().Active)

	cursors := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		tick, err := e.Tick()
		require.NoError(t, err)
		assert.False(t, tick.Held)
		cursors = append(cursors, tick.Cursor)
	}

	assert.Equal(t, []int{0, 1, 0, 1, 0}, cursors)
	assert.Equal(t, 3, pub.count())
	assert.Equal(t, []string{"pool", "pool", "pool"}, modes)
	assert.Equal(t, float64(5), testutil.ToFloat64(m.TicksTotal))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.ActivationsTotal.WithLabelValues("pool")))
}

func TestEngine_LogsArrivals(t *testing.T) {
	logger, hook := test.NewNullLogger()
	m := metrics.New()
	e := newManualEngine(t, Options{Logger: logger, Metrics: m})
	require.NoError(t, e.Activate(scenarioRoute(t)))
	hook.Reset()

	_, err := e.Tick()
	require.NoError(t, err)
	_, err = e.Tick()
	require.NoError(t, err)

	var arrived []string
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Arrived at waypoint" {
			assert.Equal(t, logrus.InfoLevel, entry.Level)
			arrived = append(arrived, entry.Data["signal"].(string))
		}
	}
	assert.Equal(t, []string{"A", "B"}, arrived)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.WaypointArrivalsTotal))
}

func TestEngine_SnapshotOfActiveRoute(t *testing.T) {
	e := newManualEngine(t, Options{})
	require.NoError(t, e.Activate(scenarioRoute(t)))
	_, err := e.Tick()
	require.NoError(t, err)

	snap := e.Snapshot()
	assert.Equal(t, ModeManual, snap.Mode)
	assert.True(t, snap.Active)
	assert.Equal(t, "A", snap.Start)
	assert.Equal(t, "C", snap.End)
	assert.Equal(t, 1, snap.Cursor)
	assert.Equal(t, 4, snap.PointCount)
	assert.Equal(t, []string{"A", "B", "C"}, snap.Waypoints)
	assert.False(t, snap.ActivatedAt.IsZero())
}

// Concurrent activations and ticks must never pair one route's points with
// another route's cursor or endpoints.
func TestEngine_ConcurrentActivateAndTick(t *testing.T) {
	e := newManualEngine(t, Options{})

	north := models.Signal{ID: 1, Name: "North", Location: pt(10, 0)}
	south := models.Signal{ID: 2, Name: "South", Location: pt(-10, 0)}
	northPts := []models.Coordinate{pt(10, 0), pt(10, 0.1), pt(10, 0.2)}
	southPts := []models.Coordinate{pt(-10, 0), pt(-10, 0.1), pt(-10, 0.2), pt(-10, 0.3)}
	routes := []*models.Route{
		mustRoute(t, north, north, northPts, north),
		mustRoute(t, south, south, southPts, south),
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = e.Activate(routes[(w+i)%2])
			}
		}(w)
	}

	errs := make(chan error, 8)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				tick, err := e.Tick()
				if errors.Is(err, ErrNoActiveRoute) {
					continue
				}
				if err != nil {
					errs <- err
					return
				}
				pts := northPts
				if tick.Start.Name == "South" {
					pts = southPts
				}
				if tick.Cursor >= len(pts) || pts[tick.Cursor] != tick.Current {
					errs <- errors.New("torn tick")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

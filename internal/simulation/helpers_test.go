package simulation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/rapidroute-sim/internal/models"
	"github.com/ukydev/rapidroute-sim/internal/signals"
	"github.com/ukydev/rapidroute-sim/internal/waypoints"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Route(ctx context.Context, from, to models.Coordinate) ([]models.Coordinate, error) {
	args := m.Called(ctx, from, to)
	if pts := args.Get(0); pts != nil {
		return pts.([]models.Coordinate), args.Error(1)
	}
	return nil, args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	routes [][]models.Coordinate
	err    error
}

func (p *recordingPublisher) Publish(points []models.Coordinate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes = append(p.routes, points)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.routes)
}

func pt(lat, lon float64) models.Coordinate {
	return models.Coordinate{Lat: lat, Lon: lon}
}

// scenario is the three-signal layout: A and B a hundred metres apart at
// the origin, C ten degrees east.
func scenario(t *testing.T) (*signals.Registry, *waypoints.Sequencer) {
	t.Helper()
	reg, err := signals.NewRegistry(map[string]models.Coordinate{
		"A": pt(0, 0),
		"B": pt(0, 0.001),
		"C": pt(0, 10),
	})
	require.NoError(t, err)
	seq, err := waypoints.NewSequencer(reg, 0.2)
	require.NoError(t, err)
	return reg, seq
}

func scenarioPath() []models.Coordinate {
	return []models.Coordinate{pt(0, 0), pt(0, 0.0009), pt(0, 9.999), pt(0, 10)}
}

func signal(t *testing.T, reg *signals.Registry, name string) models.Signal {
	t.Helper()
	s, err := reg.LookupByName(name)
	require.NoError(t, err)
	return s
}

func mustRoute(t *testing.T, start, end models.Signal, points []models.Coordinate, wps ...models.Signal) *models.Route {
	t.Helper()
	r, err := models.NewRoute(start, end, points, wps)
	require.NoError(t, err)
	return r
}

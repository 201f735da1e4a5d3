package routing

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ukydev/rapidroute-sim/internal/models"
)

type countingProvider struct {
	next     Provider
	failures prometheus.Counter
}

// WithFailureCounter increments failures every time next returns an error.
func WithFailureCounter(next Provider, failures prometheus.Counter) Provider {
	return &countingProvider{next: next, failures: failures}
}

func (p *countingProvider) Route(ctx context.Context, from, to models.Coordinate) ([]models.Coordinate, error) {
	points, err := p.next.Route(ctx, from, to)
	if err != nil {
		p.failures.Inc()
	}
	return points, err
}

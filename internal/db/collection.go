package db

import (
	"context"

	"github.com/ukydev/rapidroute-sim/internal/models"
)

// ActivationCollection defines the interface for route activation history.
type ActivationCollection interface {
	InsertActivation(ctx context.Context, activation models.Activation) error
	FindActivations(ctx context.Context, limit int64) ([]models.Activation, error)
}

// ActivationCursor defines the interface for activation cursor operations.
type ActivationCursor interface {
	All(ctx context.Context, out interface{}) error
	Close(ctx context.Context) error
}

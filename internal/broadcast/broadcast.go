// Package broadcast announces newly activated route geometry to listeners.
package broadcast

import (
	"encoding/json"
	"errors"

	"github.com/ukydev/rapidroute-sim/internal/models"
)

// Broadcaster publishes route geometry. Publish must not block on the
// network; delivery is best-effort.
type Broadcaster interface {
	Publish(points []models.Coordinate) error
	Close()
}

// EncodeRoute renders points as a JSON array of [lat, lon] pairs.
func EncodeRoute(points []models.Coordinate) ([]byte, error) {
	if points == nil {
		points = []models.Coordinate{}
	}
	return json.Marshal(points)
}

// Multi fans each publish out to every sink.
type Multi []Broadcaster

func (m Multi) Publish(points []models.Coordinate) error {
	var errs []error
	for _, b := range m {
		if err := b.Publish(points); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() {
	for _, b := range m {
		b.Close()
	}
}

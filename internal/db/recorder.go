package db

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ukydev/rapidroute-sim/internal/models"
)

const recordTimeout = 5 * time.Second

// Recorder writes activations from background goroutines. Callers never
// wait on the database.
type Recorder struct {
	coll ActivationCollection
	log  logrus.FieldLogger
	wg   sync.WaitGroup
}

func NewRecorder(coll ActivationCollection, logger logrus.FieldLogger) *Recorder {
	return &Recorder{coll: coll, log: logger}
}

// Record stores the activation asynchronously. Failures are logged.
func (r *Recorder) Record(a models.Activation) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := r.coll.InsertActivation(ctx, a); err != nil {
			r.log.WithFields(logrus.Fields{
				"mode":  a.Mode,
				"start": a.StartName,
				"end":   a.EndName,
			}).WithError(err).Error("Failed to record route activation")
		}
	}()
}

// Wait blocks until every pending write has finished.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

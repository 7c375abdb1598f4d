// Package feed keeps the order store in step with the backend. The store never
// talks to the network; this loop fetches snapshots for it and relays status
// mutations out. The Source interface is the seam where a push-based feed could
// replace polling without touching the store's reconciliation.
package feed

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tasteline/kitchen-dashboard/internal/circuitbreaker"
	"github.com/tasteline/kitchen-dashboard/pkg/models"
)

const DefaultPollInterval = 10 * time.Second

// Source is the backend as the loop sees it.
type Source interface {
	FetchActive(ctx context.Context, restaurantID string) ([]models.RawOrder, error)
	PushStatus(ctx context.Context, orderID string, update models.StatusUpdate) error
}

// Sink receives the fetched snapshots; in practice this is the order store.
type Sink interface {
	ApplySnapshot(raw []models.RawOrder)
}

type Loop struct {
	source       Source
	sink         Sink
	restaurantID string
	interval     time.Duration
	breaker      *circuitbreaker.Breaker
	logger       *logrus.Logger
}

func NewLoop(source Source, sink Sink, restaurantID string, interval time.Duration, logger *logrus.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Loop{
		source:       source,
		sink:         sink,
		restaurantID: restaurantID,
		interval:     interval,
		// Three straight failed polls open the breaker; it probes again after
		// sitting out roughly two poll cycles.
		breaker: circuitbreaker.New("backend-fetch", 3, 2*interval, logger),
		logger:  logger,
	}
}

// Run polls once immediately, then on every tick until the context is
// cancelled. Polls run on this goroutine only, so they never overlap; a poll
// that outlives the interval simply delays the next one.
func (l *Loop) Run(ctx context.Context) {
	l.logger.WithFields(logrus.Fields{
		"restaurant_id": l.restaurantID,
		"interval":      l.interval.String(),
	}).Info("Starting order sync loop")

	l.pollOnce(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Order sync loop stopped")
			return
		case <-ticker.C:
			l.pollOnce(ctx)
		}
	}
}

func (l *Loop) pollOnce(ctx context.Context) {
	err := l.breaker.Execute(func() error {
		raw, err := l.source.FetchActive(ctx, l.restaurantID)
		if err != nil {
			return err
		}
		l.sink.ApplySnapshot(raw)
		return nil
	})
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		l.logger.Debug("Poll suppressed, backend fetch breaker is open")
	case err != nil:
		// Keep last-known-good data; the next poll is the retry.
		l.logger.WithError(err).Error("Poll failed")
	}
}

// Push sends a status mutation to the backend without blocking the caller.
// Errors are logged and swallowed: there is no retry and no rollback of the
// optimistic local state, the next successful poll reconciles any divergence.
func (l *Loop) Push(orderID string, update models.StatusUpdate) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.interval)
		defer cancel()

		if err := l.source.PushStatus(ctx, orderID, update); err != nil {
			l.logger.WithError(err).WithFields(logrus.Fields{
				"order_id": orderID,
				"status":   update.Status,
			}).Warn("Status push failed, next poll will reconcile")
		}
	}()
}

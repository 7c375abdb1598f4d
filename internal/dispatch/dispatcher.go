// Package dispatch translates kitchen staff intents into store mutations plus
// backend and event traffic. Every action applies optimistically first; the
// server call is fire-and-forget and the sync loop reconciles later.
package dispatch

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tasteline/kitchen-dashboard/internal/events"
	"github.com/tasteline/kitchen-dashboard/internal/store"
	"github.com/tasteline/kitchen-dashboard/internal/verify"
	"github.com/tasteline/kitchen-dashboard/pkg/models"
)

// Pusher relays status mutations to the backend without blocking.
type Pusher interface {
	Push(orderID string, update models.StatusUpdate)
}

// EventPublisher publishes lifecycle transitions for downstream collaborators.
type EventPublisher interface {
	PublishStatusChanged(event events.OrderStatusChangedEvent) error
}

// BoardBroadcaster pushes the refreshed board to connected UI clients.
type BoardBroadcaster interface {
	BroadcastBoard(board store.Board)
}

type Dispatcher struct {
	store        *store.Store
	pusher       Pusher
	publisher    EventPublisher
	broadcaster  BoardBroadcaster
	restaurantID string
	logger       *logrus.Logger
}

// New wires a dispatcher. publisher and broadcaster may be nil; the dispatcher
// runs without them.
func New(st *store.Store, pusher Pusher, restaurantID string, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		store:        st,
		pusher:       pusher,
		restaurantID: restaurantID,
		logger:       logger,
	}
}

func (d *Dispatcher) SetEventPublisher(publisher EventPublisher) {
	d.publisher = publisher
}

func (d *Dispatcher) SetBoardBroadcaster(broadcaster BoardBroadcaster) {
	d.broadcaster = broadcaster
}

// Accept moves a new order into preparation with the confirmed prep time.
// It reports whether the transition applied (false for unknown orders, orders
// not in the new column, or a non-positive prep time).
func (d *Dispatcher) Accept(orderID string, prepMinutes int) bool {
	if prepMinutes <= 0 {
		d.logger.WithFields(logrus.Fields{
			"order_id":     orderID,
			"prep_minutes": prepMinutes,
		}).Warn("Accept rejected, prep time must be positive")
		return false
	}

	now := time.Now()
	update := models.StatusUpdate{
		Status:     models.StatusPreparing,
		PrepTime:   prepMinutes,
		AcceptedAt: &now,
	}
	if !d.store.ApplyTransition(orderID, update) {
		return false
	}
	d.settle(orderID, update)
	return true
}

// Reject cancels a pending order with the confirmed reason and drops it from
// the board.
func (d *Dispatcher) Reject(orderID, reason string) bool {
	update := models.StatusUpdate{
		Status:          models.StatusCancelled,
		RejectionReason: reason,
	}
	if !d.store.ApplyTransition(orderID, update) {
		return false
	}
	d.store.Remove(orderID)
	d.settle(orderID, update)
	return true
}

// MarkReady moves a preparing order to ready and attaches a fresh pickup code.
func (d *Dispatcher) MarkReady(orderID string) bool {
	update := models.StatusUpdate{
		Status:           models.StatusReady,
		VerificationCode: verify.Code(),
	}
	if !d.store.ApplyTransition(orderID, update) {
		return false
	}
	d.settle(orderID, update)
	return true
}

// HandToRider completes the kitchen's part of the order. The order leaves the
// board; the backend (and the rider app, via the event stream) take over.
func (d *Dispatcher) HandToRider(orderID string) bool {
	update := models.StatusUpdate{Status: models.StatusHandedToRider}
	if !d.store.ApplyTransition(orderID, update) {
		return false
	}
	d.store.Remove(orderID)
	d.settle(orderID, update)
	return true
}

// settle runs the after-effects of an applied transition: the backend push,
// the lifecycle event and the UI broadcast. None of them can fail the action.
func (d *Dispatcher) settle(orderID string, update models.StatusUpdate) {
	d.pusher.Push(orderID, update)

	if d.publisher != nil {
		event := events.OrderStatusChangedEvent{
			OrderID:          orderID,
			RestaurantID:     d.restaurantID,
			Status:           update.Status,
			PrepTimeMinutes:  update.PrepTime,
			VerificationCode: update.VerificationCode,
			RejectionReason:  update.RejectionReason,
		}
		go func() {
			if err := d.publisher.PublishStatusChanged(event); err != nil {
				d.logger.WithError(err).WithField("order_id", orderID).Warn("Failed to publish lifecycle event")
			}
		}()
	}

	if d.broadcaster != nil {
		d.broadcaster.BroadcastBoard(d.store.Partitions())
	}
}

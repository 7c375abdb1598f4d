package store

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tasteline/kitchen-dashboard/pkg/models"
)

// DefaultGuardWindow matches the default poll interval: a local transition holds
// off snapshot status data for one polling cycle, long enough that a fetch that
// was already in flight when the user acted cannot revert the action.
const DefaultGuardWindow = 10 * time.Second

// Board is the status-partitioned view the kitchen UI renders. Each column keeps
// the order in which orders entered that partition so cards do not reshuffle
// between polls.
type Board struct {
	New       []models.Order `json:"new"`
	Preparing []models.Order `json:"preparing"`
	Ready     []models.Order `json:"ready"`
}

// Store owns the client-side working set of active orders. Server snapshots and
// optimistic local transitions both funnel through it; all mutation is
// serialized behind a single mutex so each call is atomic with respect to the
// visible state.
type Store struct {
	mu          sync.Mutex
	orders      map[string]*models.Order
	partitions  map[models.Status][]string
	guarded     map[string]time.Time
	guardWindow time.Duration
	logger      *logrus.Logger
}

func New(guardWindow time.Duration, logger *logrus.Logger) *Store {
	if guardWindow <= 0 {
		guardWindow = DefaultGuardWindow
	}
	return &Store{
		orders: make(map[string]*models.Order),
		partitions: map[models.Status][]string{
			models.StatusNew:       nil,
			models.StatusPreparing: nil,
			models.StatusReady:     nil,
		},
		guarded:     make(map[string]time.Time),
		guardWindow: guardWindow,
		logger:      logger,
	}
}

// ApplySnapshot reconciles the latest full server snapshot with the working set.
// The snapshot is authoritative except for orders with a local transition still
// inside the guard window, whose status (and transition fields) are kept as-is.
// Records that fail normalization are skipped; the rest of the snapshot applies.
func (s *Store) ApplySnapshot(raw []models.RawOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.pruneGuardsLocked(now)

	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		order, err := r.Normalize()
		if err != nil {
			s.logger.WithError(err).Warn("Skipping malformed order record")
			continue
		}
		seen[order.ID] = true
		s.mergeLocked(order, now)
	}

	// Orders the server no longer reports are gone unless a local mutation is
	// still inside the guard window (its push may not have landed yet).
	for id := range s.orders {
		if !seen[id] && !s.guardedLocked(id, now) {
			s.dropLocked(id)
		}
	}
}

func (s *Store) mergeLocked(order models.Order, now time.Time) {
	existing, ok := s.orders[order.ID]
	if !ok {
		if order.Status == models.StatusHandedToRider || order.Status == models.StatusCancelled {
			return
		}
		if s.guardedLocked(order.ID, now) {
			// Removed locally moments ago; don't let a stale fetch resurrect it.
			return
		}
		o := order
		s.orders[order.ID] = &o
		s.enterPartitionLocked(order.ID, order.Status)
		return
	}

	existing.CustomerRef = order.CustomerRef
	existing.Items = order.Items
	existing.Total = order.Total

	if s.guardedLocked(order.ID, now) {
		// Items may merge, status may not: the local transition is fresher.
		return
	}

	if existing.Status != order.Status {
		s.leavePartitionLocked(order.ID, existing.Status)
		s.enterPartitionLocked(order.ID, order.Status)
	}
	existing.Status = order.Status
	if order.PrepMinutes > 0 {
		existing.PrepMinutes = order.PrepMinutes
	}
	if order.AcceptedAt != nil {
		existing.AcceptedAt = order.AcceptedAt
	}
	if order.VerificationCode != "" {
		existing.VerificationCode = order.VerificationCode
	}
	if order.RejectionReason != "" {
		existing.RejectionReason = order.RejectionReason
	}

	if existing.Status == models.StatusHandedToRider || existing.Status == models.StatusCancelled {
		s.dropLocked(order.ID)
	}
}

// ApplyTransition applies a locally-originated status change immediately, before
// any server acknowledgment. It reports whether the transition was applied;
// unknown ids and moves the lifecycle does not allow are logged no-ops.
func (s *Store) ApplyTransition(orderID string, update models.StatusUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		s.logger.WithField("order_id", orderID).Warn("Transition for unknown order ignored")
		return false
	}
	if !models.CanTransition(order.Status, update.Status) {
		s.logger.WithFields(logrus.Fields{
			"order_id": orderID,
			"from":     order.Status,
			"to":       update.Status,
		}).Warn("Invalid transition ignored")
		return false
	}

	s.leavePartitionLocked(orderID, order.Status)
	s.enterPartitionLocked(orderID, update.Status)
	order.Status = update.Status

	switch update.Status {
	case models.StatusPreparing:
		order.PrepMinutes = update.PrepTime
		order.AcceptedAt = update.AcceptedAt
	case models.StatusReady:
		order.VerificationCode = update.VerificationCode
	case models.StatusCancelled:
		order.RejectionReason = update.RejectionReason
	}

	s.guarded[orderID] = time.Now()
	return true
}

// Remove drops an order from the working set once the kitchen is done with it.
// The guard window applies to removals too, so the next snapshot (possibly
// fetched before the removal) cannot reintroduce the order.
func (s *Store) Remove(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[orderID]; !ok {
		return
	}
	s.dropLocked(orderID)
	s.guarded[orderID] = time.Now()
}

// Get returns a copy of the addressed order.
func (s *Store) Get(orderID string) (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return models.Order{}, false
	}
	return *order, true
}

// Partitions returns the three kitchen columns. The returned orders are copies;
// mutating them does not touch the store.
func (s *Store) Partitions() Board {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Board{
		New:       s.partitionLocked(models.StatusNew),
		Preparing: s.partitionLocked(models.StatusPreparing),
		Ready:     s.partitionLocked(models.StatusReady),
	}
}

func (s *Store) partitionLocked(status models.Status) []models.Order {
	ids := s.partitions[status]
	out := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		if order, ok := s.orders[id]; ok {
			out = append(out, *order)
		}
	}
	return out
}

func (s *Store) enterPartitionLocked(orderID string, status models.Status) {
	if _, tracked := s.partitions[status]; !tracked {
		return
	}
	s.partitions[status] = append(s.partitions[status], orderID)
}

func (s *Store) leavePartitionLocked(orderID string, status models.Status) {
	ids, tracked := s.partitions[status]
	if !tracked {
		return
	}
	for i, id := range ids {
		if id == orderID {
			s.partitions[status] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

func (s *Store) dropLocked(orderID string) {
	if order, ok := s.orders[orderID]; ok {
		s.leavePartitionLocked(orderID, order.Status)
	}
	delete(s.orders, orderID)
}

func (s *Store) guardedLocked(orderID string, now time.Time) bool {
	stamp, ok := s.guarded[orderID]
	return ok && now.Sub(stamp) < s.guardWindow
}

func (s *Store) pruneGuardsLocked(now time.Time) {
	for id, stamp := range s.guarded {
		if now.Sub(stamp) >= s.guardWindow {
			delete(s.guarded, id)
		}
	}
}

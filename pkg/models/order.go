package models

import (
	"fmt"
	"time"
)

// Status values use the backend's wire names. The backend also emits "pending"
// for orders the kitchen has not seen yet; normalization folds it into StatusNew.
type Status string

const (
	StatusNew           Status = "new"
	StatusPreparing     Status = "preparing"
	StatusReady         Status = "ready"
	StatusHandedToRider Status = "out_for_delivery"
	StatusCancelled     Status = "cancelled"
)

var validNext = map[Status]map[Status]bool{
	StatusNew:           {StatusPreparing: true, StatusCancelled: true},
	StatusPreparing:     {StatusReady: true, StatusCancelled: true},
	StatusReady:         {StatusHandedToRider: true},
	StatusHandedToRider: {},
	StatusCancelled:     {},
}

// CanTransition reports whether the lifecycle allows moving from one status to
// another. Creation into StatusNew is not a transition and is not covered here.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

type Order struct {
	ID               string      `json:"id"`
	CustomerRef      string      `json:"customer_ref"`
	Items            []OrderItem `json:"items"`
	Total            float64     `json:"total"`
	Status           Status      `json:"status"`
	PrepMinutes      int         `json:"prep_minutes,omitempty"`
	AcceptedAt       *time.Time  `json:"accepted_at,omitempty"`
	VerificationCode string      `json:"verification_code,omitempty"`
	RejectionReason  string      `json:"rejection_reason,omitempty"`
}

type OrderItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// ComputeTotal recomputes the order total from its items. Total is never stored
// independently of the items it was derived from.
func ComputeTotal(items []OrderItem) float64 {
	var total float64
	for _, it := range items {
		total += it.UnitPrice * float64(it.Quantity)
	}
	return total
}

// StatusUpdate is the open-ended bag of fields that accompanies a status change,
// both in the store's optimistic transitions and on the wire to the backend.
type StatusUpdate struct {
	Status           Status     `json:"status"`
	PrepTime         int        `json:"prepTime,omitempty"`
	AcceptedAt       *time.Time `json:"acceptedAt,omitempty"`
	VerificationCode string     `json:"verificationCode,omitempty"`
	RejectionReason  string     `json:"rejectionReason,omitempty"`
}

// RawOrder is an order record as the backend returns it: loosely typed, with a
// Mongo-style id, "pending" for new orders and the quantity under either of two
// field names depending on which service wrote it.
type RawOrder struct {
	MongoID          string     `json:"_id"`
	ID               string     `json:"id"`
	CustomerID       string     `json:"customer_id"`
	Items            []RawItem  `json:"items"`
	Status           string     `json:"status"`
	PrepTime         int        `json:"prepTime"`
	AcceptedAt       *time.Time `json:"acceptedAt"`
	VerificationCode string     `json:"verificationCode"`
	RejectionReason  string     `json:"rejectionReason"`
}

type RawItem struct {
	Name     string  `json:"name"`
	Qty      int     `json:"qty"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Normalize maps a raw backend record onto the domain model. It returns an error
// for records that cannot be repaired (missing id, no items, bad quantity or
// price, unknown status); callers skip those and keep the rest of the snapshot.
func (r RawOrder) Normalize() (Order, error) {
	id := r.MongoID
	if id == "" {
		id = r.ID
	}
	if id == "" {
		return Order{}, fmt.Errorf("raw order has no id")
	}

	status := Status(r.Status)
	if r.Status == "pending" {
		status = StatusNew
	}
	if !status.Valid() {
		return Order{}, fmt.Errorf("order %s: unknown status %q", id, r.Status)
	}

	if len(r.Items) == 0 {
		return Order{}, fmt.Errorf("order %s: no items", id)
	}
	items := make([]OrderItem, 0, len(r.Items))
	for i, it := range r.Items {
		qty := it.Qty
		if qty == 0 {
			qty = it.Quantity
		}
		if qty <= 0 {
			return Order{}, fmt.Errorf("order %s: item %d has no usable quantity", id, i)
		}
		if it.Price < 0 {
			return Order{}, fmt.Errorf("order %s: item %d has negative price", id, i)
		}
		if it.Name == "" {
			return Order{}, fmt.Errorf("order %s: item %d has no name", id, i)
		}
		items = append(items, OrderItem{Name: it.Name, Quantity: qty, UnitPrice: it.Price})
	}

	return Order{
		ID:               id,
		CustomerRef:      r.CustomerID,
		Items:            items,
		Total:            ComputeTotal(items),
		Status:           status,
		PrepMinutes:      r.PrepTime,
		AcceptedAt:       r.AcceptedAt,
		VerificationCode: r.VerificationCode,
		RejectionReason:  r.RejectionReason,
	}, nil
}

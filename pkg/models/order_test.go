package models

import (
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	acceptedAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		raw     RawOrder
		want    Order
		wantErr bool
	}{
		{
			name: "pending_becomes_new_and_qty_field",
			raw: RawOrder{
				MongoID:    "A1",
				CustomerID: "cust_42",
				Status:     "pending",
				Items:      []RawItem{{Name: "Soup", Qty: 2, Price: 50}},
			},
			want: Order{
				ID:          "A1",
				CustomerRef: "cust_42",
				Status:      StatusNew,
				Items:       []OrderItem{{Name: "Soup", Quantity: 2, UnitPrice: 50}},
				Total:       100,
			},
		},
		{
			name: "quantity_field_variant",
			raw: RawOrder{
				MongoID:    "A2",
				CustomerID: "cust_7",
				Status:     "new",
				Items:      []RawItem{{Name: "Dosa", Quantity: 3, Price: 120}},
			},
			want: Order{
				ID:          "A2",
				CustomerRef: "cust_7",
				Status:      StatusNew,
				Items:       []OrderItem{{Name: "Dosa", Quantity: 3, UnitPrice: 120}},
				Total:       360,
			},
		},
		{
			name: "plain_id_fallback_and_preparing_fields",
			raw: RawOrder{
				ID:         "A3",
				CustomerID: "cust_9",
				Status:     "preparing",
				PrepTime:   15,
				AcceptedAt: &acceptedAt,
				Items:      []RawItem{{Name: "Naan", Qty: 1, Price: 60}},
			},
			want: Order{
				ID:          "A3",
				CustomerRef: "cust_9",
				Status:      StatusPreparing,
				PrepMinutes: 15,
				AcceptedAt:  &acceptedAt,
				Items:       []OrderItem{{Name: "Naan", Quantity: 1, UnitPrice: 60}},
				Total:       60,
			},
		},
		{
			name:    "missing_id",
			raw:     RawOrder{Status: "pending", Items: []RawItem{{Name: "Soup", Qty: 1, Price: 50}}},
			wantErr: true,
		},
		{
			name:    "unknown_status",
			raw:     RawOrder{MongoID: "B1", Status: "teleported", Items: []RawItem{{Name: "Soup", Qty: 1, Price: 50}}},
			wantErr: true,
		},
		{
			name:    "no_items",
			raw:     RawOrder{MongoID: "B2", Status: "pending"},
			wantErr: true,
		},
		{
			name:    "no_usable_quantity",
			raw:     RawOrder{MongoID: "B3", Status: "pending", Items: []RawItem{{Name: "Soup", Price: 50}}},
			wantErr: true,
		},
		{
			name:    "negative_price",
			raw:     RawOrder{MongoID: "B4", Status: "pending", Items: []RawItem{{Name: "Soup", Qty: 1, Price: -5}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.raw.Normalize()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected normalization to fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if got.ID != tt.want.ID || got.CustomerRef != tt.want.CustomerRef || got.Status != tt.want.Status {
				t.Errorf("Got %+v, want %+v", got, tt.want)
			}
			if got.Total != tt.want.Total {
				t.Errorf("Total = %v, want %v", got.Total, tt.want.Total)
			}
			if got.PrepMinutes != tt.want.PrepMinutes {
				t.Errorf("PrepMinutes = %d, want %d", got.PrepMinutes, tt.want.PrepMinutes)
			}
			if len(got.Items) != len(tt.want.Items) {
				t.Fatalf("Items length = %d, want %d", len(got.Items), len(tt.want.Items))
			}
			for i := range got.Items {
				if got.Items[i] != tt.want.Items[i] {
					t.Errorf("Item %d = %+v, want %+v", i, got.Items[i], tt.want.Items[i])
				}
			}
		})
	}
}

func TestNormalizeRecomputesTotal(t *testing.T) {
	// The raw record carries no total; it is always derived from items.
	raw := RawOrder{
		MongoID: "C1",
		Status:  "pending",
		Items: []RawItem{
			{Name: "Soup", Qty: 2, Price: 50},
			{Name: "Naan", Quantity: 3, Price: 60},
		},
	}
	order, err := raw.Normalize()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if want := 2*50.0 + 3*60.0; order.Total != want {
		t.Errorf("Total = %v, want %v", order.Total, want)
	}
	if order.Total != ComputeTotal(order.Items) {
		t.Error("Total must equal ComputeTotal of the normalized items")
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusNew, StatusPreparing},
		{StatusNew, StatusCancelled},
		{StatusPreparing, StatusReady},
		{StatusPreparing, StatusCancelled},
		{StatusReady, StatusHandedToRider},
	}
	for _, tr := range allowed {
		if !CanTransition(tr.from, tr.to) {
			t.Errorf("Expected %s -> %s to be allowed", tr.from, tr.to)
		}
	}

	statuses := []Status{StatusNew, StatusPreparing, StatusReady, StatusHandedToRider, StatusCancelled}
	allowedSet := make(map[[2]Status]bool)
	for _, tr := range allowed {
		allowedSet[[2]Status{tr.from, tr.to}] = true
	}
	for _, from := range statuses {
		for _, to := range statuses {
			if allowedSet[[2]Status{from, to}] {
				continue
			}
			if CanTransition(from, to) {
				t.Errorf("Expected %s -> %s to be rejected", from, to)
			}
		}
	}
}

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/tasteline/kitchen-dashboard/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestFetchActive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/orders/rest_001/active" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("Unexpected method: %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"_id":"A1","customer_id":"cust_1","status":"pending","items":[{"name":"Soup","qty":2,"price":50}]},
			{"_id":"A2","customer_id":"cust_2","status":"preparing","items":[{"name":"Dosa","quantity":1,"price":120}]}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	raw, err := client.FetchActive(context.Background(), "rest_001")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(raw))
	}
	if raw[0].MongoID != "A1" || raw[0].Status != "pending" {
		t.Errorf("First record wrong: %+v", raw[0])
	}
	if raw[0].Items[0].Qty != 2 || raw[1].Items[0].Quantity != 1 {
		t.Error("Quantity field variants must pass through untouched")
	}
}

func TestFetchActiveServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	if _, err := client.FetchActive(context.Background(), "rest_001"); err == nil {
		t.Error("Expected error for 500 response")
	}
}

func TestPushStatus(t *testing.T) {
	var received models.StatusUpdate
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/orders/A1/status" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPatch {
			t.Errorf("Unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Unexpected content type: %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	err := client.PushStatus(context.Background(), "A1", models.StatusUpdate{
		Status:   models.StatusPreparing,
		PrepTime: 15,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if received.Status != models.StatusPreparing || received.PrepTime != 15 {
		t.Errorf("Backend received %+v", received)
	}
}

func TestPushStatusServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testLogger())
	err := client.PushStatus(context.Background(), "A1", models.StatusUpdate{Status: models.StatusReady})
	if err == nil {
		t.Error("Expected error for 502 response")
	}
}

func TestUnreachableBackend(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", testLogger())

	if _, err := client.FetchActive(context.Background(), "rest_001"); err == nil {
		t.Error("Expected fetch error for unreachable backend")
	}
	if err := client.PushStatus(context.Background(), "A1", models.StatusUpdate{Status: models.StatusReady}); err == nil {
		t.Error("Expected push error for unreachable backend")
	}
}

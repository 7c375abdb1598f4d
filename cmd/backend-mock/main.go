// backend-mock is an in-memory stand-in for the real order backend, for local
// development and demos. It deliberately reproduces the production API's
// quirks: Mongo-style "_id" fields, "pending" as the status of unseen orders,
// and item quantities under either "qty" or "quantity" depending on which
// upstream service wrote the record.
package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type mockItem struct {
	Name     string  `json:"name"`
	Qty      int     `json:"qty,omitempty"`
	Quantity int     `json:"quantity,omitempty"`
	Price    float64 `json:"price"`
}

type mockOrder struct {
	MongoID          string     `json:"_id"`
	RestaurantID     string     `json:"restaurant_id"`
	CustomerID       string     `json:"customer_id"`
	Items            []mockItem `json:"items"`
	Status           string     `json:"status"`
	PrepTime         int        `json:"prepTime,omitempty"`
	AcceptedAt       *time.Time `json:"acceptedAt,omitempty"`
	VerificationCode string     `json:"verificationCode,omitempty"`
	RejectionReason  string     `json:"rejectionReason,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type statusUpdate struct {
	Status           string     `json:"status"`
	PrepTime         int        `json:"prepTime"`
	AcceptedAt       *time.Time `json:"acceptedAt"`
	VerificationCode string     `json:"verificationCode"`
	RejectionReason  string     `json:"rejectionReason"`
}

// orderStore holds orders in memory, in arrival order so the active list is
// stable between polls.
type orderStore struct {
	orders map[string]*mockOrder
	order  []string
	mutex  sync.RWMutex
}

func newOrderStore() *orderStore {
	return &orderStore{orders: make(map[string]*mockOrder)}
}

func (s *orderStore) add(o *mockOrder) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, exists := s.orders[o.MongoID]; !exists {
		s.order = append(s.order, o.MongoID)
	}
	s.orders[o.MongoID] = o
}

func (s *orderStore) active(restaurantID string) []*mockOrder {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var out []*mockOrder
	for _, id := range s.order {
		o := s.orders[id]
		if o.RestaurantID != restaurantID {
			continue
		}
		if o.Status == "out_for_delivery" || o.Status == "cancelled" {
			continue
		}
		snapshot := *o
		out = append(out, &snapshot)
	}
	return out
}

func (s *orderStore) applyStatus(orderID string, update statusUpdate) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return false
	}
	o.Status = update.Status
	if update.PrepTime > 0 {
		o.PrepTime = update.PrepTime
	}
	if update.AcceptedAt != nil {
		o.AcceptedAt = update.AcceptedAt
	}
	if update.VerificationCode != "" {
		o.VerificationCode = update.VerificationCode
	}
	if update.RejectionReason != "" {
		o.RejectionReason = update.RejectionReason
	}
	return true
}

var menu = []struct {
	name  string
	price float64
}{
	{"Butter Chicken", 320},
	{"Veg Biryani", 220},
	{"Soup", 50},
	{"Masala Dosa", 120},
	{"Paneer Tikka", 260},
	{"Garlic Naan", 60},
	{"Mango Lassi", 90},
}

func randomOrder(restaurantID string) *mockOrder {
	itemCount := rand.Intn(3) + 1
	items := make([]mockItem, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		dish := menu[rand.Intn(len(menu))]
		item := mockItem{Name: dish.name, Price: dish.price}
		// Half the records carry "qty", half "quantity", like production.
		if rand.Intn(2) == 0 {
			item.Qty = rand.Intn(3) + 1
		} else {
			item.Quantity = rand.Intn(3) + 1
		}
		items = append(items, item)
	}
	return &mockOrder{
		MongoID:      uuid.New().String(),
		RestaurantID: restaurantID,
		CustomerID:   "cust_" + strconv.Itoa(rand.Intn(900)+100),
		Items:        items,
		Status:       "pending",
		CreatedAt:    time.Now(),
	}
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	store := newOrderStore()
	restaurantID := getEnv("RESTAURANT_ID", "rest_001")

	// Seed a few pending orders so a fresh dashboard has something to show.
	for i := 0; i < 3; i++ {
		store.add(randomOrder(restaurantID))
	}
	logger.WithField("restaurant_id", restaurantID).Info("Seeded demo orders")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional demo traffic: a fresh pending order every interval.
	if rate := getIntEnv("MOCK_ORDER_INTERVAL_SECONDS", 30); rate > 0 {
		go func() {
			ticker := time.NewTicker(time.Duration(rate) * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					o := randomOrder(restaurantID)
					store.add(o)
					logger.WithField("order_id", o.MongoID).Info("Injected demo order")
				}
			}
		}()
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.HandleFunc("/api/orders/{restaurantID}/active", listActive(logger, store)).Methods("GET")
	router.HandleFunc("/api/orders/{id}/status", updateStatus(logger, store)).Methods("PATCH")
	router.HandleFunc("/api/orders", createOrder(logger, store, restaurantID)).Methods("POST")

	port := getEnv("BACKEND_MOCK_PORT", "5001")
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.WithField("port", port).Info("Starting backend mock")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down backend mock...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "backend-mock"})
}

func listActive(logger *logrus.Logger, store *orderStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		restaurantID := mux.Vars(r)["restaurantID"]
		orders := store.active(restaurantID)

		logger.WithFields(logrus.Fields{
			"restaurant_id": restaurantID,
			"count":         len(orders),
		}).Debug("Serving active orders")

		if orders == nil {
			orders = []*mockOrder{}
		}
		respondJSON(w, http.StatusOK, orders)
	}
}

func updateStatus(logger *logrus.Logger, store *orderStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := mux.Vars(r)["id"]

		var update statusUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			logger.WithError(err).Error("Failed to decode status update")
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}

		if !store.applyStatus(orderID, update) {
			respondJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}

		logger.WithFields(logrus.Fields{
			"order_id": orderID,
			"status":   update.Status,
		}).Info("Order status updated")
		respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func createOrder(logger *logrus.Logger, store *orderStore, restaurantID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var order mockOrder
		if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
			logger.WithError(err).Error("Failed to decode order")
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
			return
		}

		if order.MongoID == "" {
			order.MongoID = uuid.New().String()
		}
		if order.RestaurantID == "" {
			order.RestaurantID = restaurantID
		}
		if order.Status == "" {
			order.Status = "pending"
		}
		if order.CreatedAt.IsZero() {
			order.CreatedAt = time.Now()
		}

		store.add(&order)
		logger.WithField("order_id", order.MongoID).Info("Order created")
		respondJSON(w, http.StatusCreated, order)
	}
}

func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

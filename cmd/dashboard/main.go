package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/tasteline/kitchen-dashboard/internal/api"
	"github.com/tasteline/kitchen-dashboard/internal/backend"
	"github.com/tasteline/kitchen-dashboard/internal/dispatch"
	"github.com/tasteline/kitchen-dashboard/internal/events"
	"github.com/tasteline/kitchen-dashboard/internal/feed"
	"github.com/tasteline/kitchen-dashboard/internal/store"
	"github.com/tasteline/kitchen-dashboard/internal/websocket"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		logger.SetLevel(level)
	}

	port := getEnv("DASHBOARD_PORT", "8080")
	backendURL := getEnv("BACKEND_URL", "http://localhost:5001")
	restaurantID := getEnv("RESTAURANT_ID", "rest_001")
	pollInterval := getDurationEnv("POLL_INTERVAL_SECONDS", 10, logger)
	kafkaBrokers := getEnv("KAFKA_BROKERS", "")

	// Everything below shares one context; tearing it down stops the sync
	// loop, the hub and every countdown the UI spawned.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Guard window defaults to one poll interval so an in-flight fetch cannot
	// revert a transition the kitchen just made.
	orderStore := store.New(pollInterval, logger)
	backendClient := backend.NewClient(backendURL, logger)
	syncLoop := feed.NewLoop(backendClient, orderStore, restaurantID, pollInterval, logger)
	go syncLoop.Run(ctx)

	wsHub := websocket.NewHub(logger)
	go wsHub.Run(ctx)

	dispatcher := dispatch.New(orderStore, syncLoop, restaurantID, logger)
	dispatcher.SetBoardBroadcaster(wsHub)

	if kafkaBrokers != "" {
		producer, err := events.NewKafkaProducer(kafkaBrokers, logger)
		if err != nil {
			logger.WithError(err).Warn("Kafka unavailable, lifecycle events disabled")
		} else {
			defer producer.Close()
			dispatcher.SetEventPublisher(producer)
			logger.WithField("brokers", kafkaBrokers).Info("Lifecycle event producer configured")
		}
	}

	handler := api.NewHandler(orderStore, dispatcher, logger)

	router := mux.NewRouter()
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/board", handler.GetBoard).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/orders/{id}/remaining", handler.GetRemaining).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/orders/{id}/accept", handler.AcceptOrder).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/orders/{id}/reject", handler.RejectOrder).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/orders/{id}/ready", handler.MarkOrderReady).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/orders/{id}/handoff", handler.HandOrderToRider).Methods("POST", "OPTIONS")
	router.HandleFunc("/ws", wsHub.HandleWebSocket)

	router.Use(corsMiddleware())
	router.Use(loggingMiddleware(logger))

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":          port,
			"backend":       backendURL,
			"restaurant_id": restaurantID,
		}).Info("Starting kitchen dashboard")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down dashboard...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server gracefully stopped")
}

func loggingMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start).Milliseconds(),
			}).Debug("Request completed")
		})
	}
}

func corsMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Allow all origins for development
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultSeconds int, logger *logrus.Logger) time.Duration {
	raw := getEnv(key, strconv.Itoa(defaultSeconds))
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		logger.WithFields(logrus.Fields{
			"key":           key,
			"invalid_value": raw,
			"default_value": defaultSeconds,
		}).Warn("Invalid duration value, using default")
		seconds = defaultSeconds
	}
	return time.Duration(seconds) * time.Second
}

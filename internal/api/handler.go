package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/tasteline/kitchen-dashboard/internal/dispatch"
	"github.com/tasteline/kitchen-dashboard/internal/store"
	"github.com/tasteline/kitchen-dashboard/internal/timer"
	"github.com/tasteline/kitchen-dashboard/pkg/models"
)

// Handler exposes the order board and the four kitchen actions to the UI.
type Handler struct {
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	logger     *logrus.Logger
}

func NewHandler(st *store.Store, dispatcher *dispatch.Dispatcher, logger *logrus.Logger) *Handler {
	return &Handler{
		store:      st,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// GetBoard returns the three status columns the dashboard renders.
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, h.store.Partitions())
}

// GetRemaining returns the countdown for one preparing order. The value is
// recomputed from wall clock on every call, so re-renders always agree.
func (h *Handler) GetRemaining(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	order, ok := h.store.Get(orderID)
	if !ok {
		h.respondWithError(w, http.StatusNotFound, "Order not found")
		return
	}
	if order.Status != models.StatusPreparing || order.AcceptedAt == nil {
		h.respondWithError(w, http.StatusConflict, "Order is not in preparation")
		return
	}

	remaining := timer.Remaining(*order.AcceptedAt, order.PrepMinutes, time.Now())
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"order_id":     orderID,
		"remaining_ms": remaining.Milliseconds(),
		"display":      timer.Format(remaining),
	})
}

func (h *Handler) AcceptOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	var body struct {
		PrepMinutes int `json:"prep_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.WithError(err).Error("Failed to decode accept request")
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.respondWithAction(w, orderID, h.dispatcher.Accept(orderID, body.PrepMinutes))
}

func (h *Handler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.WithError(err).Error("Failed to decode reject request")
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.respondWithAction(w, orderID, h.dispatcher.Reject(orderID, body.Reason))
}

func (h *Handler) MarkOrderReady(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]
	h.respondWithAction(w, orderID, h.dispatcher.MarkReady(orderID))
}

func (h *Handler) HandOrderToRider(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]
	h.respondWithAction(w, orderID, h.dispatcher.HandToRider(orderID))
}

// respondWithAction reports whether the action applied. A refused action is not
// an error at this level (double clicks and stale cards are expected); the
// current order state, when still tracked, rides along so the UI can resync.
func (h *Handler) respondWithAction(w http.ResponseWriter, orderID string, applied bool) {
	payload := map[string]interface{}{"applied": applied}
	if order, ok := h.store.Get(orderID); ok {
		payload["order"] = order
	}
	h.respondWithJSON(w, http.StatusOK, payload)
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tasteline/kitchen-dashboard/pkg/models"
)

// Client talks to the two backend endpoints the dashboard depends on: the
// active-orders query and the status-update endpoint. Responses are loosely
// typed; normalization happens in the store, not here.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(baseURL string, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// FetchActive returns the backend's current snapshot of active orders for the
// restaurant, as raw records.
func (c *Client) FetchActive(ctx context.Context, restaurantID string) ([]models.RawOrder, error) {
	url := fmt.Sprintf("%s/api/orders/%s/active", c.baseURL, restaurantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active orders: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned error status: %d", resp.StatusCode)
	}

	var raw []models.RawOrder
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"restaurant_id": restaurantID,
		"count":         len(raw),
	}).Debug("Fetched active orders snapshot")

	return raw, nil
}

// PushStatus sends a status mutation to the backend. The response body carries
// nothing the dashboard needs; the caller only cares whether the call landed.
func (c *Client) PushStatus(ctx context.Context, orderID string, update models.StatusUpdate) error {
	jsonData, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal status update: %w", err)
	}

	url := fmt.Sprintf("%s/api/orders/%s/status", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to push status update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("backend returned error status: %d", resp.StatusCode)
	}

	c.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"status":   update.Status,
	}).Info("Status update pushed to backend")

	return nil
}

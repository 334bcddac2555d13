package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// InventoryClient posts reservations to the inventory service over the
// backchannel.
type InventoryClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewInventoryClient creates a reservation client. The transport carries
// the profile's trust rules; baseURL includes the scheme.
func NewInventoryClient(baseURL string, transport http.RoundTripper, logger *slog.Logger) *InventoryClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &InventoryClient{
		baseURL: baseURL,
		client:  &http.Client{Transport: transport, Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type reserveRequest struct {
	OrderID  string   `json:"orderId"`
	ItemSkus []string `json:"itemSkus"`
}

// Reserve posts a reservation for the order's items. The authorization
// header from the originating request is forwarded so the inventory
// service's own gate sees the same principal. Failures are logged, never
// surfaced: reservation is best effort by contract.
func (c *InventoryClient) Reserve(ctx context.Context, order Order, authorization string) {
	body, err := json.Marshal(reserveRequest{OrderID: order.ID, ItemSkus: order.ItemSkus})
	if err != nil {
		c.logger.Error("encode reservation failed", "order_id", order.ID, "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/inventory/reserve", bytes.NewReader(body))
	if err != nil {
		c.logger.Error("build reservation request failed", "order_id", order.ID, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("inventory reservation failed", "order_id", order.ID, "error", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		c.logger.Warn("inventory reservation rejected", "order_id", order.ID, "status", resp.StatusCode)
	}
}

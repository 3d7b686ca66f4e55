package courier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client pushes shipment bookings to the courier partner. The webhook
// half of the integration lives in webhook.go.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// BookShipmentRequest registers an order for courier pickup.
type BookShipmentRequest struct {
	OrderNumber string `json:"order_number"`
	PickupName  string `json:"pickup_name"`
	DropName    string `json:"drop_name"`
	DropAddress string `json:"drop_address"`
	DropPhone   string `json:"drop_phone,omitempty"`
}

// Shipment is the courier's booking confirmation.
type Shipment struct {
	TrackingID string `json:"tracking_id"`
	Status     string `json:"status"`
}

// BookShipment registers the order with the courier using the
// tenant's API token.
func (c *Client) BookShipment(ctx context.Context, token string, req BookShipmentRequest) (*Shipment, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("courier base url not configured")
	}
	if token == "" {
		return nil, fmt.Errorf("courier token is required")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal shipment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/shipments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build shipment request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("courier request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read courier response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("courier returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var shipment Shipment
	if err := json.Unmarshal(respBody, &shipment); err != nil {
		return nil, fmt.Errorf("decode shipment: %w", err)
	}
	return &shipment, nil
}

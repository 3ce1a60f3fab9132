package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mkravets/storefront-bridge/internal/models"
)

type cartResponse struct {
	ID     string            `json:"id"`
	Items  []models.LineItem `json:"line_items"`
	Errors []BackendError    `json:"errors,omitempty"`
}

func (c *Client) GetCart(ctx context.Context, cartID string) (*models.Cart, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/carts/"+url.PathEscape(cartID), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrCartNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get cart failed with status: %d", resp.StatusCode)
	}

	var body cartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(body.Errors) > 0 {
		return nil, fmt.Errorf("get cart %s: %s", cartID, joinBackendErrors(body.Errors))
	}
	return &models.Cart{ID: body.ID, Items: body.Items}, nil
}

// AddLineItems issues one bulk add against the cart. The store reports
// failures as a structured error list, sometimes alongside HTTP 200.
func (c *Client) AddLineItems(ctx context.Context, cartID string, items []models.LineItem) (*models.Cart, error) {
	payload, err := json.Marshal(map[string]any{"line_items": items})
	if err != nil {
		return nil, fmt.Errorf("marshal line items: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/carts/"+url.PathEscape(cartID)+"/items", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrCartNotFound
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("add line items failed with status: %d", resp.StatusCode)
	}

	var body cartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(body.Errors) > 0 {
		return nil, fmt.Errorf("add line items to cart %s: %s", cartID, joinBackendErrors(body.Errors))
	}
	return &models.Cart{ID: body.ID, Items: body.Items}, nil
}

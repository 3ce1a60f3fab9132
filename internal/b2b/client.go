package b2b

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mkravets/storefront-bridge/pkg/logging"
)

// ErrUnavailable means no secondary token could be obtained. Callers proceed
// without one; this error must never fail a login.
var ErrUnavailable = errors.New("b2b token service unavailable")

// Client exchanges a primary authentication result for a secondary-system
// access token. One attempt, no retries: login is never slowed down by a
// flaky B2B service.
type Client struct {
	endpoint   string
	channelID  string
	credential string
	httpClient *http.Client
}

func NewClient(endpoint, channelID, credential string) *Client {
	return &Client{
		endpoint:   endpoint,
		channelID:  channelID,
		credential: credential,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Configured reports whether the exchange can be attempted at all.
func (c *Client) Configured() bool {
	return c.endpoint != "" && c.channelID != "" && c.credential != ""
}

func (c *Client) Exchange(ctx context.Context, customerID, accessToken string) (string, error) {
	if !c.Configured() {
		logging.FromContext(ctx).Debug("b2b_exchange_skipped", "reason", "not_configured")
		return "", ErrUnavailable
	}

	body, err := json.Marshal(map[string]string{
		"channelId":   c.channelID,
		"customerId":  customerID,
		"accessToken": accessToken,
	})
	if err != nil {
		return "", fmt.Errorf("marshal exchange request: %w", ErrUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", ErrUnavailable)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.credential)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange request failed: %v: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure struct {
			Detail string `json:"detail"`
		}
		// Best effort: the error body may not be JSON at all.
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		if failure.Detail == "" {
			failure.Detail = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("token exchange rejected: %s: %w", failure.Detail, ErrUnavailable)
	}

	var result struct {
		Token []string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode exchange response: %v: %w", err, ErrUnavailable)
	}
	if len(result.Token) == 0 || result.Token[0] == "" {
		return "", fmt.Errorf("token exchange returned no token: %w", ErrUnavailable)
	}
	return result.Token[0], nil
}

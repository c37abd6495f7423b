// Package users is the read-only client for the independent Users service.
// The catalog consumes a single endpoint, GET /users, and only cares how
// many entries come back.
package users

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const usersPath = "/users"

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client with a bounded request timeout. The timeout is
// mandatory: this call runs inside request handlers and must not pin one
// on a slow downstream.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Count fetches the remote user list and returns its length.
//
// The distinction between failure modes matters: an unreachable service,
// a timeout, or a body that is not JSON at all is an outage and returns an
// error. A body that parses as JSON but is not an array is a contract-shape
// mismatch, tolerated as a count of zero.
func (c *Client) Count(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+usersPath, nil)
	if err != nil {
		return 0, fmt.Errorf("build users request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch users: %w", err)
	}
	defer resp.Body.Close()

	var body any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode users response: %w", err)
	}

	list, ok := body.([]any)
	if !ok {
		return 0, nil
	}
	return len(list), nil
}

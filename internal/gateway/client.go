package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client talks JSON over HTTP to the payment provider's API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) CreateSession(ctx context.Context, params CreateSessionParams) (Session, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return Session{}, fmt.Errorf("encode session params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return Session{}, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	return c.doSession(req)
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (Session, error) {
	endpoint := c.baseURL + "/v1/checkout/sessions/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Session{}, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	return c.doSession(req)
}

func (c *Client) doSession(req *http.Request) (Session, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Session{}, fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Session{}, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, truncate(payload, 256))
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return Session{}, fmt.Errorf("decode gateway session: %w", err)
	}
	return session, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

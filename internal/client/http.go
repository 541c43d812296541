package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPClient makes REST calls to the claiming backend.
type HTTPClient struct {
	baseURL string
	client  *resty.Client
}

// NewHTTPClient creates a client targeting the given API base URL
// (e.g. "http://127.0.0.1:8001/api"). An empty token sends no auth header.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	baseURL = strings.TrimRight(baseURL, "/")

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}

	return &HTTPClient{
		baseURL: baseURL,
		client:  client,
	}
}

// BaseURL returns the API base the client was built with.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Health fetches the API root.
func (c *HTTPClient) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, "GET /", c.client.R().SetResult(&out), resty.MethodGet, "/"); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetWalletStats fetches /wallet-stats.
func (c *HTTPClient) GetWalletStats(ctx context.Context) (*WalletStats, error) {
	var out WalletStats
	if err := c.do(ctx, "GET /wallet-stats", c.client.R().SetResult(&out), resty.MethodGet, "/wallet-stats"); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetClaimLogs fetches the most recent claim log entries, newest first.
func (c *HTTPClient) GetClaimLogs(ctx context.Context, limit int) ([]ClaimLogEntry, error) {
	var out []ClaimLogEntry
	req := c.client.R().
		SetResult(&out).
		SetQueryParam("limit", strconv.Itoa(limit))
	if err := c.do(ctx, "GET /claim-logs", req, resty.MethodGet, "/claim-logs"); err != nil {
		return nil, err
	}
	if out == nil {
		out = []ClaimLogEntry{}
	}
	return out, nil
}

// GetFaucetSites fetches the site catalog.
func (c *HTTPClient) GetFaucetSites(ctx context.Context) ([]FaucetSite, error) {
	var out []FaucetSite
	if err := c.do(ctx, "GET /faucet-sites", c.client.R().SetResult(&out), resty.MethodGet, "/faucet-sites"); err != nil {
		return nil, err
	}
	if out == nil {
		out = []FaucetSite{}
	}
	return out, nil
}

// GetSessionStatus fetches /session-status/{id}.
func (c *HTTPClient) GetSessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	var out SessionStatus
	req := c.client.R().
		SetResult(&out).
		SetPathParam("sessionID", sessionID)
	if err := c.do(ctx, "GET /session-status", req, resty.MethodGet, "/session-status/{sessionID}"); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetActiveSessions fetches the ids of every session the backend tracks.
func (c *HTTPClient) GetActiveSessions(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, "GET /active-sessions", c.client.R().SetResult(&out), resty.MethodGet, "/active-sessions"); err != nil {
		return nil, err
	}
	return out, nil
}

// StartSession sends POST /start-session.
func (c *HTTPClient) StartSession(ctx context.Context, cfg SessionConfig) (*StartSessionResponse, error) {
	var out StartSessionResponse
	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(cfg).
		SetResult(&out)
	if err := c.do(ctx, "POST /start-session", req, resty.MethodPost, "/start-session"); err != nil {
		return nil, err
	}
	return &out, nil
}

// StopSession sends DELETE /stop-session/{id}.
func (c *HTTPClient) StopSession(ctx context.Context, sessionID string) error {
	req := c.client.R().SetPathParam("sessionID", sessionID)
	return c.do(ctx, "DELETE /stop-session", req, resty.MethodDelete, "/stop-session/{sessionID}")
}

func (c *HTTPClient) do(ctx context.Context, op string, req *resty.Request, method, path string) error {
	var errResponse errorBody
	resp, err := req.
		SetContext(ctx).
		SetError(&errResponse).
		Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !resp.IsSuccess() {
		return &APIError{
			Op:         op,
			StatusCode: resp.StatusCode(),
			Detail:     detailText(errResponse.Detail),
		}
	}
	return nil
}

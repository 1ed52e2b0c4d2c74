// Package client provides the Go SDK for the FundPool HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PoolOverview is the pool state returned by GET /api/v1/pool.
type PoolOverview struct {
	Owner               string `json:"owner"`
	Balance             string `json:"balance"`
	ContributorCount    int    `json:"contributor_count"`
	MinimumUSDThreshold string `json:"minimum_usd_threshold"`
	Cycle               uint64 `json:"cycle"`
	OracleSchemaVersion uint64 `json:"oracle_schema_version"`
}

// Contributor is one row of GET /api/v1/pool/contributors.
type Contributor struct {
	Identity string `json:"identity"`
	Amount   string `json:"amount"`
}

// DepositResult is returned by Deposit.
type DepositResult struct {
	Contributor string `json:"contributor"`
	Amount      string `json:"amount"`
	Total       string `json:"total"`
}

// WithdrawResult is returned by Withdraw.
type WithdrawResult struct {
	Owner  string `json:"owner"`
	Payout string `json:"payout"`
	Cycle  uint64 `json:"cycle"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fundpool: %s (HTTP %d)", e.Message, e.StatusCode)
}

// Client is the FundPool SDK entry point.
type Client struct {
	base       string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer caller token used for deposits and withdrawals.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a Client for the server at base, e.g. "http://localhost:8080".
func New(base string, opts ...Option) *Client {
	c := &Client{
		base:       base,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Overview fetches the pool's current state.
func (c *Client) Overview(ctx context.Context) (*PoolOverview, error) {
	var out PoolOverview
	if err := c.do(ctx, http.MethodGet, "/api/v1/pool", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Deposit contributes amount (a decimal string in native units, e.g. "0.1")
// as the token's identity.
func (c *Client) Deposit(ctx context.Context, amount string) (*DepositResult, error) {
	var out DepositResult
	body := map[string]string{"amount": amount}
	if err := c.do(ctx, http.MethodPost, "/api/v1/pool/deposits", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Withdraw drains the pool to the owner. compact selects the
// storage-compacting variant; the two are observably equivalent.
func (c *Client) Withdraw(ctx context.Context, compact bool) (*WithdrawResult, error) {
	var out WithdrawResult
	body := map[string]bool{"compact": compact}
	if err := c.do(ctx, http.MethodPost, "/api/v1/pool/withdrawals", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Contributors lists all contributors in first-deposit order.
func (c *Client) Contributors(ctx context.Context) ([]Contributor, error) {
	var out struct {
		Contributors []Contributor `json:"contributors"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/pool/contributors", nil, &out); err != nil {
		return nil, err
	}
	return out.Contributors, nil
}

// Contribution returns identity's cumulative contribution; identities that
// never deposited read "0".
func (c *Client) Contribution(ctx context.Context, identityStr string) (string, error) {
	var out struct {
		Amount string `json:"amount"`
	}
	path := "/api/v1/pool/contributions/" + identityStr
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	return out.Amount, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Package client is a Go client for the CMM Stock API. It keeps the session
// the way the dashboard does: the access token in memory, the refresh token
// in a cookie jar, refreshing shortly before the access token expires.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"cmm-stock/internal/core/domain"
	"cmm-stock/internal/pkg/clock"
	"cmm-stock/internal/pkg/jwt"

	"github.com/sethvargo/go-retry"
)

const (
	DefaultAttempts      = 3
	DefaultRetryDelay    = 3 * time.Second
	DefaultRefreshMargin = 30 * time.Second
	// DefaultPollInterval is how often the dashboard reloads a table
	DefaultPollInterval = 30 * time.Second
)

// ErrNotLoggedIn is returned by calls that need a session before Login
var ErrNotLoggedIn = errors.New("client: not logged in")

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cmm api: status %d", e.Status)
	}
	return fmt.Sprintf("cmm api: status %d: %s", e.Status, e.Message)
}

// Transaction is one goods movement as served by the API
type Transaction struct {
	ID            uint      `json:"idtransaksi"`
	HumanID       string    `json:"idtransaksivarchar"`
	PickupDate    time.Time `json:"tanggal_pickup"`
	PlateNumber   string    `json:"nopol"`
	Driver        string    `json:"driver"`
	Source        string    `json:"sumber_barang"`
	ItemName      string    `json:"nama_barang"`
	UnitOfMeasure string    `json:"uom"`
	Quantity      int       `json:"qty"`
}

// Options configures a Client. Zero values take the defaults.
type Options struct {
	HTTPClient    *http.Client
	Attempts      int
	RetryDelay    time.Duration
	RefreshMargin time.Duration
	Clock         clock.Clock
}

// Client talks to one API server
type Client struct {
	baseURL    string
	httpClient *http.Client
	attempts   int
	retryDelay time.Duration
	margin     time.Duration
	clock      clock.Clock

	mu          sync.Mutex
	accessToken string
}

// New creates a client for baseURL
func New(baseURL string, opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		httpClient.Jar = jar
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		attempts:   opts.Attempts,
		retryDelay: opts.RetryDelay,
		margin:     opts.RefreshMargin,
		clock:      opts.Clock,
	}
	if c.attempts < 1 {
		c.attempts = DefaultAttempts
	}
	if c.retryDelay <= 0 {
		c.retryDelay = DefaultRetryDelay
	}
	if c.margin <= 0 {
		c.margin = DefaultRefreshMargin
	}
	if c.clock == nil {
		c.clock = clock.New(nil)
	}
	return c, nil
}

// AccessToken returns the current access token
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *Client) setAccessToken(tok string) {
	c.mu.Lock()
	c.accessToken = tok
	c.mu.Unlock()
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// Login signs in and keeps the session
func (c *Client) Login(ctx context.Context, email, password string) error {
	var out tokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", body, "", &out); err != nil {
		return err
	}
	c.setAccessToken(out.AccessToken)
	return nil
}

// Refresh exchanges the refresh cookie for a new access token
func (c *Client) Refresh(ctx context.Context) error {
	var out tokenResponse
	if err := c.do(ctx, http.MethodGet, "/token", nil, "", &out); err != nil {
		return err
	}
	c.setAccessToken(out.AccessToken)
	return nil
}

// Logout ends the session on the server and forgets the access token
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodDelete, "/logout", nil, "", nil)
	c.setAccessToken("")
	return err
}

// ensureFresh refreshes the access token when it expires within the margin
func (c *Client) ensureFresh(ctx context.Context) (string, error) {
	tok := c.AccessToken()
	if tok == "" {
		return "", ErrNotLoggedIn
	}

	exp, err := jwt.ExpiresAt(tok)
	if err == nil && exp.Sub(c.clock.Now()) > c.margin {
		return tok, nil
	}

	if err := c.Refresh(ctx); err != nil {
		return "", err
	}
	return c.AccessToken(), nil
}

func classPath(class domain.TransactionClass) string {
	if class == domain.ClassOutbound {
		return "/transaksi-keluar"
	}
	return "/transaksi"
}

// ListTransactions fetches the whole table of class. Server errors and
// network failures are retried a fixed number of times with a fixed delay.
func (c *Client) ListTransactions(ctx context.Context, class domain.TransactionClass) ([]Transaction, error) {
	var rows []Transaction

	backoff := retry.WithMaxRetries(uint64(c.attempts-1), retry.NewConstant(c.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		tok, err := c.ensureFresh(ctx)
		if err != nil {
			return err
		}

		rows = nil
		err = c.do(ctx, http.MethodGet, classPath(class), nil, tok, &rows)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return err
		}
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Poll lists class right away and then every interval until ctx is done,
// handing each result to fn. Failed rounds are reported to fn and polling
// goes on. It returns ctx.Err().
func (c *Client) Poll(ctx context.Context, class domain.TransactionClass, interval time.Duration, fn func([]Transaction, error)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		rows, err := c.ListTransactions(ctx, class)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fn(rows, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Summary fetches both tables and summarizes each
func (c *Client) Summary(ctx context.Context) (Summary, error) {
	inbound, err := c.ListTransactions(ctx, domain.ClassInbound)
	if err != nil {
		return Summary{}, err
	}
	outbound, err := c.ListTransactions(ctx, domain.ClassOutbound)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Inbound: Summarize(inbound), Outbound: Summarize(outbound)}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in interface{}, token string, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// Package httpapi is the remote expense API client: GET and POST on
// /api/expense with the session cookie carried along.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"expenseview/internal/core"
	applog "expenseview/internal/log"
	"expenseview/internal/middleware/trace"
	ports "expenseview/internal/remote"
)

// ExpensePath is the collection endpoint on the remote API.
const ExpensePath = "/api/expense"

// Ensure interface conformance
var _ ports.Source = (*Client)(nil)

// Client talks to the remote expense API. Requests carry the cookies held in
// its jar, so a session established with the remote host is reused.
type Client struct {
	http     *http.Client
	endpoint *url.URL
	logger   *applog.Logger
}

// Config holds client settings.
type Config struct {
	// BaseURL is the scheme and host of the remote API, e.g. https://example.com.
	BaseURL string
	// SessionCookie is an optional "name=value" pair seeded into the jar.
	SessionCookie string
	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration
	// Transport overrides the default round tripper (tests).
	Transport http.RoundTripper
	Logger    *applog.Logger
}

type listResponse struct {
	Expenses []core.Expense `json:"expenses"`
}

// New builds a client for cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url scheme %q: must be http or https", base.Scheme)
	}
	if base.Host == "" {
		return nil, errors.New("base url has no host")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if cfg.SessionCookie != "" {
		cookie, err := parseCookie(cfg.SessionCookie)
		if err != nil {
			return nil, err
		}
		jar.SetCookies(base, []*http.Cookie{cookie})
	}

	endpoint := base.JoinPath(ExpensePath)

	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	return &Client{
		http: &http.Client{
			Jar:       jar,
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		endpoint: endpoint,
		logger:   logger.WithComponent(applog.ComponentRemote),
	}, nil
}

func parseCookie(raw string) (*http.Cookie, error) {
	name, value, ok := strings.Cut(strings.TrimSpace(raw), "=")
	if !ok || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("invalid session cookie %q: want name=value", raw)
	}
	return &http.Cookie{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)}, nil
}

// Endpoint returns the absolute collection URL.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// ListExpenses implements remote.ExpenseLister.
func (c *Client) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	req, err := c.newRequest(ctx, http.MethodGet, nil)
	if err != nil {
		return nil, &core.FetchError{Err: err}
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &core.FetchError{Err: err}
	}
	defer res.Body.Close()

	if !isSuccess(res.StatusCode) {
		drain(res.Body)
		return nil, &core.FetchError{Status: res.StatusCode, Err: core.ErrUnexpectedStatus}
	}

	var body listResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, &core.FetchError{Err: fmt.Errorf("decode list response: %w", err)}
	}

	c.logger.DebugContext(ctx, "Fetched expenses",
		applog.FieldCount, len(body.Expenses),
		"url", c.endpoint.String())
	return body.Expenses, nil
}

// CreateExpense implements remote.ExpenseCreator.
func (c *Client) CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return core.Expense{}, &core.SubmitError{Err: fmt.Errorf("marshal expense: %w", err)}
	}

	req, err := c.newRequest(ctx, http.MethodPost, payload)
	if err != nil {
		return core.Expense{}, &core.SubmitError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return core.Expense{}, &core.SubmitError{Err: err}
	}
	defer res.Body.Close()

	if !isSuccess(res.StatusCode) {
		drain(res.Body)
		return core.Expense{}, &core.SubmitError{Status: res.StatusCode, Err: core.ErrUnexpectedStatus}
	}

	var created core.Expense
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		return core.Expense{}, &core.SubmitError{Err: fmt.Errorf("decode created expense: %w", err)}
	}

	c.logger.DebugContext(ctx, "Created expense",
		applog.FieldExpenseID, created.ID,
		"url", c.endpoint.String())
	return created, nil
}

func (c *Client) newRequest(ctx context.Context, method string, body []byte) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint.String(), rd)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")

	requestID := trace.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)
	return req, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// drain lets the transport reuse the connection.
func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64<<10))
}

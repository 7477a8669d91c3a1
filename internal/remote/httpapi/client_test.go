package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseview/internal/core"
	applog "expenseview/internal/log"
	"expenseview/internal/middleware/trace"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, SessionCookie: "session=s3cret", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com", "http://", "::bad"} {
		_, err := New(Config{BaseURL: raw})
		assert.Error(t, err, "base url %q", raw)
	}

	_, err := New(Config{BaseURL: "http://example.com", SessionCookie: "novalue"})
	assert.Error(t, err)
}

func TestEndpoint(t *testing.T) {
	c, err := New(Config{BaseURL: "https://example.com/app"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/app/api/expense", c.Endpoint())
}

func TestListExpenses(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, ExpensePath, r.URL.Path)
		cookie, err := r.Cookie("session")
		if assert.NoError(t, err) {
			assert.Equal(t, "s3cret", cookie.Value)
		}
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `{"expenses":[
			{"_id":"b","date":"2024-01-02","description":"Bus","category":"Transport","amount":2},
			{"_id":"a","date":"2024-01-01","description":"Coffee","category":"Food","amount":3.5}
		]}`)
	})

	got, err := c.ListExpenses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.Expense{
		{ID: "b", Date: "2024-01-02", Description: "Bus", Category: "Transport", Amount: 2},
		{ID: "a", Date: "2024-01-01", Description: "Coffee", Category: "Food", Amount: 3.5},
	}, got)
}

func TestLogsThroughInjectedLogger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"expenses":[]}`)
	}))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelDebug, Output: &buf})
	c, err := New(Config{BaseURL: srv.URL, Logger: logger})
	require.NoError(t, err)

	_, err = c.ListExpenses(context.Background())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Fetched expenses")
	assert.Contains(t, buf.String(), "component=remote")
}

func TestListExpensesMissingFieldIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})
	got, err := c.ListExpenses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListExpensesForwardsRequestID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-42", r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `{"expenses":[]}`)
	})
	ctx := context.WithValue(context.Background(), trace.RequestIDKey, "req-42")
	_, err := c.ListExpenses(ctx)
	require.NoError(t, err)
}

func TestListExpensesFailures(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		_, err := c.ListExpenses(context.Background())
		var fe *core.FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, http.StatusInternalServerError, fe.Status)
		assert.ErrorIs(t, err, core.ErrUnexpectedStatus)
	})

	t.Run("unauthorized", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		_, err := c.ListExpenses(context.Background())
		var fe *core.FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, http.StatusUnauthorized, fe.Status)
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `not json`)
		})
		_, err := c.ListExpenses(context.Background())
		var fe *core.FetchError
		require.ErrorAs(t, err, &fe)
	})

	t.Run("transport", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		c, err := New(Config{BaseURL: srv.URL})
		require.NoError(t, err)
		_, err = c.ListExpenses(context.Background())
		var fe *core.FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, 0, fe.Status)
		assert.False(t, errors.Is(err, core.ErrUnexpectedStatus))
	})
}

func TestCreateExpense(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{
			"date": "2024-01-01", "description": "Coffee", "category": "Food", "amount": 3.5,
		}, body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"_id":"abc123","date":"2024-01-01","description":"Coffee","category":"Food","amount":3.5}`)
	})

	got, err := c.CreateExpense(context.Background(), core.NewExpense{
		Date: "2024-01-01", Description: "Coffee", Category: "Food", Amount: 3.5,
	})
	require.NoError(t, err)
	assert.Equal(t, core.Expense{ID: "abc123", Date: "2024-01-01", Description: "Coffee", Category: "Food", Amount: 3.5}, got)
}

func TestCreateExpenseRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad amount", http.StatusBadRequest)
	})
	_, err := c.CreateExpense(context.Background(), core.NewExpense{Date: "d", Description: "x", Category: "c", Amount: 1})
	var se *core.SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Status)
}

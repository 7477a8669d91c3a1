package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"expenseview/internal/core"
)

func TestRequestBodyParser_Draft(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        core.Draft
		wantJSON    bool
	}{
		{
			name:        "form encoded",
			contentType: "application/x-www-form-urlencoded",
			body:        "date=2024-01-01&description=Coffee&category=Food&amount=3.50",
			want:        core.Draft{Date: "2024-01-01", Description: "Coffee", Category: "Food", Amount: "3.50"},
		},
		{
			name:        "json with numeric amount",
			contentType: "application/json",
			body:        `{"date":"2024-01-01","description":"Lunch","category":"Food","amount":12.5}`,
			want:        core.Draft{Date: "2024-01-01", Description: "Lunch", Category: "Food", Amount: "12.5"},
			wantJSON:    true,
		},
		{
			name:        "control characters stripped, whitespace kept",
			contentType: "application/x-www-form-urlencoded",
			body:        "description=%20Tea%07%20&category=%20%20&amount=abc",
			want:        core.Draft{Description: " Tea ", Category: "  ", Amount: "abc"},
		},
		{
			name: "empty body",
			want: core.Draft{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/expense", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)

			p := NewRequestBodyParser(httptest.NewRecorder(), req)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := p.Draft(); got != tt.want {
				t.Errorf("Draft() = %+v, want %+v", got, tt.want)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
			wantFormat := "form"
			if tt.wantJSON {
				wantFormat = "json"
			}
			if got := p.Format(); got != wantFormat {
				t.Errorf("Format() = %q, want %q", got, wantFormat)
			}
		})
	}
}

func TestRequestBodyParser_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/expense", strings.NewReader(`{"date":`))
	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err == nil {
		t.Fatal("Parse() should fail for truncated JSON")
	}
	// Parse is memoized.
	if err := p.Parse(); err == nil {
		t.Fatal("second Parse() should return the same error")
	}
}

func TestRequestBodyParser_TooLarge(t *testing.T) {
	body := "description=Coffee&amount=" + strings.Repeat("1", maxBodyBytes)
	req := httptest.NewRequest(http.MethodPost, "/expense", strings.NewReader(body))
	p := NewRequestBodyParser(httptest.NewRecorder(), req)
	if err := p.Parse(); err == nil {
		t.Fatal("Parse() should fail for an oversized body")
	}
	if !p.TooLarge() {
		t.Error("TooLarge() = false, want true")
	}
}

func TestStringValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"x", "x"},
		{3.5, "3.5"},
		{float64(12), "12"},
		{true, "true"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := stringValue(tt.in); got != tt.want {
			t.Errorf("stringValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

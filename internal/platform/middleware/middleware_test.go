package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func TestRequestID_GeneratesNew(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		rid := c.Get("request_id").(string)
		if rid == "" {
			t.Error("expected request_id to be generated")
		}
		return c.String(http.StatusOK, "ok")
	}

	h := RequestID()(handler)
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "my-custom-id")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		rid := c.Get("request_id").(string)
		if rid != "my-custom-id" {
			t.Errorf("expected my-custom-id, got %s", rid)
		}
		return c.String(http.StatusOK, "ok")
	}

	h := RequestID()(handler)
	h(c)

	if rec.Header().Get(RequestIDHeader) != "my-custom-id" {
		t.Errorf("expected my-custom-id in response header, got %s", rec.Header().Get(RequestIDHeader))
	}
}

func TestLogger_LogsRequest(t *testing.T) {
	logger := zerolog.New(os.Stderr).With().Logger()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	h := Logger(logger)(handler)
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecovery_CatchesPanic(t *testing.T) {
	logger := zerolog.New(os.Stderr).With().Logger()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		panic("test panic")
	}

	err := Recovery(logger)(handler)(c)
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", httpErr.Code)
	}
}

func TestRecovery_PassesThrough(t *testing.T) {
	logger := zerolog.New(os.Stderr).With().Logger()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	if err := Recovery(logger)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBodyLimit_RejectsOversizedBody(t *testing.T) {
	e := echo.New()
	body := strings.NewReader(strings.Repeat("x", 2048))
	req := httptest.NewRequest(http.MethodPost, "/api/users", body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	err := BodyLimit("1K", "100M")(handler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", httpErr.Code)
	}
}

func TestBodyLimit_UploadPathUsesUploadLimit(t *testing.T) {
	e := echo.New()
	body := strings.NewReader(strings.Repeat("x", 2048))
	req := httptest.NewRequest(http.MethodPost, "/api/cases/abc/documents", body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	if err := BodyLimit("1K", "1M")(handler)(c); err != nil {
		t.Fatalf("expected upload path to accept 2K body, got %v", err)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1K", 1 << 10},
		{"10M", 10 << 20},
		{"1G", 1 << 30},
		{"512", 512},
		{"", 1 << 20},
		{"garbage", 1 << 20},
	}
	for _, tt := range tests {
		if got := parseLimit(tt.in); got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRequestTimeout_Expires(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/slow", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		select {
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		case <-time.After(time.Second):
			return c.String(http.StatusOK, "ok")
		}
	}

	err := RequestTimeout(10 * time.Millisecond)(handler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", httpErr.Code)
	}
}

func TestMetrics_CountsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/cases", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/cases")

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	if err := m.Middleware()(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "hms_http_requests_total" {
			found = true
			if len(mf.GetMetric()) != 1 {
				t.Errorf("expected 1 series, got %d", len(mf.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("expected hms_http_requests_total to be registered")
	}
}

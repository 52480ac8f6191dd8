package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestFromContext_Defaults(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=50&offset=10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.Limit != 50 {
		t.Errorf("expected limit 50, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=5000", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)

	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeOffset(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?offset=-5", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	p := FromContext(c)
	if p.Offset != 0 {
		t.Errorf("expected offset clamped to 0, got %d", p.Offset)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	r := NewResponse([]int{1, 2, 3}, 10, 3, 0)
	if !r.HasMore {
		t.Error("expected HasMore true when offset+limit < total")
	}

	r = NewResponse([]int{1}, 10, 5, 5)
	if r.HasMore {
		t.Error("expected HasMore false on last page")
	}
}

func TestParams_SQL(t *testing.T) {
	p := Params{Limit: 20, Offset: 40}
	if got := p.SQL(); got != "LIMIT 20 OFFSET 40" {
		t.Errorf("unexpected SQL clause: %s", got)
	}
}

func TestParams_NextOffset(t *testing.T) {
	p := Params{Limit: 20, Offset: 40}
	if p.NextOffset() != 60 {
		t.Errorf("expected next offset 60, got %d", p.NextOffset())
	}
	if !p.HasNext(100) {
		t.Error("expected HasNext true with total 100")
	}
	if p.HasNext(60) {
		t.Error("expected HasNext false with total 60")
	}
}

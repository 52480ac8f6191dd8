package cases

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careops/hms/internal/platform/db"
	"github.com/careops/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers case read and lifecycle endpoints. Creation
// and editing go through the intake wizard, not through this handler.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/cases")
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/assign", h.Assign)
	g.POST("/:id/status", h.UpdateStatus)
	g.GET("/:id/versions", h.Versions)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) Delete(c echo.Context) error {
	hospitalID := db.HospitalFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), hospitalID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Get(c echo.Context) error {
	hospitalID := db.HospitalFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	detail, err := h.svc.Get(c.Request().Context(), hospitalID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) List(c echo.Context) error {
	hospitalID := db.HospitalFromContext(c.Request().Context())
	p := pagination.FromContext(c)

	f := ListFilter{Status: c.QueryParam("status")}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = id
	}
	if v := c.QueryParam("assignee_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid assignee_id")
		}
		f.AssigneeID = id
	}

	out, total, err := h.svc.List(c.Request().Context(), hospitalID, f, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(out, total, p.Limit, p.Offset))
}

func (h *Handler) Assign(c echo.Context) error {
	hospitalID := db.HospitalFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	mc, err := h.svc.Assign(c.Request().Context(), hospitalID, id, body.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, mc)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	hospitalID := db.HospitalFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	mc, err := h.svc.UpdateStatus(c.Request().Context(), hospitalID, id, body.Status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, mc)
}

func (h *Handler) Versions(c echo.Context) error {
	hospitalID := db.HospitalFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	versions, err := h.svc.Versions(c.Request().Context(), hospitalID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, versions)
}

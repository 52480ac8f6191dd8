package catalog

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

// RegisterRoutes registers one CRUD group per reference entity kind
// (/departments, /exams, /procedures, /modalities, /sedations) plus the
// exam-procedure endpoints, all inside the hospital-scoped API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	for _, kind := range Kinds {
		k := kind
		g := api.Group("/" + k.Route())
		g.POST("", func(c echo.Context) error { return h.create(c, k) })
		g.GET("", func(c echo.Context) error { return h.list(c, k) })
		g.GET("/:id", func(c echo.Context) error { return h.get(c, k) })
		g.PUT("/:id", func(c echo.Context) error { return h.update(c, k) })
		g.DELETE("/:id", func(c echo.Context) error { return h.delete(c, k) })
	}

	ep := api.Group("/exam-procedures")
	ep.POST("", h.createExamProcedure)
	ep.GET("", h.listExamProcedures)
	ep.GET("/:id", h.getExamProcedure)
	ep.DELETE("/:id", h.deleteExamProcedure)
}

func (h *Handler) create(c echo.Context, kind Kind) error {
	hospitalID := db.HospitalFromContext(c.Request().Context())
	var in RefInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ref, err := h.svc.Create(c.Request().Context(), kind, hospitalID, &in)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, ref)
}

func (h *Handler) get(c echo.Context, kind Kind) error {
	hospitalID := db.HospitalFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ref, err := h.svc.Get(c.Request().Context(), kind, hospitalID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ref)
}

func (h *Handler) list(c echo.Context, kind Kind) error {
	hospitalID := db.HospitalFromContext(c.Request().Context())
	p := pagination.FromContext(c)
	refs, total, err := h.svc.List(c.Request().Context(), kind, hospitalID, c.QueryParam("name"), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(refs, total, p.Limit, p.Offset))
}

func (h *Handler) update(c echo.Context, kind Kind) error {
	hospitalID := db.HospitalFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in RefInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ref, err := h.svc.Update(c.Request().Context(), kind, hospitalID, id, &in)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, ref)
}

func (h *Handler) delete(c echo.Context, kind Kind) error {
	hospitalID := db.HospitalFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), kind, hospitalID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) createExamProcedure(c echo.Context) error {
	hospitalID := db.HospitalFromContext(c.Request().Context())
	var in ExamProcedureInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ep, err := h.svc.CreateExamProcedure(c.Request().Context(), hospitalID, &in)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, ep)
}

func (h *Handler) getExamProcedure(c echo.Context) error {
	hospitalID := db.HospitalFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ep, err := h.svc.GetExamProcedure(c.Request().Context(), hospitalID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ep)
}

func (h *Handler) listExamProcedures(c echo.Context) error {
	hospitalID := db.HospitalFromContext(c.Request().Context())
	p := pagination.FromContext(c)
	eps, total, err := h.svc.ListExamProcedures(c.Request().Context(), hospitalID, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(eps, total, p.Limit, p.Offset))
}

func (h *Handler) deleteExamProcedure(c echo.Context) error {
	hospitalID := db.HospitalFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteExamProcedure(c.Request().Context(), hospitalID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

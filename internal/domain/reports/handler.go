package reports

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careops/hms/internal/domain/cases"
	"github.com/careops/hms/internal/platform/auth"
	"github.com/careops/hms/internal/platform/db"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/cases/:case_id/reports", h.Generate)
	api.GET("/cases/:case_id/reports", h.ListByCase)

	g := api.Group("/reports")
	g.GET("/:id", h.Get)
	g.GET("/:id/export/:format", h.Export)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/slides", h.AddSlides)
	g.GET("/:id/slides", h.Slides)
	g.GET("/:id/deck", h.Deck)
}

func (h *Handler) Generate(c echo.Context) error {
	ctx := c.Request().Context()
	caseID, err := uuid.Parse(c.Param("case_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	var body struct {
		Title     string `json:"title"`
		Narrative bool   `json:"narrative"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	generatedBy, _ := uuid.Parse(auth.UserIDFromContext(ctx))

	rep, err := h.svc.Generate(ctx, db.HospitalFromContext(ctx), caseID, generatedBy, body.Title, body.Narrative)
	if err != nil {
		if errors.Is(err, cases.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, rep)
}

func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rep, err := h.svc.Get(ctx, db.HospitalFromContext(ctx), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) ListByCase(c echo.Context) error {
	ctx := c.Request().Context()
	caseID, err := uuid.Parse(c.Param("case_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	reps, err := h.svc.ListByCase(ctx, db.HospitalFromContext(ctx), caseID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, reps)
}

func (h *Handler) Export(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	out, contentType, err := h.svc.Export(ctx, db.HospitalFromContext(ctx), id, c.Param("format"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.Blob(http.StatusOK, contentType, out)
}

func (h *Handler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(ctx, db.HospitalFromContext(ctx), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddSlides(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var inputs []SlideInput
	if err := c.Bind(&inputs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	slides, err := h.svc.AddSlides(ctx, db.HospitalFromContext(ctx), id, inputs)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, slides)
}

func (h *Handler) Slides(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	slides, err := h.svc.Slides(ctx, db.HospitalFromContext(ctx), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, slides)
}

func (h *Handler) Deck(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var buf bytes.Buffer
	if err := h.svc.WriteDeck(ctx, db.HospitalFromContext(ctx), id, &buf); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="deck.zip"`)
	return c.Blob(http.StatusOK, "application/zip", buf.Bytes())
}

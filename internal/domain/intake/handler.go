package intake

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careops/hms/internal/platform/auth"
	"github.com/careops/hms/internal/platform/db"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the wizard endpoints. Every response uses the
// envelope {success, errors?, case_id?, draft?} so clients drive all
// three steps off one shape.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/cases/intake")
	g.POST("", h.Start)
	g.POST("/edit/:case_id", h.StartEdit)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/step1", h.SaveStep1)
	g.POST("/:id/step2", h.SaveStep2)
	g.POST("/:id/step3", h.Submit)
	g.DELETE("/:id", h.Discard)
}

// technicianID parses the authenticated subject. Drafts are keyed by it,
// so a token without a usable subject cannot drive the wizard.
func technicianID(ctx context.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}
	return id, nil
}

type envelope struct {
	Success bool              `json:"success"`
	Errors  map[string]string `json:"errors,omitempty"`
	CaseID  *uuid.UUID        `json:"case_id,omitempty"`
	Draft   *Draft            `json:"draft,omitempty"`
}

func ok(c echo.Context, status int, d *Draft) error {
	return c.JSON(status, envelope{Success: true, Draft: d})
}

func stepError(c echo.Context, err error) error {
	var fieldErrs FieldErrors
	if errors.As(err, &fieldErrs) {
		return c.JSON(http.StatusUnprocessableEntity, envelope{Success: false, Errors: fieldErrs})
	}
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return c.JSON(http.StatusBadRequest, envelope{Success: false, Errors: map[string]string{"_": err.Error()}})
}

func (h *Handler) Start(c echo.Context) error {
	ctx := c.Request().Context()
	techID, err := technicianID(ctx)
	if err != nil {
		return err
	}
	d, err := h.svc.Start(ctx, db.HospitalFromContext(ctx), techID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return ok(c, http.StatusCreated, d)
}

func (h *Handler) StartEdit(c echo.Context) error {
	ctx := c.Request().Context()
	caseID, err := uuid.Parse(c.Param("case_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	techID, err := technicianID(ctx)
	if err != nil {
		return err
	}
	d, err := h.svc.StartEdit(ctx, db.HospitalFromContext(ctx), techID, caseID)
	if err != nil {
		return stepError(c, err)
	}
	return ok(c, http.StatusCreated, d)
}

func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	techID, err := technicianID(ctx)
	if err != nil {
		return err
	}
	d, err := h.svc.Get(ctx, db.HospitalFromContext(ctx), techID, id)
	if err != nil {
		return stepError(c, err)
	}
	return ok(c, http.StatusOK, d)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	techID, err := technicianID(ctx)
	if err != nil {
		return err
	}
	drafts, err := h.svc.List(ctx, db.HospitalFromContext(ctx), techID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, drafts)
}

func (h *Handler) SaveStep1(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in Step1Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	techID, err := technicianID(ctx)
	if err != nil {
		return err
	}
	d, err := h.svc.SaveStep1(ctx, db.HospitalFromContext(ctx), techID, id, &in)
	if err != nil {
		return stepError(c, err)
	}
	return ok(c, http.StatusOK, d)
}

func (h *Handler) SaveStep2(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in Step2Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	techID, err := technicianID(ctx)
	if err != nil {
		return err
	}
	d, err := h.svc.SaveStep2(ctx, db.HospitalFromContext(ctx), techID, id, &in)
	if err != nil {
		return stepError(c, err)
	}
	return ok(c, http.StatusOK, d)
}

func (h *Handler) Submit(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in Step3Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	techID, err := technicianID(ctx)
	if err != nil {
		return err
	}
	caseID, err := h.svc.Submit(ctx, db.HospitalFromContext(ctx), techID, id, &in)
	if err != nil {
		return stepError(c, err)
	}
	return c.JSON(http.StatusCreated, envelope{Success: true, CaseID: &caseID})
}

func (h *Handler) Discard(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	techID, err := technicianID(ctx)
	if err != nil {
		return err
	}
	if err := h.svc.Discard(ctx, db.HospitalFromContext(ctx), techID, id); err != nil {
		return stepError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

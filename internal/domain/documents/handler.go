package documents

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careops/hms/internal/platform/auth"
	"github.com/careops/hms/internal/platform/db"
	"github.com/careops/hms/internal/platform/storage"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/cases/:case_id/documents", h.Upload)
	api.GET("/cases/:case_id/documents", h.ListByCase)
	api.GET("/documents/:id", h.Get)
	api.GET("/documents/:id/download", h.Download)
	api.DELETE("/documents/:id", h.Delete)
}

func (h *Handler) Upload(c echo.Context) error {
	ctx := c.Request().Context()
	hospitalID := db.HospitalFromContext(ctx)
	caseID, err := uuid.Parse(c.Param("case_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	uploaderID, _ := uuid.Parse(auth.UserIDFromContext(ctx))

	var procID *uuid.UUID
	if v := c.FormValue("case_exam_procedure_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid case_exam_procedure_id")
		}
		procID = &id
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file field is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	d, err := h.svc.Upload(ctx, hospitalID, caseID, uploaderID, procID,
		fh.Filename, fh.Header.Get("Content-Type"), fh.Size, src)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		if errors.Is(err, storage.ErrDisabled) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "document storage is disabled")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.Get(ctx, db.HospitalFromContext(ctx), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListByCase(c echo.Context) error {
	ctx := c.Request().Context()
	caseID, err := uuid.Parse(c.Param("case_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid case id")
	}
	docs, err := h.svc.ListByCase(ctx, db.HospitalFromContext(ctx), caseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, docs)
}

// Download redirects to a presigned URL when the backend provides one,
// and proxies the bytes otherwise.
func (h *Handler) Download(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	hospitalID := db.HospitalFromContext(ctx)

	d, url, err := h.svc.DownloadURL(ctx, hospitalID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if url != "" {
		return c.Redirect(http.StatusFound, url)
	}

	_, rc, err := h.svc.Open(ctx, hospitalID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+d.Name+`"`)
	contentType := d.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return c.Stream(http.StatusOK, contentType, rc)
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

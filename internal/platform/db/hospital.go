package db

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type contextKey string

const HospitalIDKey contextKey = "hospital_id"

// HospitalResolver checks that a hospital id refers to an existing, active
// hospital. Implemented by the hospital repository; injected here to avoid
// an import cycle between platform and domain packages.
type HospitalResolver interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// HospitalMiddleware resolves the caller's current hospital for every
// request and stores it in the request context. Every repository query
// filters by this id; a request without a resolvable hospital is rejected
// before any handler runs.
//
// Resolution order: JWT claim (set by the auth middleware), X-Hospital-ID
// header, hospital_id query param, then the configured default.
func HospitalMiddleware(resolver HospitalResolver, defaultHospital string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := extractHospitalID(c, defaultHospital)
			if raw == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "no hospital context")
			}

			hospitalID, err := uuid.Parse(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid hospital identifier")
			}

			ctx := c.Request().Context()
			ok, err := resolver.Exists(ctx, hospitalID)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "hospital resolution failed")
			}
			if !ok {
				// Unknown hospital reads the same as a missing resource.
				return echo.NewHTTPError(http.StatusNotFound, "not found")
			}

			ctx = context.WithValue(ctx, HospitalIDKey, hospitalID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("hospital_id", hospitalID)

			return next(c)
		}
	}
}

func extractHospitalID(c echo.Context, defaultHospital string) string {
	// 1. Check JWT claim (set by auth middleware)
	if hid, ok := c.Get("jwt_hospital_id").(string); ok && hid != "" {
		return hid
	}

	// 2. Check X-Hospital-ID header
	if hid := c.Request().Header.Get("X-Hospital-ID"); hid != "" {
		return hid
	}

	// 3. Check query parameter
	if hid := c.QueryParam("hospital_id"); hid != "" {
		return hid
	}

	return defaultHospital
}

// HospitalFromContext retrieves the current hospital id from context.
// Returns uuid.Nil when no hospital was resolved.
func HospitalFromContext(ctx context.Context) uuid.UUID {
	hid, _ := ctx.Value(HospitalIDKey).(uuid.UUID)
	return hid
}

// WithHospital returns a context carrying the given hospital id. Used by
// the CLI and by tests, which have no HTTP request to resolve from.
func WithHospital(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, HospitalIDKey, id)
}

// PoolFromConfigURL is a convenience used by cobra subcommands that need a
// short-lived pool outside the server wiring.
func PoolFromConfigURL(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	return NewPool(ctx, databaseURL, 4, 1)
}

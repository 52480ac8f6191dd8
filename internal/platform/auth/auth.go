// Package auth provides JWT bearer authentication and role checks for the
// hospital administration API. Tokens carry the user id, the user's role
// and the hospital the session is scoped to; the hospital claim feeds the
// tenancy middleware in internal/platform/db.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
)

// Claims is the JWT payload for an authenticated session.
type Claims struct {
	Role       string `json:"role"`
	HospitalID string `json:"hospital_id"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for the given user. Used by the login surface
// (out of scope here) and heavily by tests.
func IssueToken(secret []byte, userID, role, hospitalID string, ttl time.Duration) (string, error) {
	claims := &Claims{
		Role:       role,
		HospitalID: hospitalID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Middleware validates the Authorization bearer token and stores the
// user id, role and hospital claim for downstream middleware.
func Middleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			// Hospital claim is read by the tenancy middleware.
			c.Set("jwt_hospital_id", claims.HospitalID)

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// DevMiddleware is a permissive middleware for development that allows
// unauthenticated requests with admin defaults.
func DevMiddleware(defaultHospital string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				c.Set("jwt_hospital_id", defaultHospital)
				ctx := c.Request().Context()
				ctx = context.WithValue(ctx, UserIDKey, "dev-user")
				ctx = context.WithValue(ctx, UserRoleKey, "admin")
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}

// RequireRole returns middleware allowing only the listed roles. Admin
// passes every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := RoleFromContext(c.Request().Context())
			if role == "admin" {
				return next(c)
			}
			for _, required := range roles {
				if role == required {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}

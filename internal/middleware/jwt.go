// Package middleware provides reusable HTTP middleware for the auth
// service: request admission from the Authorization header, role gating,
// and credential-endpoint rate limiting.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/quickeats/quickeats/internal/model"
	"github.com/quickeats/quickeats/internal/token"
)

// Context keys populated by Admission for downstream handlers.
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRole   = "role"
)

// Admission returns an Echo middleware that verifies the Bearer access
// token and injects the verified identity into the request context. It is
// a pure function of the Authorization header and the codec: the refresh
// token store is never consulted, so a revoked session stays admissible
// until its access token expires. Expired and invalid tokens get distinct
// diagnostics.
func Admission(signer *token.Signer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := signer.Verify(raw)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, token.ErrTokenExpired) {
					msg = "token expired"
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
			}

			c.Set(CtxUserID, claims.UserID())
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxRole, claims.Role)
			return next(c)
		}
	}
}

// RoleFrom extracts the verified role injected by Admission. The zero
// value is returned when admission did not run.
func RoleFrom(c echo.Context) model.Role {
	if r, ok := c.Get(CtxRole).(model.Role); ok {
		return r
	}
	return ""
}

// UserIDFrom extracts the verified user id injected by Admission.
func UserIDFrom(c echo.Context) uint64 {
	if id, ok := c.Get(CtxUserID).(uint64); ok {
		return id
	}
	return 0
}

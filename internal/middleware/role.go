package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quickeats/quickeats/internal/model"
)

// RequireRole enforces that the admitted user carries one of the given
// roles. It assumes Admission already ran and stored the role in context;
// a missing or unknown role is rejected the same way as a wrong one.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[RoleFrom(c)] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

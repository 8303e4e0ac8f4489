// Package router registers the auth service's HTTP routes and attaches
// admission, role and rate-limit middleware to the right groups.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/quickeats/quickeats/internal/handler"
	"github.com/quickeats/quickeats/internal/middleware"
	"github.com/quickeats/quickeats/internal/model"
	"github.com/quickeats/quickeats/internal/token"
)

// RegisterRoutes registers routes that require no authentication:
// the health check and the public driver listing.
func RegisterRoutes(e *echo.Echo, users *handler.UserHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/drivers", users.Drivers)
}

// RegisterAuth registers the credential endpoints. The limiter middleware
// guards the unauthenticated ones; federated routes are skipped when no
// provider is configured.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	e.POST("/register", a.Register, limiter)
	e.POST("/login", a.Login, limiter)
	e.POST("/refresh", a.Refresh, limiter)
	e.POST("/logout", a.Logout)
	e.POST("/verify", a.Verify)

	if a.Provider != nil {
		e.GET("/auth/google", a.GoogleLogin)
		e.GET("/auth/google/callback", a.GoogleCallback)
	}
}

// RegisterUsers registers the user CRUD endpoints behind the admission
// middleware. Listing and deletion are restricted to Admins; reads and
// profile updates are open to any admitted role (updates additionally
// check ownership in the handler).
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, signer *token.Signer) {
	g := e.Group("/users")
	g.Use(middleware.Admission(signer))

	g.GET("", u.List, middleware.RequireRole(model.RoleAdmin))
	g.GET("/:id", u.Get)
	g.PUT("/:id", u.Update)
	g.DELETE("/:id", u.Delete, middleware.RequireRole(model.RoleAdmin))
}

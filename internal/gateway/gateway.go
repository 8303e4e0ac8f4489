// Package gateway implements the stateless API gateway: origin and
// content-security-policy gating followed by prefix-based reverse proxying
// to the downstream services. The gateway performs no authentication; that
// is the auth service's job behind the /auth prefix.
package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/quickeats/quickeats/internal/config"
)

// contentSecurityPolicy is the fixed CSP applied to every response.
const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' https://trusted.cdn.com; " +
	"style-src 'self' https://fonts.googleapis.com; " +
	"font-src 'self' https://fonts.gstatic.com; " +
	"img-src 'self' data:; " +
	"connect-src 'self'; " +
	"frame-ancestors 'self'; " +
	"object-src 'none'; " +
	"upgrade-insecure-requests"

// New builds the gateway's Echo application: security middleware, static
// crawler endpoints, one proxy mount per downstream prefix and a liveness
// fallback for everything else.
func New(cfg config.GatewayConfig, log *zap.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true

	e.Use(originAllowList(cfg.AllowedOrigins))
	e.Use(securityHeaders())

	e.GET("/robots.txt", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "text/plain", []byte("User-agent: *\nDisallow: /\n"))
	})
	e.GET("/sitemap.xml", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/xml",
			[]byte(`<?xml version="1.0" encoding="UTF-8"?>`+"\n"+
				`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`+"\n</urlset>\n"))
	})

	mounts := []struct {
		prefix string
		target string
	}{
		{"/auth", cfg.Services.Auth},
		{"/restaurants", cfg.Services.Restaurants},
		{"/orders", cfg.Services.Orders},
		{"/notifications", cfg.Services.Notifications},
		{"/payments", cfg.Services.Payments},
		{"/delivery", cfg.Services.Delivery},
	}
	for _, m := range mounts {
		if err := mount(e, m.prefix, m.target, log); err != nil {
			return nil, fmt.Errorf("mount %s: %w", m.prefix, err)
		}
	}

	live := func(c echo.Context) error {
		return c.String(http.StatusOK, "API Gateway is running...")
	}
	e.GET("/", live)
	e.RouteNotFound("/*", live)

	return e, nil
}

// mount attaches a reverse proxy for one path prefix. The request path is
// forwarded untouched; only the Host header is rewritten to the target
// (changeOrigin), since downstream services route by their own hostnames.
func mount(e *echo.Echo, prefix, target string, log *zap.Logger) error {
	u, err := url.Parse(target)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("target %q has no scheme or host", target)
	}

	proxy := httputil.NewSingleHostReverseProxy(u)
	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		r.Host = u.Host
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("upstream unavailable",
			zap.String("prefix", prefix),
			zap.String("target", target),
			zap.Error(err))
		w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream unavailable"}`))
	}

	h := echo.WrapHandler(proxy)
	g := e.Group(prefix)
	g.Any("", h)
	g.Any("/*", h)
	return nil
}

// originAllowList validates the Origin header against an explicit
// allow-list before anything is proxied. Requests without an Origin
// (curl, server-to-server) pass through; browser requests from an
// unlisted origin are rejected here and never reach a downstream target.
func originAllowList(origins []string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get(echo.HeaderOrigin)
			if origin == "" {
				return next(c)
			}
			if !allowed[origin] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "origin not allowed"})
			}

			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, origin)
			h.Set(echo.HeaderAccessControlAllowCredentials, "true")
			h.Add(echo.HeaderVary, echo.HeaderOrigin)
			if c.Request().Method == http.MethodOptions {
				h.Set(echo.HeaderAccessControlAllowMethods, "GET, POST, PUT, DELETE, OPTIONS")
				h.Set(echo.HeaderAccessControlAllowHeaders, "Content-Type, Authorization")
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}

// securityHeaders applies the fixed security header set to every response.
func securityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderContentSecurityPolicy, contentSecurityPolicy)
			h.Set(echo.HeaderXContentTypeOptions, "nosniff")
			h.Set(echo.HeaderXFrameOptions, "SAMEORIGIN")
			h.Set(echo.HeaderReferrerPolicy, "no-referrer")
			return next(c)
		}
	}
}

// Package handler contains the HTTP handlers of the auth service. Handlers
// translate transport payloads into session/repository calls and map the
// sentinel errors back onto HTTP statuses; they hold no business rules of
// their own.
package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/quickeats/quickeats/internal/model"
	"github.com/quickeats/quickeats/internal/oauth"
	"github.com/quickeats/quickeats/internal/repository"
	"github.com/quickeats/quickeats/internal/session"
	"github.com/quickeats/quickeats/internal/token"
)

// dbTimeout bounds every persistence call made from a handler.
const dbTimeout = 5 * time.Second

// AuthHandler bundles dependencies for the credential endpoints.
type AuthHandler struct {
	Issuer         *session.Issuer
	Signer         *token.Signer
	Provider       oauth.Provider // nil when federated login is not configured
	FrontendOrigin string
	Log            *zap.Logger
}

func NewAuthHandler(issuer *session.Issuer, signer *token.Signer, provider oauth.Provider, frontendOrigin string, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		Issuer:         issuer,
		Signer:         signer,
		Provider:       provider,
		FrontendOrigin: frontendOrigin,
		Log:            log,
	}
}

// ----- DTOs -----

type registerReq struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}
type verifyReq struct {
	AccessToken string `json:"accessToken"`
}

type userSummary struct {
	ID        uint64     `json:"id"`
	FirstName string     `json:"firstname"`
	LastName  string     `json:"lastname"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Role      model.Role `json:"role"`
}

type tokenResp struct {
	User         userSummary `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresAt    time.Time   `json:"expiresAt"`
	RedirectTo   string      `json:"redirectTo"`
}

func summarize(u model.User) userSummary {
	return userSummary{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
	}
}

// Register creates an account and returns its summary. It deliberately
// does not issue tokens; clients log in as a second step.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := timeoutCtx(c)
	defer cancel()

	u, err := h.Issuer.Register(ctx, session.RegisterParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Role:      model.ParseRole(req.Role),
	})
	if err != nil {
		if errors.Is(err, session.ErrEmailTaken) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		h.Log.Error("register failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}
	return c.JSON(http.StatusCreated, summarize(u))
}

// Login verifies credentials and returns a token pair plus the post-login
// destination for the user's role.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := timeoutCtx(c)
	defer cancel()

	u, pair, err := h.Issuer.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		h.Log.Error("login failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	return c.JSON(http.StatusOK, tokenResp{
		User:         summarize(u),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.AccessExpires,
		RedirectTo:   model.DestinationFor(u.Role),
	})
}

// Refresh rotates the presented refresh token and returns a fresh pair.
// The old token is consumed even when this call ultimately fails.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refreshToken required"})
	}

	ctx, cancel := timeoutCtx(c)
	defer cancel()

	u, pair, err := h.Issuer.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		if errors.Is(err, session.ErrRefreshRejected) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		h.Log.Error("refresh failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	return c.JSON(http.StatusOK, tokenResp{
		User:         summarize(u),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.AccessExpires,
		RedirectTo:   model.DestinationFor(u.Role),
	})
}

// Logout revokes the presented refresh token. A token the store has never
// seen is a 400, not a silent success. Without a body token the handler
// falls back to the Bearer access token and revokes every session of its
// subject.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return h.logoutAll(c)
	}

	ctx, cancel := timeoutCtx(c)
	defer cancel()

	err := h.Issuer.Logout(ctx, strings.TrimSpace(req.RefreshToken))
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
	case errors.Is(err, repository.ErrRefreshNotFound), errors.Is(err, repository.ErrRefreshRevoked):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid refresh token"})
	default:
		h.Log.Error("logout failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
}

// logoutAll handles the bearer-only logout form: verify the access token
// and revoke all of its subject's refresh tokens.
func (h *AuthHandler) logoutAll(c echo.Context) error {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refreshToken required"})
	}
	claims, err := h.Signer.Verify(strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	ctx, cancel := timeoutCtx(c)
	defer cancel()

	if err := h.Issuer.LogoutAll(ctx, claims.UserID()); err != nil {
		h.Log.Error("logout failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Verify checks an access token presented in the body or the Authorization
// header and echoes the embedded identity. Downstream services use it when
// they cannot verify locally.
func (h *AuthHandler) Verify(c echo.Context) error {
	var req verifyReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.AccessToken)
	if raw == "" {
		if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			raw = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
	}

	claims, err := h.Signer.Verify(raw)
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, token.ErrTokenExpired) {
			msg = "token expired"
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":    claims.UserID(),
		"email": claims.Email,
		"role":  claims.Role,
	})
}

// ----- Federated login -----

const oauthStateCookie = "oauth_state"

// GoogleLogin starts the Google handshake: mint a state value, pin it in a
// short-lived cookie and redirect to the provider.
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	if h.Provider == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "federated login not configured"})
	}
	state := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusTemporaryRedirect, h.Provider.AuthURL(state))
}

// GoogleCallback finishes the handshake: check state, exchange the code,
// resolve or create the local user, issue tokens and bounce back to the
// client with the access token as a query parameter. Any provider failure
// redirects to the client's failure state instead of falling back to a
// local flow.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	if h.Provider == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "federated login not configured"})
	}

	state := c.QueryParam("state")
	cookie, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || cookie.Value != state {
		return h.federatedFailure(c, "state mismatch")
	}
	code := c.QueryParam("code")
	if code == "" {
		return h.federatedFailure(c, "missing code")
	}

	profile, err := h.Provider.Exchange(c.Request().Context(), code)
	if err != nil {
		h.Log.Warn("federated exchange failed", zap.Error(err))
		return h.federatedFailure(c, "exchange failed")
	}

	ctx, cancel := timeoutCtx(c)
	defer cancel()

	u, pair, err := h.Issuer.LoginFederated(ctx, profile)
	if err != nil {
		h.Log.Error("federated login failed", zap.Error(err))
		return h.federatedFailure(c, "login failed")
	}

	q := url.Values{}
	q.Set("token", pair.AccessToken)
	q.Set("refresh", pair.RefreshToken)
	q.Set("redirect", model.DestinationFor(u.Role))
	return c.Redirect(http.StatusTemporaryRedirect, h.FrontendOrigin+"/login?"+q.Encode())
}

func (h *AuthHandler) federatedFailure(c echo.Context, reason string) error {
	q := url.Values{}
	q.Set("error", "federated_login_failed")
	h.Log.Warn("federated login aborted", zap.String("reason", reason))
	return c.Redirect(http.StatusTemporaryRedirect, h.FrontendOrigin+"/login?"+q.Encode())
}

func timeoutCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

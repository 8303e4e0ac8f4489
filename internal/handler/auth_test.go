package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/quickeats/quickeats/internal/handler"
	"github.com/quickeats/quickeats/internal/model"
	"github.com/quickeats/quickeats/internal/repository"
	"github.com/quickeats/quickeats/internal/session"
	"github.com/quickeats/quickeats/internal/token"
	"github.com/quickeats/quickeats/internal/utils"
)

// Compact in-memory stores implementing the session issuer's interfaces.

type memUsers struct {
	mu      sync.Mutex
	seq     uint64
	byID    map[uint64]model.User
	byEmail map[string]uint64
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uint64]model.User{}, byEmail: map[string]uint64{}}
}

func (m *memUsers) Create(_ context.Context, first, last, email, password, phone string, role model.Role, cost int) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return 0, repository.ErrEmailExists
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	m.seq++
	m.byID[m.seq] = model.User{ID: m.seq, FirstName: first, LastName: last, Email: email, PasswordHash: hash, Phone: phone, Role: role}
	m.byEmail[email] = m.seq
	return m.seq, nil
}

func (m *memUsers) CreateFederated(_ context.Context, first, last, email string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return 0, repository.ErrEmailExists
	}
	m.seq++
	m.byID[m.seq] = model.User{ID: m.seq, FirstName: first, LastName: last, Email: email, Role: model.RoleCustomer}
	m.byEmail[email] = m.seq
	return m.seq, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return m.byID[id], nil
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

type memTokens struct {
	mu sync.Mutex
	m  map[string]struct {
		userID  uint64
		exp     time.Time
		revoked bool
	}
}

func newMemTokens() *memTokens {
	return &memTokens{m: map[string]struct {
		userID  uint64
		exp     time.Time
		revoked bool
	}{}}
}

func (s *memTokens) Store(_ context.Context, userID uint64, hash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[hash] = struct {
		userID  uint64
		exp     time.Time
		revoked bool
	}{userID, exp, false}
	return nil
}

func (s *memTokens) ConsumeAndRotate(_ context.Context, hash string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.m[hash]
	if !ok {
		return 0, repository.ErrRefreshNotFound
	}
	if rec.revoked {
		return 0, repository.ErrRefreshRevoked
	}
	rec.revoked = true
	s.m[hash] = rec
	return rec.userID, nil
}

func (s *memTokens) Revoke(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.m[hash]
	if !ok {
		return repository.ErrRefreshNotFound
	}
	if rec.revoked {
		return repository.ErrRefreshRevoked
	}
	rec.revoked = true
	s.m[hash] = rec
	return nil
}

func (s *memTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, rec := range s.m {
		if rec.userID == userID {
			rec.revoked = true
			s.m[hash] = rec
		}
	}
	return nil
}

func newAuthApp(t *testing.T) *echo.Echo {
	t.Helper()
	signer := token.NewSigner("test-secret", 15)
	issuer := session.NewIssuer(newMemUsers(), newMemTokens(), signer, nil, 7, bcrypt.MinCost, zap.NewNop())
	h := handler.NewAuthHandler(issuer, signer, nil, "http://localhost:5173", zap.NewNop())

	e := echo.New()
	e.POST("/register", h.Register)
	e.POST("/login", h.Login)
	e.POST("/refresh", h.Refresh)
	e.POST("/logout", h.Logout)
	e.POST("/verify", h.Verify)
	return e
}

func do(e *echo.Echo, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const registerBody = `{"firstname":"Ana","lastname":"Silva","email":"ana@example.com","password":"pw","phone":"555","role":"Customer"}`

func TestRegisterEndpoint(t *testing.T) {
	e := newAuthApp(t)

	rec := do(e, http.MethodPost, "/register", registerBody, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ana@example.com", got["email"])
	assert.Equal(t, "Customer", got["role"])
	assert.NotContains(t, rec.Body.String(), "accessToken", "register must not issue tokens")

	// Duplicate email conflicts.
	rec = do(e, http.MethodPost, "/register", registerBody, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Missing credentials are rejected before the store is touched.
	rec = do(e, http.MethodPost, "/register", `{"email":"x@y.z"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	e := newAuthApp(t)
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/register", registerBody, nil).Code)

	rec := do(e, http.MethodPost, "/login", `{"email":"ana@example.com","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		RedirectTo   string `json:"redirectTo"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.AccessToken)
	assert.NotEmpty(t, got.RefreshToken)
	assert.Equal(t, "/home", got.RedirectTo)

	rec = do(e, http.MethodPost, "/login", `{"email":"ana@example.com","password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(e, http.MethodPost, "/login", `{"email":"ghost@example.com","password":"pw"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func login(t *testing.T, e *echo.Echo) (access, refresh string) {
	t.Helper()
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/register", registerBody, nil).Code)
	rec := do(e, http.MethodPost, "/login", `{"email":"ana@example.com","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	return got.AccessToken, got.RefreshToken
}

func TestRefreshEndpoint(t *testing.T) {
	e := newAuthApp(t)
	_, refresh := login(t, e)

	rec := do(e, http.MethodPost, "/refresh", `{"refreshToken":"`+refresh+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEmpty(t, got.AccessToken)
	assert.NotEqual(t, refresh, got.RefreshToken, "refresh must rotate the refresh token")

	// The consumed token is gone.
	rec = do(e, http.MethodPost, "/refresh", `{"refreshToken":"`+refresh+`"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Missing token is a client error.
	rec = do(e, http.MethodPost, "/refresh", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	e := newAuthApp(t)
	_, refresh := login(t, e)

	rec := do(e, http.MethodPost, "/logout", `{"refreshToken":"`+refresh+`"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Logging out the same token twice is reported, not ignored.
	rec = do(e, http.MethodPost, "/logout", `{"refreshToken":"`+refresh+`"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/logout", `{"refreshToken":"never-issued"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A revoked refresh token cannot mint new sessions.
	rec = do(e, http.MethodPost, "/refresh", `{"refreshToken":"`+refresh+`"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutWithBearerRevokesAllSessions(t *testing.T) {
	e := newAuthApp(t)
	access, first := login(t, e)

	// A second concurrent session for the same account.
	rec := do(e, http.MethodPost, "/login", `{"email":"ana@example.com","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var secondSession struct {
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &secondSession))

	// No body token and no bearer is still a client error.
	rec = do(e, http.MethodPost, "/logout", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A garbage bearer is rejected, not treated as logged out.
	h := http.Header{}
	h.Set("Authorization", "Bearer garbage")
	rec = do(e, http.MethodPost, "/logout", `{}`, h)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A valid bearer with no body token ends every session.
	h = http.Header{}
	h.Set("Authorization", "Bearer "+access)
	rec = do(e, http.MethodPost, "/logout", `{}`, h)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodPost, "/refresh", `{"refreshToken":"`+first+`"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(e, http.MethodPost, "/refresh", `{"refreshToken":"`+secondSession.RefreshToken+`"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyEndpoint(t *testing.T) {
	e := newAuthApp(t)
	access, _ := login(t, e)

	rec := do(e, http.MethodPost, "/verify", `{"accessToken":"`+access+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ana@example.com", got["email"])
	assert.Equal(t, "Customer", got["role"])

	// Authorization header works when the body is empty.
	h := http.Header{}
	h.Set("Authorization", "Bearer "+access)
	rec = do(e, http.MethodPost, "/verify", `{}`, h)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodPost, "/verify", `{"accessToken":"garbage"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(e, http.MethodPost, "/verify", `{}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// Package session orchestrates login, registration, federated login,
// refresh and logout into issued credential pairs. It owns no HTTP and no
// SQL: persistence and event delivery arrive through the narrow interfaces
// below, and all observability goes through the injected logger.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quickeats/quickeats/internal/model"
	"github.com/quickeats/quickeats/internal/oauth"
	"github.com/quickeats/quickeats/internal/queue"
	"github.com/quickeats/quickeats/internal/repository"
	"github.com/quickeats/quickeats/internal/token"
	"github.com/quickeats/quickeats/internal/utils"
)

var (
	// ErrInvalidCredentials covers unknown email and password mismatch
	// alike, so responses cannot be used to probe which emails exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registration hits an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrRefreshRejected is returned when a refresh token is unknown,
	// revoked or expired. No new tokens are issued in that case.
	ErrRefreshRejected = errors.New("refresh rejected")
)

// UserStore is the persistence capability the issuer needs for users.
type UserStore interface {
	Create(ctx context.Context, firstName, lastName, email, password, phone string, role model.Role, cost int) (uint64, error)
	CreateFederated(ctx context.Context, firstName, lastName, email string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// RefreshTokenStore is the persistence capability for refresh tokens.
// ConsumeAndRotate must be atomic: a token rotates at most once.
type RefreshTokenStore interface {
	Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ConsumeAndRotate(ctx context.Context, tokenHash string) (uint64, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// EventPublisher delivers domain events to downstream services.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event queue.UserRegisteredEvent) error
}

// TokenPair is a freshly issued access/refresh credential pair.
type TokenPair struct {
	AccessToken    string
	AccessExpires  time.Time
	RefreshToken   string
	RefreshExpires time.Time
}

// RegisterParams carries the registration payload after transport decoding.
type RegisterParams struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
	Role      model.Role
}

// Issuer implements the session state machine.
type Issuer struct {
	users          UserStore
	tokens         RefreshTokenStore
	signer         *token.Signer
	events         EventPublisher
	refreshTTLDays int
	bcryptCost     int
	log            *zap.Logger
}

// NewIssuer wires an Issuer. The logger must not be nil; pass zap.NewNop()
// in tests.
func NewIssuer(users UserStore, tokens RefreshTokenStore, signer *token.Signer, events EventPublisher, refreshTTLDays, bcryptCost int, log *zap.Logger) *Issuer {
	return &Issuer{
		users:          users,
		tokens:         tokens,
		signer:         signer,
		events:         events,
		refreshTTLDays: refreshTTLDays,
		bcryptCost:     bcryptCost,
		log:            log,
	}
}

// Register creates a password-backed account. It does not issue tokens;
// the client is expected to follow up with Login. The registration event
// is published best-effort and never fails the call.
func (i *Issuer) Register(ctx context.Context, p RegisterParams) (model.User, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	uid, err := i.users.Create(ctx, p.FirstName, p.LastName, email, p.Password, p.Phone, p.Role, i.bcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, ErrEmailTaken
		}
		return model.User{}, err
	}
	u, err := i.users.GetByID(ctx, uid)
	if err != nil {
		return model.User{}, err
	}
	i.publishRegistered(ctx, u, false)
	i.log.Info("user registered",
		zap.Uint64("user_id", u.ID),
		zap.String("role", string(u.Role)))
	return u, nil
}

// Login verifies the password and issues a credential pair. Unknown email,
// missing password hash (federated-only account) and hash mismatch all
// collapse into ErrInvalidCredentials.
func (i *Issuer) Login(ctx context.Context, email, password string) (model.User, TokenPair, error) {
	u, err := i.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, TokenPair{}, ErrInvalidCredentials
		}
		return model.User{}, TokenPair{}, err
	}
	if u.PasswordHash == "" || !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := i.issuePair(ctx, u)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	return u, pair, nil
}

// LoginFederated resolves a federated profile to a local user, creating a
// Customer-role account on first sight, then issues a credential pair.
func (i *Issuer) LoginFederated(ctx context.Context, p oauth.Profile) (model.User, TokenPair, error) {
	u, err := i.ResolveFederated(ctx, p)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	pair, err := i.issuePair(ctx, u)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	return u, pair, nil
}

// ResolveFederated maps a federated profile onto a local user by email.
// Existing accounts are returned untouched: federated login never elevates
// a role and never rewrites local credentials. Absent accounts are created
// with role Customer and no password hash.
func (i *Issuer) ResolveFederated(ctx context.Context, p oauth.Profile) (model.User, error) {
	if p.Email == "" {
		return model.User{}, oauth.ErrNoEmail
	}
	email := strings.ToLower(strings.TrimSpace(p.Email))

	u, err := i.users.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, err
	}

	uid, err := i.users.CreateFederated(ctx, p.GivenName, p.FamilyName, email)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			// Lost a create race; the account exists now.
			return i.users.GetByEmail(ctx, email)
		}
		return model.User{}, err
	}
	u, err = i.users.GetByID(ctx, uid)
	if err != nil {
		return model.User{}, err
	}
	i.publishRegistered(ctx, u, true)
	i.log.Info("federated user created",
		zap.Uint64("user_id", u.ID),
		zap.String("provider_subject", p.Subject))
	return u, nil
}

// Refresh consumes a refresh token and issues a new pair. The consumed
// token is dead the moment ConsumeAndRotate succeeds, even if issuing the
// replacement fails afterwards (fail-closed). The user's role is re-read
// here, so a role change since last login takes effect on refresh.
// Only token rejections map to ErrRefreshRejected; a failing store
// surfaces as-is so callers do not mistake an outage for a bad token.
func (i *Issuer) Refresh(ctx context.Context, rawRefresh string) (model.User, TokenPair, error) {
	userID, err := i.tokens.ConsumeAndRotate(ctx, token.HashRefreshRaw(rawRefresh))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRefreshNotFound),
			errors.Is(err, repository.ErrRefreshRevoked),
			errors.Is(err, repository.ErrRefreshExpired):
			i.log.Debug("refresh rejected", zap.Error(err))
			return model.User{}, TokenPair{}, ErrRefreshRejected
		}
		return model.User{}, TokenPair{}, err
	}
	u, err := i.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	pair, err := i.issuePair(ctx, u)
	if err != nil {
		return model.User{}, TokenPair{}, err
	}
	return u, pair, nil
}

// Logout revokes the presented refresh token. Unknown or already-revoked
// tokens surface as errors; logout is deliberately not idempotent.
func (i *Issuer) Logout(ctx context.Context, rawRefresh string) error {
	if err := i.tokens.Revoke(ctx, token.HashRefreshRaw(rawRefresh)); err != nil {
		return err
	}
	i.log.Info("session revoked")
	return nil
}

// LogoutAll revokes every active refresh token of a user. It backs the
// bearer-only logout path, where the client holds an access token but no
// refresh token to name a single session.
func (i *Issuer) LogoutAll(ctx context.Context, userID uint64) error {
	if err := i.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}
	i.log.Info("all sessions revoked", zap.Uint64("user_id", userID))
	return nil
}

func (i *Issuer) issuePair(ctx context.Context, u model.User) (TokenPair, error) {
	access, accessExp, err := i.signer.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := token.NewRefresh(i.refreshTTLDays)
	if err != nil {
		return TokenPair{}, err
	}
	if err := i.tokens.Store(ctx, u.ID, token.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return TokenPair{}, err
	}
	i.log.Info("session issued",
		zap.Uint64("user_id", u.ID),
		zap.String("role", string(u.Role)),
		zap.Time("access_expires", accessExp))
	return TokenPair{
		AccessToken:    access,
		AccessExpires:  accessExp,
		RefreshToken:   refresh.Raw,
		RefreshExpires: refresh.Exp,
	}, nil
}

func (i *Issuer) publishRegistered(ctx context.Context, u model.User, federated bool) {
	if i.events == nil {
		return
	}
	_ = i.events.PublishUserRegistered(ctx, queue.UserRegisteredEvent{
		UserID:       u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         string(u.Role),
		Federated:    federated,
		RegisteredAt: time.Now().UTC().Format(time.RFC3339),
	})
}

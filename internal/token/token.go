// Package token implements the credential codec: issuing and verifying the
// signed, self-contained access token and generating the opaque refresh
// token value. Verification is side-effect-free; revocation state lives in
// the refresh token store, never here.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quickeats/quickeats/internal/model"
)

// Distinct verification failures so callers can give different diagnostics.
var (
	// ErrTokenExpired means the signature was fine but the exp claim has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid means the signature did not verify or a claim is unusable.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenMalformed means the input is not a parseable JWT at all.
	ErrTokenMalformed = errors.New("token malformed")
)

// Claims is the payload carried by an access token: subject (user id),
// email and role, plus the registered iat/exp claims.
type Claims struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID decodes the subject claim into the numeric user id. A zero return
// means the subject is missing or not numeric.
func (c Claims) UserID() uint64 {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Signer issues and verifies HS256 access tokens. The secret and TTL are
// fixed at construction; a Signer is safe for concurrent use.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner builds a Signer from the configured signing secret and access
// token TTL in minutes.
func NewSigner(secret string, ttlMin int) *Signer {
	return &Signer{secret: []byte(secret), ttl: time.Duration(ttlMin) * time.Minute}
}

// TTL returns the configured access-token lifetime.
func (s *Signer) TTL() time.Duration { return s.ttl }

// Issue signs an access token for the user and returns it with its expiry.
func (s *Signer) Issue(userID uint64, email string, role model.Role) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(s.ttl)
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses and validates a raw access token. It rejects tokens signed
// with any method other than HMAC and maps the library's parse errors onto
// the package sentinels so handlers can distinguish "expired" from
// "invalid" from "not a token".
func (s *Signer) Verify(raw string) (Claims, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	})
	switch {
	case err == nil && tok.Valid:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Claims{}, ErrTokenMalformed
	default:
		return Claims{}, ErrTokenInvalid
	}
}

// Refresh is a freshly generated opaque refresh token. Raw goes back to the
// client; only HashRefreshRaw(Raw) is ever persisted.
type Refresh struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// NewRefresh returns a cryptographically random refresh token valid for
// ttlDays. The value is 48 random bytes hex-encoded (96 characters), so it
// is not guessable from any user attribute.
func NewRefresh(ttlDays int) (Refresh, error) {
	raw, err := randomHex(48)
	if err != nil {
		return Refresh{}, err
	}
	return Refresh{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// HashRefreshRaw returns the SHA-256 hex digest of a raw refresh token.
// Storing only the hash keeps a leaked database from yielding usable
// refresh tokens.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

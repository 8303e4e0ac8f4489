// Package repository implements MySQL-backed persistence for users and
// refresh tokens. The sentinel errors below let higher layers such as the
// session issuer and handlers distinguish failure scenarios without
// inspecting driver errors: ErrEmailExists maps to HTTP 409, the not-found
// sentinels to 404 or a refresh rejection, and the revoked/expired pair to
// the refresh-rejected taxonomy.
package repository

import "errors"

// ErrEmailExists is returned by user creation when the email is already
// registered. Handlers translate it into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when no user matches the given id or email.
var ErrUserNotFound = errors.New("user not found")

// ErrRefreshNotFound is returned when no refresh token row matches the
// presented token hash.
var ErrRefreshNotFound = errors.New("refresh token not found")

// ErrRefreshRevoked is returned when the refresh token exists but has been
// revoked, including the case where a concurrent rotation consumed it first.
var ErrRefreshRevoked = errors.New("refresh token revoked")

// ErrRefreshExpired is returned when the refresh token exists but its
// expiry has passed. Expiry is checked lazily here; nothing sweeps tokens.
var ErrRefreshExpired = errors.New("refresh token expired")

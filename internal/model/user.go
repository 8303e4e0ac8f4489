package model

import "time"

// Role enumerates the fixed set of account roles in the marketplace.
// The values match the strings stored in the `users.role` column and
// embedded in access-token claims, so they must never be renamed
// without a data migration.
type Role string

const (
	RoleAdmin          Role = "Admin"          // platform operators
	RoleRestaurant     Role = "Restaurant"     // restaurant owners managing menus and orders
	RoleCustomer       Role = "Customer"       // ordering customers (default for federated signups)
	RoleDeliveryPerson Role = "DeliveryPerson" // couriers fulfilling deliveries
)

// ParseRole normalizes a free-form role string into a known Role.
// Unknown or empty input falls back to RoleCustomer so that a
// registration payload can never mint an unrecognized role.
func ParseRole(s string) Role {
	if r := Role(s); r.Valid() {
		return r
	}
	return RoleCustomer
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleRestaurant, RoleCustomer, RoleDeliveryPerson:
		return true
	}
	return false
}

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column. The json tags
// are omitted because these structs are used internally by the
// repository layer; handlers define separate response types.
//
// Fields:
//  ID           – primary key identifier of the user.
//  FirstName    – given name.
//  LastName     – family name.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password; empty for federated-only accounts.
//  Phone        – contact phone number, may be empty.
//  Role         – account role (Admin, Restaurant, Customer, DeliveryPerson).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	Email        string    // users.email
	PasswordHash string    // users.password_hash (empty when federated-only)
	Phone        string    // users.phone
	Role         Role      // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Each
// refresh token belongs to a user and carries metadata for expiry
// and revocation. The plain token is never stored; only its
// SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (nil if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// Package queue defines message payloads exchanged over the message broker.
package queue

// UserRegisteredEvent is published when a new account is created. The
// notification service consumes it to send the welcome message; it carries
// enough information that consumers never need to query the users table.
type UserRegisteredEvent struct {
	UserID       uint64 `json:"user_id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Role         string `json:"role"`
	Federated    bool   `json:"federated"` // true when the account came from an identity provider
	RegisteredAt string `json:"registered_at"`
}

// QueueUserRegistered is the durable queue UserRegisteredEvent is published to.
const QueueUserRegistered = "user.registered"

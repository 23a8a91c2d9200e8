package auth

import (
	"errors"
	"time"
)

// User represents a registered BlueMe account.
type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Username         string     `json:"username"`
	PasswordHash     string     `json:"-"`
	IsPremium        bool       `json:"isPremium"`
	PremiumExpiresAt *time.Time `json:"premiumExpiresAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Domain errors for the auth package. Check with errors.Is().
var (
	// ErrUserNotFound is returned when a user lookup matches no account.
	ErrUserNotFound = errors.New("auth: user not found")

	// ErrEmailExists is returned when registering an email already in use.
	ErrEmailExists = errors.New("auth: email already registered")

	// ErrInvalidCredentials is returned when login email/password do not
	// match. It deliberately does not distinguish unknown email from wrong
	// password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrInvalidEmail is returned when an email fails validation.
	ErrInvalidEmail = errors.New("auth: invalid email address")

	// ErrWeakPassword is returned when a password fails the length policy.
	ErrWeakPassword = errors.New("auth: password must be at least 6 characters")

	// ErrTokenInvalid is returned when a JWT fails validation.
	ErrTokenInvalid = errors.New("auth: invalid token")
)

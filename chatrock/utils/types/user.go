package types

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

// CredentialsRequest is the body of the register and login endpoints.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

const MinPasswordLength = 4

// Normalize lowercases and trims the email in place.
func (r *CredentialsRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r CredentialsRequest) Validate() error {
	addr, err := mail.ParseAddress(r.Email)
	if err != nil || addr.Address != r.Email {
		return fmt.Errorf("invalid email address")
	}
	if len(r.Password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

type SessionResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// RequestContext is what the identity gate attaches to an authenticated request.
type RequestContext struct {
	UserID       uuid.UUID
	SessionToken string
}

func (rc RequestContext) Authenticated() bool {
	return rc.UserID != uuid.Nil
}

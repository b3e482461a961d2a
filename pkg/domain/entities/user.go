package entities

import (
	"strings"
	"time"
)

// MinPasswordLength is the shortest password accepted at registration
const MinPasswordLength = 6

// User is an operator account
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser validates registration input; the caller hashes the password
func NewUser(email, fullName, password, confirm string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	fullName = strings.TrimSpace(fullName)
	if email == "" || fullName == "" || password == "" {
		return nil, Invalidf("all fields are required")
	}
	if !strings.Contains(email, "@") {
		return nil, Invalidf("email %q is not a valid address", email)
	}
	if password != confirm {
		return nil, Invalidf("passwords do not match")
	}
	if len(password) < MinPasswordLength {
		return nil, Invalidf("password must be at least %d characters long", MinPasswordLength)
	}
	return &User{
		Email:     email,
		FullName:  fullName,
		CreatedAt: time.Now().UTC(),
	}, nil
}

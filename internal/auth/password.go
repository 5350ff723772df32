// Package auth hashes admin passwords and issues the bearer tokens the
// dashboard sends back on every request.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dharsanguruparan/TrackFast/internal/model"
)

// PasswordCost is the bcrypt cost used for new hashes.
const PasswordCost = 10

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// HashPassword returns a bcrypt hash of password. Passwords longer than
// MaxPasswordBytes are a validation error.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", model.Validation(fmt.Sprintf("Password must be at most %d bytes", MaxPasswordBytes))
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. A malformed hash is
// returned as an error; a plain mismatch is (false, nil).
func CheckPassword(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare password: %w", err)
	}
}

// IsHash reports whether s already looks like a bcrypt hash, so seeding can
// accept either a hash or a plain password.
func IsHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

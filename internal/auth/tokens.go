package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dharsanguruparan/TrackFast/internal/model"
)

// DefaultTokenTTL matches the dashboard session length.
const DefaultTokenTTL = 2 * time.Hour

// Claims is the JWT payload. The dashboard decodes the role client-side to
// decide whether to show the team page.
type Claims struct {
	AdminID string     `json:"adminId"`
	Email   string     `json:"email"`
	Role    model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a Tokens. A non-positive ttl falls back to
// DefaultTokenTTL.
func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{secret: secret, ttl: ttl, now: time.Now}
}

// Issue signs a token for id and returns it with its expiry.
func (t *Tokens) Issue(id model.Identity) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := Claims{
		AdminID: id.AdminID,
		Email:   id.Email,
		Role:    id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.AdminID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Validate verifies signature and expiry and returns the identity the token
// carries. Every failure is a model.ErrAuth.
func (t *Tokens) Validate(token string) (*model.Identity, error) {
	if token == "" {
		return nil, model.Unauthorized("No token provided")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, model.Unauthorized("Token expired")
		}
		return nil, model.Unauthorized("Invalid/Expired token")
	}
	if claims.AdminID == "" || !claims.Role.Valid() {
		return nil, model.Unauthorized("Invalid/Expired token")
	}
	return &model.Identity{AdminID: claims.AdminID, Email: claims.Email, Role: claims.Role}, nil
}

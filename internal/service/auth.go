package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dharsanguruparan/TrackFast/internal/auth"
	"github.com/dharsanguruparan/TrackFast/internal/model"
)

var errInvalidCredentials = &model.Error{Kind: model.ErrInvalidCredentials, Msg: "Invalid credentials"}

// LoginResult is returned to the dashboard after a successful login.
type LoginResult struct {
	Token     string     `json:"token"`
	Role      model.Role `json:"role"`
	Email     string     `json:"email"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// AuthService verifies credentials and validates bearer tokens.
type AuthService struct {
	admins  AdminStore
	tokens  *auth.Tokens
	limiter LoginLimiter
}

// NewAuthService wires an AuthService. limiter may be nil to disable
// throttling.
func NewAuthService(admins AdminStore, tokens *auth.Tokens, limiter LoginLimiter) *AuthService {
	return &AuthService{admins: admins, tokens: tokens, limiter: limiter}
}

// Login checks email and password and issues a token. Unknown emails and
// wrong passwords produce the same error. The email lookup returns before any
// hash comparison, so response time still differs between the two.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = model.NormalizeEmail(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, model.Validation("Email and password are required")
	}
	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, email)
		if err != nil {
			log.Printf("login limiter unavailable: email=%s err=%v", email, err)
		} else if !ok {
			return nil, model.Denied("Too many login attempts, try again later")
		}
	}
	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	ok, err := auth.CheckPassword(admin.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("login %s: %w", email, err)
	}
	if !ok {
		return nil, errInvalidCredentials
	}
	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			log.Printf("login limiter reset failed: email=%s err=%v", email, err)
		}
	}
	role := admin.Role
	if !role.Valid() {
		role = model.RoleAdmin
	}
	token, exp, err := s.tokens.Issue(model.Identity{AdminID: admin.ID, Email: admin.Email, Role: role})
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Role: role, Email: admin.Email, ExpiresAt: exp}, nil
}

// Validate returns the identity carried by token.
func (s *AuthService) Validate(token string) (*model.Identity, error) {
	return s.tokens.Validate(token)
}

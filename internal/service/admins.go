package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/TrackFast/internal/access"
	"github.com/dharsanguruparan/TrackFast/internal/auth"
	"github.com/dharsanguruparan/TrackFast/internal/model"
)

// AdminService manages admin accounts. Everything except Seed and Promote,
// which back the startup seed and the CLI, is reserved for superadmins.
type AdminService struct {
	store AdminStore
	now   func() time.Time
}

// NewAdminService wires an AdminService.
func NewAdminService(store AdminStore) *AdminService {
	return &AdminService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Create adds an admin account on behalf of who. role defaults to admin.
func (s *AdminService) Create(ctx context.Context, who *model.Identity, email, password string, role model.Role) (*model.Admin, error) {
	if err := access.Authorize(access.AdminCreate, who, ""); err != nil {
		return nil, err
	}
	email = model.NormalizeEmail(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, model.Validation("Email and password are required")
	}
	if role == "" {
		role = model.RoleAdmin
	}
	if !role.Valid() {
		return nil, model.Validation("Invalid role")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, email, hash, role, who.AdminID)
}

// List returns every admin, newest first.
func (s *AdminService) List(ctx context.Context, who *model.Identity) ([]*model.Admin, error) {
	if err := access.Authorize(access.AdminList, who, ""); err != nil {
		return nil, err
	}
	admins, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if admins == nil {
		admins = []*model.Admin{}
	}
	return admins, nil
}

// Delete removes the admin with id. Superadmins cannot delete themselves.
func (s *AdminService) Delete(ctx context.Context, who *model.Identity, id string) error {
	if err := access.Authorize(access.AdminDelete, who, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return missing(err, "Admin")
	}
	return nil
}

// ResetPassword replaces the password of the admin with id.
func (s *AdminService) ResetPassword(ctx context.Context, who *model.Identity, id, password string) error {
	if err := access.Authorize(access.AdminResetPassword, who, id); err != nil {
		return err
	}
	password = strings.TrimSpace(password)
	if password == "" {
		return model.Validation("Password is required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, id, hash); err != nil {
		return missing(err, "Admin")
	}
	return nil
}

// Seed creates the admin unless the email is already registered. secret may
// be a bcrypt hash or a plain password. created is false when the account
// already existed; it is returned untouched.
func (s *AdminService) Seed(ctx context.Context, email, secret string, role model.Role) (admin *model.Admin, created bool, err error) {
	email = model.NormalizeEmail(email)
	secret = strings.TrimSpace(secret)
	if email == "" || secret == "" {
		return nil, false, model.Validation("Email and password are required")
	}
	if !role.Valid() {
		return nil, false, model.Validation("Invalid role")
	}
	existing, err := s.store.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, false, err
	}
	hash := secret
	if !auth.IsHash(secret) {
		if hash, err = auth.HashPassword(secret); err != nil {
			return nil, false, err
		}
	}
	admin, err = s.insert(ctx, email, hash, role, "")
	if err != nil {
		return nil, false, err
	}
	return admin, true, nil
}

// Promote makes the admin registered under email a superadmin.
func (s *AdminService) Promote(ctx context.Context, email string) (*model.Admin, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, model.Validation("Email is required")
	}
	admin, err := s.store.UpdateRole(ctx, email, model.RoleSuperadmin)
	if err != nil {
		return nil, missing(err, "Admin")
	}
	return admin, nil
}

func (s *AdminService) insert(ctx context.Context, email, hash string, role model.Role, createdBy string) (*model.Admin, error) {
	admin := &model.Admin{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedBy:    createdBy,
		CreatedAt:    s.now(),
	}
	if err := s.store.Create(ctx, admin); err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, model.Validation("Admin already exists")
		}
		return nil, fmt.Errorf("create admin %s: %w", email, err)
	}
	return admin, nil
}

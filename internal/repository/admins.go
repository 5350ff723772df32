package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/TrackFast/internal/model"
)

const adminColumns = `id, email, password_hash, role, COALESCE(created_by, ''), created_at`

// AdminRepository is the credential store.
type AdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository constructs a repository.
func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

// Create inserts an admin. A taken email yields model.ErrConflict.
func (r *AdminRepository) Create(ctx context.Context, a *model.Admin) error {
	a.Email = model.NormalizeEmail(a.Email)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO admins (id, email, password_hash, role, created_by, created_at)
		VALUES ($1,$2,$3,$4,NULLIF($5::text,''),$6)
	`, a.ID, a.Email, a.PasswordHash, string(a.Role), a.CreatedBy, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert admin: %w", translate(err))
	}
	return nil
}

// Get returns an admin by id.
func (r *AdminRepository) Get(ctx context.Context, id string) (*model.Admin, error) {
	a, err := scanAdmin(r.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id=$1`, id))
	if err != nil {
		return nil, fmt.Errorf("select admin: %w", translate(err))
	}
	return a, nil
}

// GetByEmail returns an admin by normalized email.
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE email=$1`, model.NormalizeEmail(email))
	a, err := scanAdmin(row)
	if err != nil {
		return nil, fmt.Errorf("select admin by email: %w", translate(err))
	}
	return a, nil
}

// List returns every admin, newest first.
func (r *AdminRepository) List(ctx context.Context) ([]*model.Admin, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()
	var out []*model.Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("list admins: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list admins: rows: %w", err)
	}
	return out, nil
}

// Delete removes an admin.
func (r *AdminRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM admins WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// UpdatePassword replaces an admin's password hash.
func (r *AdminRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE admins SET password_hash=$2 WHERE id=$1`, id, hash)
	if err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// UpdateRole changes the role of the admin registered under email.
func (r *AdminRepository) UpdateRole(ctx context.Context, email string, role model.Role) (*model.Admin, error) {
	row := r.pool.QueryRow(ctx, `UPDATE admins SET role=$2 WHERE email=$1 RETURNING `+adminColumns,
		model.NormalizeEmail(email), string(role))
	a, err := scanAdmin(row)
	if err != nil {
		return nil, fmt.Errorf("update admin role: %w", translate(err))
	}
	return a, nil
}

func scanAdmin(row rowScanner) (*model.Admin, error) {
	var (
		a    model.Admin
		role string
	)
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &role, &a.CreatedBy, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Role = model.Role(role)
	return &a, nil
}

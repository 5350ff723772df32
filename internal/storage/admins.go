package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dharsanguruparan/TrackFast/internal/model"
)

// AdminStore is an in-memory credential store keyed by id with a secondary
// index on normalized email.
type AdminStore struct {
	mu      sync.RWMutex
	seq     uint64
	admins  map[string]*adminRow
	byEmail map[string]string
}

type adminRow struct {
	seq   uint64
	admin model.Admin
}

// NewAdminStore constructs an empty AdminStore.
func NewAdminStore() *AdminStore {
	return &AdminStore{
		admins:  make(map[string]*adminRow),
		byEmail: make(map[string]string),
	}
}

// Create inserts a. A taken email yields model.ErrConflict.
func (s *AdminStore) Create(_ context.Context, a *model.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := model.NormalizeEmail(a.Email)
	if _, ok := s.byEmail[email]; ok {
		return model.ErrConflict
	}
	if _, ok := s.admins[a.ID]; ok {
		return model.ErrConflict
	}
	a.Email = email
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.seq++
	s.admins[a.ID] = &adminRow{seq: s.seq, admin: *a}
	s.byEmail[email] = a.ID
	return nil
}

// Get returns the admin with id.
func (s *AdminStore) Get(_ context.Context, id string) (*model.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.admins[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	a := row.admin
	return &a, nil
}

// GetByEmail looks an admin up by normalized email.
func (s *AdminStore) GetByEmail(_ context.Context, email string) (*model.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return nil, model.ErrNotFound
	}
	a := s.admins[id].admin
	return &a, nil
}

// List returns every admin, newest first.
func (s *AdminStore) List(_ context.Context) ([]*model.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]*adminRow, 0, len(s.admins))
	for _, row := range s.admins {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	out := make([]*model.Admin, 0, len(rows))
	for _, row := range rows {
		a := row.admin
		out = append(out, &a)
	}
	return out, nil
}

// Delete removes the admin with id.
func (s *AdminStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.admins[id]
	if !ok {
		return model.ErrNotFound
	}
	delete(s.byEmail, row.admin.Email)
	delete(s.admins, id)
	return nil
}

// UpdatePassword replaces the stored hash.
func (s *AdminStore) UpdatePassword(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.admins[id]
	if !ok {
		return model.ErrNotFound
	}
	row.admin.PasswordHash = hash
	return nil
}

// UpdateRole changes the role of the admin registered under email.
func (s *AdminStore) UpdateRole(_ context.Context, email string, role model.Role) (*model.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return nil, model.ErrNotFound
	}
	row := s.admins[id]
	row.admin.Role = role
	a := row.admin
	return &a, nil
}

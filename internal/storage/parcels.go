// Package storage holds in-memory stores for parcels, admins and support
// messages. They back the server when no DATABASE_URL is configured and act as
// fakes in tests. Each store guards its map with an RWMutex and hands out
// copies so callers never share state with the store.
package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dharsanguruparan/TrackFast/internal/model"
)

// ParcelStore is an in-memory parcel store.
type ParcelStore struct {
	mu      sync.RWMutex
	seq     uint64
	parcels map[string]*parcelRow
}

type parcelRow struct {
	seq    uint64
	parcel model.Parcel
}

// NewParcelStore constructs an empty ParcelStore.
func NewParcelStore() *ParcelStore {
	return &ParcelStore{parcels: make(map[string]*parcelRow)}
}

// Create inserts p. An existing id yields model.ErrConflict.
func (s *ParcelStore) Create(_ context.Context, p *model.Parcel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parcels[p.ID]; ok {
		return model.ErrConflict
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.seq++
	s.parcels[p.ID] = &parcelRow{seq: s.seq, parcel: cloneParcel(p)}
	return nil
}

// Get returns a copy of the parcel with id.
func (s *ParcelStore) Get(_ context.Context, id string) (*model.Parcel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.parcels[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	p := cloneParcel(&row.parcel)
	return &p, nil
}

// List returns parcels newest first. A non-empty owner keeps only parcels
// created by that admin.
func (s *ParcelStore) List(_ context.Context, owner string) ([]*model.Parcel, error) {
	s.mu.RLock()
	rows := make([]*parcelRow, 0, len(s.parcels))
	for _, row := range s.parcels {
		if owner != "" && row.parcel.CreatedBy != owner {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.parcel.CreatedAt.Equal(b.parcel.CreatedAt) {
			return a.parcel.CreatedAt.After(b.parcel.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]*model.Parcel, 0, len(rows))
	for _, row := range rows {
		p := cloneParcel(&row.parcel)
		out = append(out, &p)
	}
	s.mu.RUnlock()
	return out, nil
}

// Edit replaces the editable descriptive fields. A non-nil entry also sets
// the status and is appended to the timeline in the same write.
func (s *ParcelStore) Edit(_ context.Context, id string, d model.ParcelDetails, entry *model.TimelineEntry) (*model.Parcel, error) {
	return s.mutate(id, func(p *model.Parcel) {
		p.Sender = d.Sender
		p.Receiver = d.Receiver
		p.Contact = d.Contact
		p.Description = d.Description
		p.Origin = d.Origin
		p.Destination = d.Destination
		p.EstimatedDelivery = d.EstimatedDelivery
		if entry != nil {
			p.Status = entry.Status
			p.Timeline = append(p.Timeline, *entry)
		}
	})
}

// AppendTimeline sets the parcel status to entry.Status and appends entry.
func (s *ParcelStore) AppendTimeline(_ context.Context, id string, entry model.TimelineEntry) (*model.Parcel, error) {
	return s.mutate(id, func(p *model.Parcel) {
		p.Status = entry.Status
		p.Timeline = append(p.Timeline, entry)
	})
}

// SetState stores the visibility flag and its message.
func (s *ParcelStore) SetState(_ context.Context, id string, state model.ParcelState, pauseMessage string) (*model.Parcel, error) {
	return s.mutate(id, func(p *model.Parcel) {
		p.State = state
		p.PauseMessage = pauseMessage
	})
}

// Delete removes the parcel and returns what was stored.
func (s *ParcelStore) Delete(_ context.Context, id string) (*model.Parcel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.parcels[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	delete(s.parcels, id)
	p := row.parcel
	return &p, nil
}

func (s *ParcelStore) mutate(id string, fn func(p *model.Parcel)) (*model.Parcel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.parcels[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	fn(&row.parcel)
	p := cloneParcel(&row.parcel)
	return &p, nil
}

func cloneParcel(p *model.Parcel) model.Parcel {
	c := *p
	c.Timeline = append([]model.TimelineEntry(nil), p.Timeline...)
	if c.Timeline == nil {
		c.Timeline = []model.TimelineEntry{}
	}
	return c
}

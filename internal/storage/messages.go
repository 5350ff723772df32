package storage

import (
	"context"
	"sync"
	"time"

	"github.com/dharsanguruparan/TrackFast/internal/model"
)

// MessageStore keeps support messages per parcel in arrival order.
type MessageStore struct {
	mu       sync.RWMutex
	byParcel map[string][]model.Message
	byID     map[string]model.Message
}

// NewMessageStore constructs an empty MessageStore.
func NewMessageStore() *MessageStore {
	return &MessageStore{
		byParcel: make(map[string][]model.Message),
		byID:     make(map[string]model.Message),
	}
}

// Create appends m to its parcel's log.
func (s *MessageStore) Create(_ context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.byParcel[m.ParcelID] = append(s.byParcel[m.ParcelID], *m)
	s.byID[m.ID] = *m
	return nil
}

// Get returns the message with id.
func (s *MessageStore) Get(_ context.Context, id string) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &m, nil
}

// ListByParcel returns the parcel's messages oldest first.
func (s *MessageStore) ListByParcel(_ context.Context, parcelID string) ([]*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.byParcel[parcelID]
	out := make([]*model.Message, 0, len(msgs))
	for i := range msgs {
		m := msgs[i]
		out = append(out, &m)
	}
	return out, nil
}

// Package service holds the parcel lifecycle, admin management, login and
// support chat logic. Services depend on the small interfaces below; the
// Postgres repositories and the in-memory stores both satisfy them.
package service

import (
	"context"
	"errors"
	"log"

	"github.com/dharsanguruparan/TrackFast/internal/model"
)

// ParcelStore persists parcels. Missing ids yield model.ErrNotFound. Each
// method is a single write to one parcel.
type ParcelStore interface {
	Create(ctx context.Context, p *model.Parcel) error
	Get(ctx context.Context, id string) (*model.Parcel, error)
	List(ctx context.Context, owner string) ([]*model.Parcel, error)
	Edit(ctx context.Context, id string, d model.ParcelDetails, entry *model.TimelineEntry) (*model.Parcel, error)
	AppendTimeline(ctx context.Context, id string, entry model.TimelineEntry) (*model.Parcel, error)
	SetState(ctx context.Context, id string, state model.ParcelState, pauseMessage string) (*model.Parcel, error)
	Delete(ctx context.Context, id string) (*model.Parcel, error)
}

// AdminStore persists admin accounts. A taken email yields model.ErrConflict.
type AdminStore interface {
	Create(ctx context.Context, a *model.Admin) error
	Get(ctx context.Context, id string) (*model.Admin, error)
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
	List(ctx context.Context) ([]*model.Admin, error)
	Delete(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, hash string) error
	UpdateRole(ctx context.Context, email string, role model.Role) (*model.Admin, error)
}

// MessageStore persists the support chat.
type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	Get(ctx context.Context, id string) (*model.Message, error)
	ListByParcel(ctx context.Context, parcelID string) ([]*model.Message, error)
}

// EventPublisher hands parcel events to whatever processes them in the
// background.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.ParcelEvent) error
}

// SnapshotLinker returns a short-lived download URL for a parcel's archived
// snapshot.
type SnapshotLinker interface {
	SnapshotURL(ctx context.Context, parcelID string) (string, error)
}

// LoginLimiter throttles login attempts per key. Reset is called after a
// successful login so only failed attempts accumulate.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// TokenValidator turns a bearer token into an identity.
type TokenValidator interface {
	Validate(token string) (*model.Identity, error)
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, model.ParcelEvent) error { return nil }

// publish sends ev and only logs failures: the mutation that produced the
// event has already been committed.
func publish(ctx context.Context, p EventPublisher, ev model.ParcelEvent) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		log.Printf("publish event failed: parcel=%s action=%s err=%v", ev.ParcelID, ev.Action, err)
	}
}

// missing turns a store ErrNotFound into a caller-facing "<what> not found".
func missing(err error, what string) error {
	if errors.Is(err, model.ErrNotFound) {
		return model.NotFound(what)
	}
	return err
}

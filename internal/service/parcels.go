package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dharsanguruparan/TrackFast/internal/access"
	"github.com/dharsanguruparan/TrackFast/internal/model"
)

// ErrArchiveDisabled is returned by ArchiveURL when no snapshot storage is
// configured.
var ErrArchiveDisabled = errors.New("parcel archive is not configured")

// ParcelService owns every change to a parcel's status, state and timeline.
type ParcelService struct {
	store   ParcelStore
	events  EventPublisher
	archive SnapshotLinker
	now     func() time.Time
	newID   func() (string, error)
}

// NewParcelService wires a ParcelService. events and archive may be nil.
func NewParcelService(store ParcelStore, events EventPublisher, archive SnapshotLinker) *ParcelService {
	if events == nil {
		events = NopPublisher{}
	}
	return &ParcelService{
		store:   store,
		events:  events,
		archive: archive,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   NewTrackingID,
	}
}

// Create registers a parcel owned by who and seeds its timeline with the
// initial status at the origin.
func (s *ParcelService) Create(ctx context.Context, who *model.Identity, d model.ParcelDetails) (*model.Parcel, error) {
	if err := access.Authorize(access.ParcelCreate, who, ""); err != nil {
		return nil, err
	}
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	id, err := s.newID()
	if err != nil {
		return nil, err
	}
	now := s.now()
	p := &model.Parcel{
		ID:                id,
		Sender:            d.Sender,
		Receiver:          d.Receiver,
		Contact:           d.Contact,
		Description:       d.Description,
		Origin:            d.Origin,
		Destination:       d.Destination,
		Status:            d.Status,
		EstimatedDelivery: d.EstimatedDelivery,
		State:             model.StateActive,
		PauseMessage:      "",
		CreatedAt:         now,
		CreatedBy:         who.AdminID,
		Timeline:          []model.TimelineEntry{{Status: d.Status, Location: d.Origin, Time: now}},
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create parcel %s: %w", id, err)
	}
	publish(ctx, s.events, model.ParcelEvent{ParcelID: p.ID, Action: model.ActionCreated, At: now})
	return p, nil
}

// AppendStatusUpdate sets the status and logs it at location. Paused parcels
// are updated like any other; the dashboard is what discourages it.
func (s *ParcelService) AppendStatusUpdate(ctx context.Context, who *model.Identity, id, status, location string) (*model.Parcel, error) {
	if err := access.Authorize(access.ParcelUpdate, who, id); err != nil {
		return nil, err
	}
	status = strings.TrimSpace(status)
	location = strings.TrimSpace(location)
	if status == "" || location == "" {
		return nil, model.Validation("Status and location are required")
	}
	now := s.now()
	p, err := s.store.AppendTimeline(ctx, id, model.TimelineEntry{Status: status, Location: location, Time: now})
	if err != nil {
		return nil, missing(err, "Parcel")
	}
	publish(ctx, s.events, model.ParcelEvent{ParcelID: id, Action: model.ActionStatus, At: now})
	return p, nil
}

// Edit replaces the descriptive fields. A changed status is logged at the
// parcel's last known location; editing never moves the parcel.
func (s *ParcelService) Edit(ctx context.Context, who *model.Identity, id string, d model.ParcelDetails) (*model.Parcel, error) {
	if err := access.Authorize(access.ParcelEdit, who, id); err != nil {
		return nil, err
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, missing(err, "Parcel")
	}
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	var entry *model.TimelineEntry
	if d.Status != current.Status {
		loc := current.LastLocation()
		if loc == "" {
			loc = d.Origin
		}
		entry = &model.TimelineEntry{Status: d.Status, Location: loc, Time: now}
	}
	p, err := s.store.Edit(ctx, id, d, entry)
	if err != nil {
		return nil, missing(err, "Parcel")
	}
	publish(ctx, s.events, model.ParcelEvent{ParcelID: id, Action: model.ActionEdited, At: now})
	return p, nil
}

// SetState pauses or resumes a parcel. Pausing keeps the trimmed message,
// which may be empty; resuming clears it. No timeline entry is written.
func (s *ParcelService) SetState(ctx context.Context, who *model.Identity, id, state, pauseMessage string) (*model.Parcel, error) {
	if err := access.Authorize(access.ParcelState, who, id); err != nil {
		return nil, err
	}
	st := model.ParcelState(state)
	if !st.Valid() {
		return nil, model.Validation("Invalid state")
	}
	msg := ""
	if st == model.StatePaused {
		msg = strings.TrimSpace(pauseMessage)
	}
	p, err := s.store.SetState(ctx, id, st, msg)
	if err != nil {
		return nil, missing(err, "Parcel")
	}
	publish(ctx, s.events, model.ParcelEvent{ParcelID: id, Action: model.ActionState, At: s.now()})
	return p, nil
}

// Delete removes a parcel regardless of who created it.
func (s *ParcelService) Delete(ctx context.Context, who *model.Identity, id string) (*model.Parcel, error) {
	if err := access.Authorize(access.ParcelDelete, who, id); err != nil {
		return nil, err
	}
	p, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, missing(err, "Parcel")
	}
	publish(ctx, s.events, model.ParcelEvent{ParcelID: id, Action: model.ActionDeleted, At: s.now()})
	return p, nil
}

// Get is the public tracking lookup. The id must match exactly. Paused parcels are returned with their
// history and last known location; pausing never hides a parcel.
func (s *ParcelService) Get(ctx context.Context, id string) (*model.TrackedParcel, error) {
	if err := access.Authorize(access.ParcelTrack, nil, id); err != nil {
		return nil, err
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, missing(err, "Parcel")
	}
	return model.Track(p), nil
}

// List returns parcels newest first, scoped to their creator unless who is a
// superadmin.
func (s *ParcelService) List(ctx context.Context, who *model.Identity) ([]*model.Parcel, error) {
	if err := access.Authorize(access.ParcelList, who, ""); err != nil {
		return nil, err
	}
	parcels, err := s.store.List(ctx, access.Scope(who))
	if err != nil {
		return nil, err
	}
	return parcels, nil
}

// ArchiveURL returns a download link for the parcel's latest snapshot.
func (s *ParcelService) ArchiveURL(ctx context.Context, who *model.Identity, id string) (string, error) {
	if err := access.Authorize(access.ParcelArchive, who, id); err != nil {
		return "", err
	}
	if s.archive == nil {
		return "", ErrArchiveDisabled
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return "", missing(err, "Parcel")
	}
	return s.archive.SnapshotURL(ctx, id)
}

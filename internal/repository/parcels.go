package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/TrackFast/internal/model"
)

const parcelColumns = `id, sender, receiver, contact, description, origin, destination, status,
	estimated_delivery, state, pause_message, created_at, COALESCE(created_by, ''), timeline`

// ParcelRepository stores parcels with their embedded timeline.
type ParcelRepository struct {
	pool *pgxpool.Pool
}

// NewParcelRepository constructs a repository.
func NewParcelRepository(pool *pgxpool.Pool) *ParcelRepository {
	return &ParcelRepository{pool: pool}
}

// Create inserts a new parcel row.
func (r *ParcelRepository) Create(ctx context.Context, p *model.Parcel) error {
	timeline, err := encodeTimeline(p.Timeline)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO parcels (id, sender, receiver, contact, description, origin, destination, status,
			estimated_delivery, state, pause_message, created_at, created_by, timeline)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NULLIF($13::text,''),$14::jsonb)
	`, p.ID, p.Sender, p.Receiver, p.Contact, p.Description, p.Origin, p.Destination, p.Status,
		p.EstimatedDelivery, string(p.State), p.PauseMessage, p.CreatedAt, p.CreatedBy, timeline)
	if err != nil {
		return fmt.Errorf("insert parcel: %w", translate(err))
	}
	return nil
}

// Get returns a parcel by tracking id.
func (r *ParcelRepository) Get(ctx context.Context, id string) (*model.Parcel, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+parcelColumns+` FROM parcels WHERE id=$1`, id)
	p, err := scanParcel(row)
	if err != nil {
		return nil, fmt.Errorf("select parcel: %w", translate(err))
	}
	return p, nil
}

// List returns parcels newest first, limited to owner when it is not empty.
func (r *ParcelRepository) List(ctx context.Context, owner string) ([]*model.Parcel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+parcelColumns+` FROM parcels
		WHERE $1::text = '' OR created_by = $1
		ORDER BY created_at DESC, seq DESC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("list parcels: %w", err)
	}
	defer rows.Close()
	out := make([]*model.Parcel, 0, 32)
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, fmt.Errorf("list parcels: scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list parcels: rows: %w", err)
	}
	return out, nil
}

// Edit replaces the descriptive fields. A non-nil entry also sets status and
// is appended to the timeline by the same statement.
func (r *ParcelRepository) Edit(ctx context.Context, id string, d model.ParcelDetails, entry *model.TimelineEntry) (*model.Parcel, error) {
	var status, appended *string
	if entry != nil {
		enc, err := encodeTimeline([]model.TimelineEntry{*entry})
		if err != nil {
			return nil, err
		}
		status, appended = &entry.Status, &enc
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE parcels
		SET sender=$2, receiver=$3, contact=$4, description=$5, origin=$6, destination=$7, estimated_delivery=$8,
			status = COALESCE($9::text, status),
			timeline = CASE WHEN $10::jsonb IS NULL THEN timeline ELSE timeline || $10::jsonb END
		WHERE id=$1
		RETURNING `+parcelColumns,
		id, d.Sender, d.Receiver, d.Contact, d.Description, d.Origin, d.Destination, d.EstimatedDelivery,
		status, appended)
	p, err := scanParcel(row)
	if err != nil {
		return nil, fmt.Errorf("edit parcel: %w", translate(err))
	}
	return p, nil
}

// AppendTimeline sets status and appends entry in a single statement so
// concurrent appends never drop each other's entries.
func (r *ParcelRepository) AppendTimeline(ctx context.Context, id string, entry model.TimelineEntry) (*model.Parcel, error) {
	enc, err := encodeTimeline([]model.TimelineEntry{entry})
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE parcels
		SET status=$2, timeline = timeline || $3::jsonb
		WHERE id=$1
		RETURNING `+parcelColumns,
		id, entry.Status, enc)
	p, err := scanParcel(row)
	if err != nil {
		return nil, fmt.Errorf("append timeline: %w", translate(err))
	}
	return p, nil
}

// SetState stores the pause flag and message.
func (r *ParcelRepository) SetState(ctx context.Context, id string, state model.ParcelState, pauseMessage string) (*model.Parcel, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE parcels SET state=$2, pause_message=$3
		WHERE id=$1
		RETURNING `+parcelColumns,
		id, string(state), pauseMessage)
	p, err := scanParcel(row)
	if err != nil {
		return nil, fmt.Errorf("set parcel state: %w", translate(err))
	}
	return p, nil
}

// Delete removes a parcel and returns the deleted row.
func (r *ParcelRepository) Delete(ctx context.Context, id string) (*model.Parcel, error) {
	row := r.pool.QueryRow(ctx, `DELETE FROM parcels WHERE id=$1 RETURNING `+parcelColumns, id)
	p, err := scanParcel(row)
	if err != nil {
		return nil, fmt.Errorf("delete parcel: %w", translate(err))
	}
	return p, nil
}

func scanParcel(row rowScanner) (*model.Parcel, error) {
	var (
		p        model.Parcel
		state    string
		timeline []byte
	)
	if err := row.Scan(&p.ID, &p.Sender, &p.Receiver, &p.Contact, &p.Description, &p.Origin,
		&p.Destination, &p.Status, &p.EstimatedDelivery, &state, &p.PauseMessage, &p.CreatedAt,
		&p.CreatedBy, &timeline); err != nil {
		return nil, err
	}
	p.State = model.ParcelState(state)
	p.Timeline = []model.TimelineEntry{}
	if len(timeline) > 0 {
		if err := json.Unmarshal(timeline, &p.Timeline); err != nil {
			return nil, fmt.Errorf("decode timeline: %w", err)
		}
	}
	return &p, nil
}

func encodeTimeline(entries []model.TimelineEntry) (string, error) {
	if entries == nil {
		entries = []model.TimelineEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("encode timeline: %w", err)
	}
	return string(data), nil
}

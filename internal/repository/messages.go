package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/TrackFast/internal/model"
)

const messageColumns = `id, parcel_id, sender, COALESCE(admin_id, ''), content, read, created_at`

// MessageRepository stores the support chat.
type MessageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository constructs a repository.
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Create appends a message.
func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, parcel_id, sender, admin_id, content, read, created_at)
		VALUES ($1,$2,$3,NULLIF($4::text,''),$5,$6,$7)
	`, m.ID, m.ParcelID, string(m.Sender), m.AdminID, m.Content, m.Read, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", translate(err))
	}
	return nil
}

// Get returns a message by id.
func (r *MessageRepository) Get(ctx context.Context, id string) (*model.Message, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, id))
	if err != nil {
		return nil, fmt.Errorf("select message: %w", translate(err))
	}
	return m, nil
}

// ListByParcel returns a parcel's messages in insertion order.
func (r *MessageRepository) ListByParcel(ctx context.Context, parcelID string) ([]*model.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE parcel_id=$1
		ORDER BY seq ASC
	`, parcelID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	out := make([]*model.Message, 0, 16)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("list messages: scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: rows: %w", err)
	}
	return out, nil
}

func scanMessage(row rowScanner) (*model.Message, error) {
	var (
		m      model.Message
		sender string
	)
	if err := row.Scan(&m.ID, &m.ParcelID, &sender, &m.AdminID, &m.Content, &m.Read, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Sender = model.MessageSender(sender)
	return &m, nil
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/TrackFast/internal/access"
	"github.com/dharsanguruparan/TrackFast/internal/model"
)

// PostMessage is a chat message as submitted by the tracker page or the
// dashboard. Admin replies carry their bearer token in the body because the
// endpoint is also open to anonymous users.
type PostMessage struct {
	ParcelID string `json:"parcelId"`
	Sender   string `json:"sender"`
	Content  string `json:"content"`
	Token    string `json:"token,omitempty"`
}

// SupportService is the per-parcel support chat. Both sides poll List.
type SupportService struct {
	messages MessageStore
	parcels  ParcelStore
	tokens   TokenValidator
	events   EventPublisher
	now      func() time.Time
}

// NewSupportService wires a SupportService. events may be nil.
func NewSupportService(messages MessageStore, parcels ParcelStore, tokens TokenValidator, events EventPublisher) *SupportService {
	if events == nil {
		events = NopPublisher{}
	}
	return &SupportService{
		messages: messages,
		parcels:  parcels,
		tokens:   tokens,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Post appends a message to a parcel's chat.
func (s *SupportService) Post(ctx context.Context, in PostMessage) (*model.Message, error) {
	if err := access.Authorize(access.MessagePost, nil, in.ParcelID); err != nil {
		return nil, err
	}
	parcelID := in.ParcelID
	sender := model.MessageSender(strings.TrimSpace(in.Sender))
	content := strings.TrimSpace(in.Content)
	if parcelID == "" || sender == "" || content == "" {
		return nil, model.Validation("parcelId, sender and content are required")
	}
	if sender != model.SenderUser && sender != model.SenderAdmin {
		return nil, model.Validation("Invalid sender")
	}
	msg := &model.Message{
		ID:        uuid.NewString(),
		ParcelID:  parcelID,
		Sender:    sender,
		Content:   content,
		CreatedAt: s.now(),
	}
	if sender == model.SenderAdmin {
		id, err := s.tokens.Validate(strings.TrimSpace(in.Token))
		if err != nil {
			return nil, err
		}
		msg.AdminID = id.AdminID
		if id.IsSuperadmin() {
			msg.Sender = model.SenderSuperadmin
		}
	}
	if _, err := s.parcels.Get(ctx, parcelID); err != nil {
		return nil, missing(err, "Parcel")
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("post message for %s: %w", parcelID, err)
	}
	publish(ctx, s.events, model.ParcelEvent{ParcelID: parcelID, Action: model.ActionMessage, MessageID: msg.ID, At: msg.CreatedAt})
	return msg, nil
}

// List returns a parcel's chat oldest first. Unknown parcels simply have no
// messages.
func (s *SupportService) List(ctx context.Context, parcelID string) ([]*model.Message, error) {
	if err := access.Authorize(access.MessageList, nil, parcelID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByParcel(ctx, parcelID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*model.Message{}
	}
	return msgs, nil
}

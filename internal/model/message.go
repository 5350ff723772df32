package model

import "time"

// MessageSender identifies who wrote a support message.
type MessageSender string

const (
	SenderUser       MessageSender = "user"
	SenderAdmin      MessageSender = "admin"
	SenderSuperadmin MessageSender = "superadmin"
)

// Message is one entry of the support chat attached to a parcel. Messages are
// never edited or deleted.
type Message struct {
	ID        string        `json:"_id"`
	ParcelID  string        `json:"parcelId"`
	Sender    MessageSender `json:"sender"`
	AdminID   string        `json:"adminId,omitempty"`
	Content   string        `json:"content"`
	Read      bool          `json:"read"`
	CreatedAt time.Time     `json:"createdAt"`
}

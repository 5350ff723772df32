package model

import "time"

// EventAction names the mutation that produced a ParcelEvent.
type EventAction string

const (
	ActionCreated EventAction = "created"
	ActionStatus  EventAction = "status"
	ActionEdited  EventAction = "edited"
	ActionState   EventAction = "state"
	ActionDeleted EventAction = "deleted"
	ActionMessage EventAction = "message"
)

// ParcelEvent is published after a parcel or its chat changed.
type ParcelEvent struct {
	ParcelID  string      `json:"parcel_id"`
	Action    EventAction `json:"action"`
	MessageID string      `json:"message_id,omitempty"`
	At        time.Time   `json:"at"`
}

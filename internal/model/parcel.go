// Package model contains the records shared by the stores, services and the
// HTTP layer.
package model

import (
	"strings"
	"time"
)

// ParcelState is the visibility flag of a parcel. A paused parcel is still
// publicly trackable; the flag only tells viewers that updates have stopped.
type ParcelState string

const (
	StateActive ParcelState = "active"
	StatePaused ParcelState = "paused"
)

// Valid reports whether s is one of the known states.
func (s ParcelState) Valid() bool {
	return s == StateActive || s == StatePaused
}

// Conventional status labels offered by the dashboard. Status is free-form, so
// these are not enforced anywhere.
const (
	StatusOrderReceived  = "Order Received"
	StatusDispatched     = "Dispatched"
	StatusInTransit      = "In Transit"
	StatusOutForDelivery = "Out for Delivery"
	StatusDelivered      = "Delivered"
)

// TimelineEntry is one tracking event. Entries are only ever appended.
type TimelineEntry struct {
	Status   string    `json:"status"`
	Location string    `json:"location"`
	Time     time.Time `json:"time"`
}

// Parcel is a trackable shipment. The JSON names follow what the dashboard and
// tracker pages already read.
type Parcel struct {
	ID                string          `json:"id"`
	Sender            string          `json:"sender"`
	Receiver          string          `json:"receiver"`
	Contact           string          `json:"contact"`
	Description       string          `json:"description"`
	Origin            string          `json:"origin"`
	Destination       string          `json:"destination"`
	Status            string          `json:"status"`
	EstimatedDelivery string          `json:"estimated_delivery"`
	State             ParcelState     `json:"state"`
	PauseMessage      string          `json:"pause_message"`
	CreatedAt         time.Time       `json:"createdAt"`
	CreatedBy         string          `json:"createdBy,omitempty"`
	Timeline          []TimelineEntry `json:"timeline"`
}

// LastLocation returns the location of the newest timeline entry, or "" when
// the timeline is empty.
func (p *Parcel) LastLocation() string {
	if len(p.Timeline) == 0 {
		return ""
	}
	return p.Timeline[len(p.Timeline)-1].Location
}

// ParcelDetails are the fields an admin supplies on create and full edit.
type ParcelDetails struct {
	Sender            string `json:"sender"`
	Receiver          string `json:"receiver"`
	Contact           string `json:"contact"`
	Description       string `json:"description"`
	Origin            string `json:"origin"`
	Destination       string `json:"destination"`
	Status            string `json:"status"`
	EstimatedDelivery string `json:"estimated_delivery"`
}

// Normalize trims surrounding whitespace from every field.
func (d ParcelDetails) Normalize() ParcelDetails {
	return ParcelDetails{
		Sender:            strings.TrimSpace(d.Sender),
		Receiver:          strings.TrimSpace(d.Receiver),
		Contact:           strings.TrimSpace(d.Contact),
		Description:       strings.TrimSpace(d.Description),
		Origin:            strings.TrimSpace(d.Origin),
		Destination:       strings.TrimSpace(d.Destination),
		Status:            strings.TrimSpace(d.Status),
		EstimatedDelivery: strings.TrimSpace(d.EstimatedDelivery),
	}
}

// Validate checks the fields required on both create and edit.
func (d ParcelDetails) Validate() error {
	if d.Sender == "" || d.Receiver == "" || d.Origin == "" || d.Destination == "" || d.Status == "" {
		return Validation("Missing required fields (sender, receiver, origin, destination, status)")
	}
	return nil
}

// TrackedParcel is the public view of a parcel. Pause fields are filled only
// for paused parcels.
type TrackedParcel struct {
	*Parcel
	Paused        bool   `json:"paused"`
	PauseMessage  string `json:"pauseMessage"`
	PauseLocation string `json:"pauseLocation"`
}

// Track builds the public view of p.
func Track(p *Parcel) *TrackedParcel {
	view := &TrackedParcel{Parcel: p}
	if p.State != StatePaused {
		return view
	}
	loc := p.LastLocation()
	if loc == "" {
		loc = p.Origin
	}
	view.Paused = true
	view.PauseMessage = p.PauseMessage
	view.PauseLocation = loc
	return view
}

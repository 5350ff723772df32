package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// TrackingPrefix starts every public tracking code.
const TrackingPrefix = "TRK-"

// NewTrackingID returns "TRK-" followed by 8 random upper-case hex digits.
// Uniqueness is not checked here; the store's primary key rejects the rare
// collision.
func NewTrackingID() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("tracking id: %w", err)
	}
	return TrackingPrefix + strings.ToUpper(hex.EncodeToString(buf)), nil
}

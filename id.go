package strix

import (
	"time"

	"github.com/google/uuid"
)

// NewID generates a globally unique, time-sortable UUIDv7 (RFC 9562).
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Now returns the current time truncated to microseconds so that values
// survive a store round-trip unchanged.
func Now() time.Time {
	return time.Now().Truncate(time.Microsecond)
}

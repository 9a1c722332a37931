package types

import (
	"time"

	"github.com/google/uuid"
)

// SessionID identifies one picking session across pages and requests.
type SessionID string

// NewSessionID generates a UUIDv7 session identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewSessionID() SessionID {
	return SessionID(uuid.Must(uuid.NewV7()).String())
}

// ParseSessionID validates and converts a string to SessionID.
func ParseSessionID(s string) (SessionID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return SessionID(s), nil
}

// SessionStarted extracts the timestamp embedded in a UUIDv7 session id.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func SessionStarted(id SessionID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}

package interaction

import (
	"maps"
	"time"
)

// Kind names the step that created a session.
type Kind string

// Session is an in-flight interaction. Sessions are values: stores copy them
// in and out, and the payload never changes after creation.
type Session struct {
	ID        string            `cbor:"1,keyasint" json:"id"`
	Kind      Kind              `cbor:"2,keyasint" json:"kind"`
	Owner     string            `cbor:"3,keyasint" json:"owner"`
	Scope     string            `cbor:"4,keyasint" json:"scope"`
	Surface   string            `cbor:"5,keyasint,omitempty" json:"surface,omitempty"`
	Payload   map[string]string `cbor:"6,keyasint,omitempty" json:"payload,omitempty"`
	CreatedAt time.Time         `cbor:"7,keyasint" json:"created_at"`
	Deadline  time.Time         `cbor:"8,keyasint" json:"deadline"`
}

// IsLive reports whether the session deadline is still ahead of now.
func (s Session) IsLive(now time.Time) bool {
	return now.Before(s.Deadline)
}

// Value returns the payload value for key, or "".
func (s Session) Value(key string) string {
	return s.Payload[key]
}

// IsOwnedBy reports whether userID may advance the session.
func (s Session) IsOwnedBy(userID string) bool {
	return s.Owner != "" && s.Owner == userID
}

func (s Session) clone() Session {
	s.Payload = maps.Clone(s.Payload)
	return s
}

func (s Session) validate() error {
	if s.ID == "" || s.Owner == "" || s.Scope == "" || s.CreatedAt.IsZero() || s.Deadline.Before(s.CreatedAt) {
		return ErrInvalidSession
	}
	return nil
}

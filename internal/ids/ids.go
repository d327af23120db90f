// Package ids defines the identifier types shared by every layer of the
// group chat core: opaque user ids, client-chosen message ids, and the
// dense indexes the event log assigns itself.
package ids

import (
	"errors"

	"github.com/google/uuid"
)

// UserId identifies a caller. Opaque: the core never parses it, only
// compares and hashes it.
type UserId string

// MessageId is a 128-bit id chosen by the sending client and unique per
// chat. Backed by uuid.UUID the same way the teacher's domain.MessageID
// wraps one, except here the caller supplies the value rather than the
// server minting it.
type MessageId uuid.UUID

// NewMessageId mints a fresh, random message id (used by tests and by
// reference clients; production callers choose their own).
func NewMessageId() MessageId {
	return MessageId(uuid.New())
}

// ParseMessageId parses a textual UUID into a MessageId.
func ParseMessageId(s string) (MessageId, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return MessageId{}, errors.New("invalid message id")
	}
	return MessageId(u), nil
}

func (m MessageId) String() string {
	return uuid.UUID(m).String()
}

// MessageIndex is a dense, per-log (main chat or a single thread)
// sequence number assigned in insertion order. Never reused.
type MessageIndex uint32

// EventIndex is a dense, per-log sequence number counting every event,
// message or not. Never reused.
type EventIndex uint32

// TimestampMillis is a Unix-epoch millisecond timestamp, always sourced
// from an Environment so replay is deterministic.
type TimestampMillis = int64

// Version is a monotonic counter, used for the access-rules text.
type Version uint32

// Versioned pairs a value with the version at which it was last set.
type Versioned[T any] struct {
	Value   T
	Version Version
}

// Timestamped pairs a value with the time it was last set.
type Timestamped[T any] struct {
	Value     T
	Timestamp TimestampMillis
}

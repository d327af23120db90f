// Package actions defines the outbound-action queue (§6): the core
// enqueues typed actions for the surrounding runtime to drain and carry
// out — it never consumes them itself. Modeled as a plain in-memory
// slice, the same "append in the handler, drain in the runtime" split
// the teacher uses for its own deferred work (e.g. ChatRepository's
// `go r.publishEvent(...)` after a commit), except here nothing runs in
// a goroutine spawned by the core itself: §5 requires every handler to
// be a synchronous, non-blocking transformation, so draining is entirely
// the runtime's job.
package actions

import "github.com/openmesh-chat/groupchat-core/internal/ids"

// Kind discriminates the Action payload.
type Kind int

const (
	KindNotifyUsers Kind = iota
	KindTransferCkbtc
	KindSendPushNotification
)

// Action is one deferred side effect. Exactly one of the payload fields
// is populated, selected by Kind — a tagged union, Go-style.
type Action struct {
	Kind Kind

	// KindNotifyUsers
	NotifyUsers   []ids.UserId
	NotifyChat    string
	NotifyEventID ids.EventIndex

	// KindTransferCkbtc
	TransferTo     ids.UserId
	TransferAmount uint64

	// KindSendPushNotification
	PushUsers   []ids.UserId
	PushPreview string
}

// Queue is an append-only outbound queue owned by the runtime. The core
// only ever calls Push; Drain is for the runtime's dispatch loop.
type Queue struct {
	pending []Action
}

func (q *Queue) Push(a Action) { q.pending = append(q.pending, a) }

// Drain returns and clears all pending actions. Not safe for concurrent
// use across goroutines — per §5 there is exactly one logical replica
// processing commands at a time, and draining happens between commands.
func (q *Queue) Drain() []Action {
	drained := q.pending
	q.pending = nil
	return drained
}

// Len reports the number of actions currently queued, for metrics.
func (q *Queue) Len() int { return len(q.pending) }

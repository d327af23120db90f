// Package environment provides the single abstraction boundary between
// GroupChatCore and the outside world: wall-clock time, caller identity,
// randomness and the replica's own canister id. §9 calls for exactly one
// interface with one production and one test implementation, not a
// plugin mechanism — matching the teacher's own preference for a single
// concrete implementation per collaborator rather than a registry.
package environment

import (
	"math/rand"
	"sync"
	"time"

	"github.com/openmesh-chat/groupchat-core/internal/ids"
)

// Environment is the core's only inbound collaborator. Every command
// handler that needs time, randomness or identity goes through it so
// that replaying the same command sequence against a seeded Environment
// reconstructs identical state.
type Environment interface {
	Now() ids.TimestampMillis
	Caller() ids.UserId
	CanisterId() ids.UserId
	Rng() uint64
	CyclesBalance() uint64
}

// Prod is the production Environment: wall-clock time, a process-wide
// RNG seeded once at startup, and identity supplied by the transport
// layer per request.
type Prod struct {
	mu         sync.Mutex
	rng        *rand.Rand
	caller     ids.UserId
	canisterID ids.UserId
}

// NewProd builds a production Environment seeded from the current time.
// canisterID identifies this replica; caller is set per request via
// WithCaller since a single replica serves many callers over its life.
func NewProd(canisterID ids.UserId) *Prod {
	return &Prod{
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		canisterID: canisterID,
	}
}

// WithCaller returns a shallow copy of e scoped to the given caller, for
// use while handling a single command.
func (e *Prod) WithCaller(caller ids.UserId) *Prod {
	return &Prod{rng: e.rng, caller: caller, canisterID: e.canisterID}
}

func (e *Prod) Now() ids.TimestampMillis { return time.Now().UnixMilli() }
func (e *Prod) Caller() ids.UserId       { return e.caller }
func (e *Prod) CanisterId() ids.UserId   { return e.canisterID }

func (e *Prod) Rng() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Uint64()
}

func (e *Prod) CyclesBalance() uint64 {
	// The core only reads this for informational queries; replicated
	// cycle accounting lives in the canister runtime, out of scope here.
	return 0
}

// Test is a fully deterministic Environment for unit tests: time and rng
// output are whatever the test sets, never wall-clock or process entropy.
type Test struct {
	NowMillis  ids.TimestampMillis
	CallerID   ids.UserId
	Canister   ids.UserId
	RngValues  []uint64
	rngCursor  int
	Cycles     uint64
}

func NewTest(caller ids.UserId, now ids.TimestampMillis) *Test {
	return &Test{CallerID: caller, NowMillis: now, Canister: "test-canister"}
}

func (e *Test) Now() ids.TimestampMillis { return e.NowMillis }
func (e *Test) Caller() ids.UserId       { return e.CallerID }
func (e *Test) CanisterId() ids.UserId   { return e.Canister }

func (e *Test) Rng() uint64 {
	if e.rngCursor < len(e.RngValues) {
		v := e.RngValues[e.rngCursor]
		e.rngCursor++
		return v
	}
	return 0
}

func (e *Test) CyclesBalance() uint64 { return e.Cycles }

// Advance moves the test clock forward by delta milliseconds.
func (e *Test) Advance(delta ids.TimestampMillis) { e.NowMillis += delta }

package anysim

import (
	"math/rand"
	"time"
)

// timerMode distinguishes the two timer-scheduling semantics exposed
// by Context: override an existing timer of the same name, or only
// schedule if none exists yet.
type timerMode int

const (
	timerOverride timerMode = iota
	timerKeepExisting
)

// actionKind tags the accumulated side effects a callback produces.
type actionKind int

const (
	actionSend actionKind = iota
	actionSendLocal
	actionSetTimer
	actionCancelTimer
)

// action is one queued side effect. It is never applied while the
// callback runs; the Node drains the full set after the callback
// returns, guaranteeing a failed callback leaves no partial effects
// (spec §4.1).
type action struct {
	kind  actionKind
	msg   Message
	dst   string
	timer string
	delay time.Duration
	mode  timerMode
}

// Context is the sole sink for side effects during a single callback
// invocation. It is constructed fresh for each dispatch and discarded
// once its actions are drained.
type Context struct {
	now     time.Time
	rng     *rand.Rand
	actions []action
}

// newContext builds a Context bound to the given simulated time (the
// node's clock skew already folded in by the caller) and a
// deterministic per-step RNG.
func newContext(now time.Time, rng *rand.Rand) *Context {
	return &Context{now: now, rng: rng}
}

// Send enqueues an outbound message to dst, an address in "node.proc"
// form (see Addr). The send is realized as a MessageReceived event
// once the Node drains this context's actions through the Network.
func (c *Context) Send(msg Message, dst string) {
	c.actions = append(c.actions, action{kind: actionSend, msg: msg, dst: dst})
}

// SendLocal enqueues a message for the harness's local outbox, i.e. an
// outbound message to whatever external entity the process represents
// a stand-in conversation with.
func (c *Context) SendLocal(msg Message) {
	c.actions = append(c.actions, action{kind: actionSendLocal, msg: msg})
}

// SetTimer schedules (or reschedules) a named timer, overriding any
// existing pending fire under the same name — the previous pending
// TimerFired is atomically cancelled in the same action-drain pass, so
// it can never itself become enabled (spec §9, StrictTime/override
// resolution).
func (c *Context) SetTimer(name string, delay time.Duration) {
	c.actions = append(c.actions, action{kind: actionSetTimer, timer: name, delay: delay, mode: timerOverride})
}

// SetTimerOnce schedules a named timer only if none is currently
// pending under that name; an existing pending timer is left alone.
func (c *Context) SetTimerOnce(name string, delay time.Duration) {
	c.actions = append(c.actions, action{kind: actionSetTimer, timer: name, delay: delay, mode: timerKeepExisting})
}

// CancelTimer enqueues cancellation of a named timer, if one is
// pending.
func (c *Context) CancelTimer(name string) {
	c.actions = append(c.actions, action{kind: actionCancelTimer, timer: name})
}

// Time returns the current simulated time for this callback,
// including the owning node's clock skew.
func (c *Context) Time() time.Time {
	return c.now
}

// Rand returns the next deterministic draw in [0, 1) from the shared
// per-step RNG.
func (c *Context) Rand() float64 {
	return c.rng.Float64()
}

// RandRange returns a deterministic draw in [lo, hi).
func (c *Context) RandRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + c.rng.Intn(hi-lo)
}

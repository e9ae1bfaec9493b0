package anysim

import (
	"time"

	"github.com/google/uuid"
)

// TraceEntry is one user-visible action recorded along the current
// exploration path: a message send, a timer set, or a timer
// cancellation, together with the process/node that produced it (spec
// §4.8). Messages a process sends to its local outbox are not recorded.
type TraceEntry struct {
	Time  time.Time
	Node  string
	Proc  string
	Kind  string
	Detail string
}

// TraceHandler records the user-visible trace of a single run or a
// single exploration branch. It is deliberately a flat, append-only
// log referenced by value-copyable handles rather than parent
// back-pointers (see DESIGN.md, "cyclic ownership"): the simulator
// owns one handler for its whole run, while the model checker gives
// every State its own handler, forked from its parent's on Clone, so
// backtracking needs no rewind.
type TraceHandler struct {
	runID   uuid.UUID
	entries []TraceEntry
}

// NewTraceHandler returns an empty handler stamped with a fresh run ID,
// used to correlate a rendered counterexample or trace dump with the
// run that produced it across separate log lines.
func NewTraceHandler() *TraceHandler {
	return &TraceHandler{runID: uuid.New()}
}

// RunID identifies the run (or, for a forked MC branch, the root run it
// descends from) this trace belongs to.
func (h *TraceHandler) RunID() uuid.UUID { return h.runID }

// Record appends an entry to the trace.
func (h *TraceHandler) Record(e TraceEntry) {
	h.entries = append(h.entries, e)
}

// Entries returns the recorded trace in path order. The returned slice
// must not be mutated by the caller.
func (h *TraceHandler) Entries() []TraceEntry {
	return h.entries
}

// Fork returns a new handler holding a copy of the current entries,
// so the two can be extended independently — used by State.Clone when
// branching into a child state. The entries are copied into a fresh
// slice at once, so each fork costs one copy of the prefix.
func (h *TraceHandler) Fork() *TraceHandler {
	cp := make([]TraceEntry, len(h.entries))
	copy(cp, h.entries)
	return &TraceHandler{runID: h.runID, entries: cp}
}

// Truncate drops the suffix back to length n. The strategies in the mc
// package do not call it, since each State carries its own fork.
func (h *TraceHandler) Truncate(n int) {
	h.entries = h.entries[:n]
}

// Len reports the current trace length, a point Truncate can later
// return to.
func (h *TraceHandler) Len() int {
	return len(h.entries)
}

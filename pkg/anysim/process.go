package anysim

// ProcessState is the capability surface a process snapshot must
// implement. Snapshots are carried as an opaque tagged payload that
// knows how to hash and compare itself against another payload of the
// same concrete type (spec §9, "polymorphic processes"); the engine
// never inspects a snapshot's fields directly.
type ProcessState interface {
	// Hash returns a deterministic hash of the snapshot's contents.
	Hash() uint64
	// Equal reports whether this snapshot is structurally equal to
	// other. Implementations may assume other is the same concrete
	// type; a type mismatch is reported as not-equal rather than a
	// panic, so comparisons across differently-typed processes in the
	// same node fail closed.
	Equal(other ProcessState) bool
}

// Process is the callback surface a distributed algorithm implements.
// A concrete Process must be deterministic as a function of
// (prior state, inputs, seeded RNG drawn from the Context) — the engine
// guarantees the inputs and RNG are reproducible; the implementation
// must not reach outside of them (wall clock, goroutines, globals).
type Process interface {
	// OnStart is invoked once when the process is bound to a node, and
	// again after any recovery from a crash.
	OnStart(ctx *Context) error

	// OnMessage handles a message received from another process,
	// possibly on a different node. from is the sending process's
	// address, in "node.proc" form (see Addr).
	OnMessage(msg Message, from string, ctx *Context) error

	// OnLocalMessage handles a message injected directly by the
	// harness (SendLocalMessage), standing in for an external user.
	OnLocalMessage(msg Message, ctx *Context) error

	// OnTimer handles the firing of a previously scheduled timer.
	OnTimer(name string, ctx *Context) error

	// State returns a snapshot of the process's externally observable
	// state. Used by model checking; simulation, including crash and
	// recovery (which rebuild the process from its Factory), never
	// calls it, so simulation-only processes may return nil.
	State() ProcessState

	// SetState restores the process to a previously captured snapshot.
	SetState(state ProcessState)
}

// Factory builds a fresh Process value, used both for initial binding
// and for reconstructing a process after a crash (spec §3 Lifecycle:
// "Recovery restores a blank ProcessEntry... then invokes on_start").
type Factory func() Process

// Addr composes a node name and a process name into the single address
// string the Context.Send/OnMessage "from" surface uses, matching
// spec §4.1's single-argument send(msg, dst) shape while keeping the
// node/process pair structured internally.
func Addr(node, proc string) string {
	return node + "." + proc
}

// Package bridge documents the contract a foreign-language process
// implementation must satisfy to plug into the engine (spec §6,
// "Foreign-language process bridge"). Spec.md explicitly scopes the
// bridge's implementation out ("a process implementation obtained
// through a foreign bridge that exposes the same callback surface");
// this package only pins down that surface so a future embedding (e.g.
// a Python interpreter, mirroring original_source/src/python/mod.rs)
// has a concrete Go interface to satisfy. Nothing in this module
// constructs a ForeignProcess.
package bridge

// ForeignProcess is the callback surface a bridge to another language
// must expose. It mirrors anysim.Process, except State/SetState trade
// in an opaque string snapshot instead of a typed anysim.ProcessState:
// the bridge alone understands how to serialize its embedded process's
// state to and from that string (spec §6).
type ForeignProcess interface {
	OnStart() error
	OnMessage(tag, data, from string) error
	OnLocalMessage(tag, data string) error
	OnTimer(name string) error

	// GetState returns an opaque, bridge-defined serialization of the
	// embedded process's state.
	GetState() (string, error)

	// SetState restores the embedded process from a snapshot
	// previously produced by GetState.
	SetState(snapshot string) error
}

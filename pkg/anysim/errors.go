package anysim

import "fmt"

// CallbackError wraps a user-process error string with the context the
// engine was running under when it occurred: which process, on which
// node, handling which trigger. Simulation fails fast on this error
// after rendering the accumulated trace (see TraceHandler); the model
// checker instead reports it as a Result with StatusCallbackError and
// this error in Err, distinct from an invariant violation.
type CallbackError struct {
	Node    string
	Proc    string
	Trigger string
	Reason  string
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback error: %s/%s handling %s: %s", e.Node, e.Proc, e.Trigger, e.Reason)
}

// ViolationError reports an invariant or liveness-goal violation found
// by the model checker, together with the event path that reaches it.
type ViolationError struct {
	// Kind distinguishes an invariant failure from an unreached goal.
	Kind    ViolationKind
	Reason  string
	Path    []TraceEntry
}

// ViolationKind enumerates the ways a model-checking branch can fail,
// per spec §7.2-§7.3.
type ViolationKind int

const (
	// ViolationInvariant means a user-supplied invariant returned an error.
	ViolationInvariant ViolationKind = iota
	// ViolationGoalUnreached means a state reached neither a goal nor a
	// prune and has no enabled transition left.
	ViolationGoalUnreached
)

func (e *ViolationError) Error() string {
	kind := "invariant violation"
	if e.Kind == ViolationGoalUnreached {
		kind = "goal not reached"
	}
	return fmt.Sprintf("%s: %s (path length %d)", kind, e.Reason, len(e.Path))
}

// ProgrammingError indicates harness misuse (addressing an unknown node
// or process) rather than a defect in the system under test. The System
// and Node methods that detect the misuse return it as an ordinary
// error; nothing panics on it.
type ProgrammingError struct {
	Reason string
}

func (e *ProgrammingError) Error() string {
	return "anysim: programming error: " + e.Reason
}

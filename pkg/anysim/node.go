package anysim

import (
	"math/rand"
	"time"
)

// TriggerKind tags what caused a process dispatch.
type TriggerKind int

const (
	TriggerStart TriggerKind = iota
	TriggerMessage
	TriggerLocalMessage
	TriggerTimer
)

// Trigger is the single input a process callback responds to.
type Trigger struct {
	Kind TriggerKind
	Msg  Message
	From string // sending address, for TriggerMessage
	Name string // timer name, for TriggerTimer
}

func (t Trigger) String() string {
	switch t.Kind {
	case TriggerStart:
		return "start"
	case TriggerMessage:
		return "message " + t.Msg.String() + " from " + t.From
	case TriggerLocalMessage:
		return "local-message " + t.Msg.String()
	case TriggerTimer:
		return "timer " + t.Name
	default:
		return "unknown-trigger"
	}
}

// LoggedEvent is one entry in a process's private event log: the
// trigger it handled and when. Distinct from TraceHandler, which
// records only the user-visible *outputs* of a callback — the event
// log instead records *inputs*, and exists so a crashed/recovered
// process's history can be inspected without depending on global trace
// state (spec §3, ProcessEntry.event_log).
type LoggedEvent struct {
	Time    time.Time
	Trigger Trigger
}

// ProcessEntry is everything a Node tracks for one bound process.
type ProcessEntry struct {
	Process Process

	EventLog     []LoggedEvent
	LocalOutbox  []Message
	PendingTimers map[string]uint64 // timer name -> pending event id

	SentMessageCount     uint64
	ReceivedMessageCount uint64
}

func newProcessEntry(p Process) *ProcessEntry {
	return &ProcessEntry{
		Process:       p,
		PendingTimers: make(map[string]uint64),
	}
}

// Node owns a set of processes by name, routes callbacks to them, and
// tracks per-process bookkeeping plus crash state (spec §3/§4.3).
type Node struct {
	Name      string
	ClockSkew time.Duration
	Crashed   bool

	processes map[string]*ProcessEntry
	factories map[string]Factory
}

// NewNode creates an empty node ready to have processes added.
func NewNode(name string) *Node {
	return &Node{
		Name:      name,
		processes: make(map[string]*ProcessEntry),
		factories: make(map[string]Factory),
	}
}

// AddProcess binds a process under name, built from factory. The
// factory is retained so a later crash/recover cycle can reconstruct a
// blank process (spec §3 Lifecycle).
func (n *Node) AddProcess(name string, factory Factory) {
	n.factories[name] = factory
	n.processes[name] = newProcessEntry(factory())
}

// Entry returns the process entry bound under name, if any.
func (n *Node) Entry(name string) (*ProcessEntry, bool) {
	e, ok := n.processes[name]
	return e, ok
}

// ProcessNames returns the bound process names, for iteration by the
// system/model checker when applying a crash or computing a snapshot.
func (n *Node) ProcessNames() []string {
	out := make([]string, 0, len(n.processes))
	for name := range n.processes {
		out = append(out, name)
	}
	return out
}

// Dispatch is the pure function of spec §4.3: given a process name, a
// trigger, the current time, and the shared RNG, it invokes the bound
// process's matching callback, drains the accumulated actions on
// success, and returns the events those actions produce. now should
// already include the node's clock skew; callers (System and the mc
// package's State transitions) are responsible for adding it.
func (n *Node) Dispatch(procName string, trigger Trigger, now time.Time, rng *rand.Rand) ([]Event, error) {
	if n.Crashed {
		// An event targeting a crashed node is unreachable; callers
		// should have already filtered these out, but fail closed.
		return nil, &ProgrammingError{Reason: "dispatch on crashed node " + n.Name}
	}
	entry, ok := n.processes[procName]
	if !ok {
		return nil, &ProgrammingError{Reason: "unknown process " + procName + " on node " + n.Name}
	}

	entry.EventLog = append(entry.EventLog, LoggedEvent{Time: now, Trigger: trigger})

	ctx := newContext(now, rng)
	var err error
	switch trigger.Kind {
	case TriggerStart:
		err = entry.Process.OnStart(ctx)
	case TriggerMessage:
		err = entry.Process.OnMessage(trigger.Msg, trigger.From, ctx)
	case TriggerLocalMessage:
		err = entry.Process.OnLocalMessage(trigger.Msg, ctx)
	case TriggerTimer:
		err = entry.Process.OnTimer(trigger.Name, ctx)
	}
	if err != nil {
		return nil, &CallbackError{Node: n.Name, Proc: procName, Trigger: trigger.String(), Reason: err.Error()}
	}

	return n.drain(procName, entry, ctx, now), nil
}

// drain applies the accumulated context actions in order, updating
// bookkeeping and returning newly produced events (spec §4.3 step 4).
// Message sends are returned to the caller as bare "pending send"
// events for the Network to realize into scheduled/branching
// MessageReceived events; the Node itself does not talk to the
// network directly.
func (n *Node) drain(procName string, entry *ProcessEntry, ctx *Context, now time.Time) []Event {
	var produced []Event
	for _, act := range ctx.actions {
		switch act.kind {
		case actionSend:
			entry.SentMessageCount++
			produced = append(produced, Event{
				Kind:   EventMessageReceived,
				Time:   now,
				Target: act.dst,
				Msg:    act.msg,
				Src:    Addr(n.Name, procName),
			})
		case actionSendLocal:
			entry.LocalOutbox = append(entry.LocalOutbox, act.msg)
		case actionSetTimer:
			if act.mode == timerKeepExisting {
				if _, exists := entry.PendingTimers[act.timer]; exists {
					continue
				}
			}
			// Overriding atomically retires the stale pending fire so
			// it can never become enabled (spec §9 open question
			// resolution); the retiring itself happens in the caller
			// (System or mc.State), which owns the pending set and can
			// remove the old id before inserting the new one. Here we
			// just mark the action as a fire-scheduling request.
			produced = append(produced, Event{
				Kind:   EventTimerFired,
				Time:   now.Add(act.delay),
				Target: Addr(n.Name, procName),
				Timer:  act.timer,
			})
		case actionCancelTimer:
			if _, exists := entry.PendingTimers[act.timer]; exists {
				produced = append(produced, Event{
					Kind:   EventTimerCancelled,
					Time:   now,
					Target: Addr(n.Name, procName),
					Timer:  act.timer,
				})
			}
		}
	}
	return produced
}

// RecordTimerCleared removes a timer's outstanding-fire bookkeeping,
// called when its TimerFired or TimerCancelled event actually executes.
func (e *ProcessEntry) RecordTimerCleared(name string) {
	delete(e.PendingTimers, name)
}

// RecordMessageReceived bumps the received-message counter, called by
// the caller once a MessageReceived event is actually delivered (i.e.
// dispatch succeeded), not merely scheduled.
func (e *ProcessEntry) RecordMessageReceived() {
	e.ReceivedMessageCount++
}

// Crash marks the node crashed, purges all pending timer bookkeeping,
// and returns the set of timer pending-ids that must be retired from
// whatever pending-event store the caller owns (spec §4.3 Crash
// semantics). In-flight messages directed at this node are dropped by
// the caller's event-filtering, not here.
func (n *Node) Crash() []uint64 {
	n.Crashed = true
	var retired []uint64
	for _, entry := range n.processes {
		for _, id := range entry.PendingTimers {
			retired = append(retired, id)
		}
		entry.PendingTimers = make(map[string]uint64)
	}
	return retired
}

// CloneForExploration returns a new Node with the same name, clock
// skew, crash flag, and factories, whose processes are rebuilt via
// factory and then restored to match this node's current externally
// observable state. Event logs and message counters are deliberately
// not carried over: state equality ignores them (spec §3), and the
// model checker only needs them reset-able to branch independently.
// Factories are a read-only map of pure constructors, safe to share
// between the clone and the original.
func (n *Node) CloneForExploration() *Node {
	cp := NewNode(n.Name)
	cp.ClockSkew = n.ClockSkew
	cp.Crashed = n.Crashed
	cp.factories = n.factories
	for name, factory := range n.factories {
		entry := newProcessEntry(factory())
		if old, ok := n.processes[name]; ok {
			entry.Process.SetState(old.Process.State())
			entry.LocalOutbox = append([]Message(nil), old.LocalOutbox...)
			entry.PendingTimers = copyTimerMap(old.PendingTimers)
		}
		cp.processes[name] = entry
	}
	return cp
}

func copyTimerMap(m map[string]uint64) map[string]uint64 {
	cp := make(map[string]uint64, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Recover reconstructs every bound process from its factory (a blank
// ProcessEntry, per spec §3 Lifecycle), clears the crash flag, and
// returns the process names so the caller can invoke OnStart on each.
func (n *Node) Recover() []string {
	n.Crashed = false
	names := make([]string, 0, len(n.factories))
	for name, factory := range n.factories {
		n.processes[name] = newProcessEntry(factory())
		names = append(names, name)
	}
	return names
}

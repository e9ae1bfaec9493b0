package anysim

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/anysim-project/anysim/pkg/anysim/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// System is the deterministic discrete-event simulator: it owns the
// nodes, the network, the pending-events priority queue, and the
// shared RNG every stochastic draw consumes from in a fixed order
// (spec §4.5/§9).
type System struct {
	nodes   map[string]*Node
	network *Network
	pending *PendingEventSet
	rng     *rand.Rand
	now     time.Time
	logger  Logger
	trace   *TraceHandler
	metrics *metrics.Metrics

	steps uint64
}

// NewSystem builds an empty system seeded for reproducibility. If
// logger is nil, NewDefaultLogger() is used.
func NewSystem(seed int64, logger Logger) *System {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &System{
		nodes:   make(map[string]*Node),
		network: NewNetwork(),
		pending: NewPendingEventSet(),
		rng:     rand.New(rand.NewSource(seed)),
		now:     time.Time{},
		logger:  logger,
		trace:   NewTraceHandler(),
	}
}

// WithMetrics attaches a metrics set registered against reg, returning
// the System for chaining. Optional; a System with no metrics attached
// simply skips instrumentation.
func (s *System) WithMetrics(reg prometheus.Registerer, namespace string) *System {
	s.metrics = metrics.New(reg, namespace)
	return s
}

// AddNode creates and registers a node, returning it so the caller can
// set clock skew before adding processes.
func (s *System) AddNode(name string) *Node {
	n := NewNode(name)
	s.nodes[name] = n
	return n
}

// AddProcess binds a process under node/proc, built from factory, and
// invokes its OnStart callback immediately (spec §4.2: "invoked once
// when the process is bound to a node").
func (s *System) AddProcess(node, proc string, factory Factory) error {
	n, ok := s.nodes[node]
	if !ok {
		return &ProgrammingError{Reason: "unknown node " + node}
	}
	n.AddProcess(proc, factory)
	produced, err := n.Dispatch(proc, Trigger{Kind: TriggerStart}, s.skewedNow(n), s.rng)
	if err != nil {
		s.fail(err)
		return err
	}
	s.realize(n, proc, produced)
	return nil
}

// Network returns the network for configuring delay/drop/dup/corrupt
// and partitions between Step calls.
func (s *System) Network() *Network { return s.network }

// Nodes returns the system's node set, keyed by name. Used by the
// model checker to build a root State from an already-configured
// System (spec §4.7: "a run starts with a root state").
func (s *System) Nodes() map[string]*Node { return s.nodes }

// PendingEvents returns the system's pending-event set.
func (s *System) PendingEvents() *PendingEventSet { return s.pending }

// Rand returns the system's shared RNG, reused by the model checker so
// process callbacks that draw from ctx.Rand()/RandRange() remain
// deterministic across a checked run.
func (s *System) Rand() *rand.Rand { return s.rng }

// Now returns the simulator's current logical time.
func (s *System) Now() time.Time { return s.now }

// Trace returns the recorded user-visible trace for this run.
func (s *System) Trace() *TraceHandler { return s.trace }

// PendingCount reports how many events are currently pending, useful
// for StepUntil predicates and tests.
func (s *System) PendingCount() int { return s.pending.Len() }

// StepCount reports how many events have been executed so far.
func (s *System) StepCount() uint64 { return s.steps }

func (s *System) skewedNow(n *Node) time.Time {
	return s.now.Add(n.ClockSkew)
}

// SendLocalMessage injects a message directly into proc's
// OnLocalMessage callback, standing in for an external user (spec §6).
// Local messages are not part of the Event union — they execute
// synchronously rather than through the pending queue, matching the
// restriction that user interaction happens "only between steps".
func (s *System) SendLocalMessage(node, proc string, msg Message) error {
	n, ok := s.nodes[node]
	if !ok {
		return &ProgrammingError{Reason: "unknown node " + node}
	}
	if n.Crashed {
		return nil // unreachable: dropped on crash, per spec §3
	}
	produced, err := n.Dispatch(proc, Trigger{Kind: TriggerLocalMessage, Msg: msg}, s.skewedNow(n), s.rng)
	if err != nil {
		s.fail(err)
		return err
	}
	s.realize(n, proc, produced)
	return nil
}

// ReadLocalMessages drains and returns the messages proc has sent to
// its local outbox since the last read.
func (s *System) ReadLocalMessages(node, proc string) ([]Message, error) {
	n, ok := s.nodes[node]
	if !ok {
		return nil, &ProgrammingError{Reason: "unknown node " + node}
	}
	entry, ok := n.Entry(proc)
	if !ok {
		return nil, &ProgrammingError{Reason: "unknown process " + proc + " on node " + node}
	}
	out := entry.LocalOutbox
	entry.LocalOutbox = nil
	return out, nil
}

// CrashNode marks a node crashed: its processes stop receiving any
// callback, its pending timers are purged, and the network severs
// every link touching it (spec §4.3 Crash semantics).
func (s *System) CrashNode(name string) error {
	n, ok := s.nodes[name]
	if !ok {
		return &ProgrammingError{Reason: "unknown node " + name}
	}
	for _, id := range n.Crash() {
		s.pending.Remove(id)
	}
	s.network.DisconnectNode(name)
	return nil
}

// RecoverNode restarts every process on a crashed node from its
// factory and reconnects the node to the network (spec §3 Lifecycle).
func (s *System) RecoverNode(name string) error {
	n, ok := s.nodes[name]
	if !ok {
		return &ProgrammingError{Reason: "unknown node " + name}
	}
	s.network.ReconnectNode(name)
	for _, proc := range n.Recover() {
		produced, err := n.Dispatch(proc, Trigger{Kind: TriggerStart}, s.skewedNow(n), s.rng)
		if err != nil {
			s.fail(err)
			return err
		}
		s.realize(n, proc, produced)
	}
	return nil
}

// Step executes the single earliest pending event, advancing the
// simulator's logical time to that event's time, and returns whether
// an event was actually available (false once the queue is empty).
func (s *System) Step() (bool, error) {
	ev, ok := s.pending.PopMin()
	if !ok {
		return false, nil
	}
	s.now = ev.Time
	s.steps++
	if s.metrics != nil {
		s.metrics.EventsProcessed.Inc()
		s.metrics.PendingEventSetSize.Set(float64(s.pending.Len()))
	}

	nodeName := nodeOf(ev.Target)
	procName := ProcOf(ev.Target)
	n, ok := s.nodes[nodeName]
	if !ok {
		return true, &ProgrammingError{Reason: "event targets unknown node " + nodeName}
	}
	if n.Crashed {
		// An event targeting a crashed node is unreachable; it is
		// consumed here but produces no callback invocation (spec §3).
		s.logger.Debugf("dropping %s for crashed node %s", ev.Kind, nodeName)
		return true, nil
	}

	entry, ok := n.Entry(procName)
	if !ok {
		return true, &ProgrammingError{Reason: "event targets unknown process " + procName + " on " + nodeName}
	}

	var trigger Trigger
	switch ev.Kind {
	case EventMessageReceived:
		trigger = Trigger{Kind: TriggerMessage, Msg: ev.Msg, From: ev.Src}
	case EventTimerFired:
		entry.RecordTimerCleared(ev.Timer)
		trigger = Trigger{Kind: TriggerTimer, Name: ev.Timer}
		if s.metrics != nil {
			s.metrics.TimersFired.Inc()
		}
	default:
		// TimerCancelled never reaches the queue in simulation mode
		// (it is applied synchronously in realize); reaching here
		// indicates harness misuse building events directly.
		return true, &ProgrammingError{Reason: fmt.Sprintf("unexpected pending event kind %s", ev.Kind)}
	}

	produced, err := n.Dispatch(procName, trigger, s.skewedNow(n), s.rng)
	if err != nil {
		s.fail(err)
		return true, err
	}
	if ev.Kind == EventMessageReceived {
		entry.RecordMessageReceived()
	}
	s.realize(n, procName, produced)
	return true, nil
}

// StepUntilNoEvents steps the simulator until the pending queue is
// empty or a callback error aborts the run.
func (s *System) StepUntilNoEvents() error {
	for {
		more, err := s.Step()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// StepUntil steps the simulator until pred(s) is true, the queue
// empties, or a callback error aborts the run.
func (s *System) StepUntil(pred func(*System) bool) error {
	for !pred(s) {
		more, err := s.Step()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

// fail renders the accumulated trace to stderr in red and logs the
// error, matching spec §7.1's "print the accumulated trace and abort
// the run" behavior.
func (s *System) fail(err error) {
	renderTraceFailure(s.trace.RunID(), s.trace.Entries(), err)
	s.logger.Error(err)
}

// realize applies the events a dispatch produced: message sends are
// handed to the network (which may drop/delay/duplicate/corrupt them
// before they become pending MessageReceived events); timer
// (re)schedules atomically retire any stale pending fire under the
// same name; explicit cancellations retire a pending fire immediately.
// Every send, timer set and timer cancellation is also appended to the
// trace (spec §4.8). Messages a process puts in its local outbox do not
// pass through here and are not traced.
func (s *System) realize(n *Node, procName string, produced []Event) {
	entry, _ := n.Entry(procName)

	for _, ev := range produced {
		switch ev.Kind {
		case EventMessageReceived:
			deliveries := s.network.Send(ev.Msg, ev.Src, ev.Target, ev.Time, s.rng)
			if s.metrics != nil {
				s.metrics.MessagesSent.Inc()
				if len(deliveries) == 0 {
					s.metrics.MessagesDropped.Inc()
				} else if len(deliveries) == 2 {
					s.metrics.MessagesDuplicated.Inc()
				}
				for _, d := range deliveries {
					if ev.Msg.Data != "" && d.Msg.Data == "" {
						s.metrics.MessagesCorrupted.Inc()
					}
				}
			}
			for _, d := range deliveries {
				s.pending.Push(d)
			}
			s.trace.Record(TraceEntry{Time: ev.Time, Node: n.Name, Proc: procName, Kind: "send", Detail: ev.Msg.String() + " -> " + ev.Target})

		case EventTimerFired:
			if oldID, had := entry.PendingTimers[ev.Timer]; had {
				s.pending.Remove(oldID)
			}
			newID := s.pending.Push(ev)
			entry.PendingTimers[ev.Timer] = newID
			if s.metrics != nil {
				s.metrics.TimersScheduled.Inc()
			}
			s.trace.Record(TraceEntry{Time: s.now, Node: n.Name, Proc: procName, Kind: "set-timer", Detail: ev.Timer})

		case EventTimerCancelled:
			if oldID, had := entry.PendingTimers[ev.Timer]; had {
				s.pending.Remove(oldID)
				entry.RecordTimerCleared(ev.Timer)
			}
			s.trace.Record(TraceEntry{Time: s.now, Node: n.Name, Proc: procName, Kind: "cancel-timer", Detail: ev.Timer})
		}
	}
}

package anysim

import (
	"container/heap"
	"time"
)

// EventKind tags the union of events the engine schedules.
// MessageReceived and TimerFired are the kinds the engine pushes into
// the pending set; a produced TimerCancelled is applied at once by
// System.realize or mc.State.applyProduced (it retires the matching
// pending TimerFired) and is not pushed itself, though the resolver
// handles one if it is. MessageDropped/Duplicated/Corrupted are MC-only refinements
// produced as the outcome of branching on a pending MessageReceived
// (see pkg/anysim/mc), never pending themselves.
type EventKind int

const (
	EventMessageReceived EventKind = iota
	EventTimerFired
	EventTimerCancelled
	EventMessageDropped
	EventMessageDuplicated
	EventMessageCorrupted
)

func (k EventKind) String() string {
	switch k {
	case EventMessageReceived:
		return "MessageReceived"
	case EventTimerFired:
		return "TimerFired"
	case EventTimerCancelled:
		return "TimerCancelled"
	case EventMessageDropped:
		return "MessageDropped"
	case EventMessageDuplicated:
		return "MessageDuplicated"
	case EventMessageCorrupted:
		return "MessageCorrupted"
	default:
		return "Unknown"
	}
}

// DeliveryOptionsKind selects how a pending delivery may be resolved
// when the model checker enumerates its successors (spec §4.4).
type DeliveryOptionsKind int

const (
	// OptionsAny allows the full set of outcomes: deliver, drop,
	// duplicate, corrupt.
	OptionsAny DeliveryOptionsKind = iota
	// OptionsNoFailures pins the delay and disables drop/dup/corrupt,
	// collapsing the branch point to a single deterministic delivery.
	OptionsNoFailures
)

// DeliveryOptions attaches to a pending MessageReceived event and
// restricts how the model checker may branch on it.
type DeliveryOptions struct {
	Kind  DeliveryOptionsKind
	Delay time.Duration
}

// NoFailures builds delivery options that pin the given delay and
// disable all stochastic outcomes.
func NoFailures(delay time.Duration) DeliveryOptions {
	return DeliveryOptions{Kind: OptionsNoFailures, Delay: delay}
}

// Event is a single pending occurrence: a message delivery, a timer
// fire, or a timer cancellation. ID is a strictly increasing insertion
// identity used to break (time) ties deterministically and to give
// dependency constraints something stable to reference.
type Event struct {
	ID       uint64
	Kind     EventKind
	Time     time.Time
	Target   string // "node.proc" address the event is delivered to
	Msg      Message
	Src      string // source address, for MessageReceived
	Timer    string // timer name, for TimerFired/TimerCancelled
	Options  DeliveryOptions
	OriginID uint64 // non-zero for a duplicate's follow-up, referencing the original delivery's ID
}

// eventHeap is the container/heap backing store, ordered by
// (Time, ID) — the same tie-break rule spec §4.5 requires of the
// simulator's priority queue. The choice of container/heap over a
// hand-rolled structure follows the timer-heap idiom used by
// joeycumines-go-utilpkg/eventloop's timerHeap for the same job.
type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Time.Equal(h[j].Time) {
		return h[i].ID < h[j].ID
	}
	return h[i].Time.Before(h[j].Time)
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(Event))
}
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// PendingEventSet is the ordered set of still-unexecuted events with a
// stable identity (spec §4.6). It backs both the simulator's strict
// time-ordered queue and the model checker's dependency-aware
// enumeration over the same underlying events.
type PendingEventSet struct {
	heap   eventHeap
	nextID uint64
}

// NewPendingEventSet returns an empty set.
func NewPendingEventSet() *PendingEventSet {
	s := &PendingEventSet{}
	heap.Init(&s.heap)
	return s
}

// Push inserts an event, stamping it with the next monotonic insertion
// id, and returns that id.
func (s *PendingEventSet) Push(e Event) uint64 {
	s.nextID++
	e.ID = s.nextID
	heap.Push(&s.heap, e)
	return e.ID
}

// PopMin removes and returns the minimum (Time, ID) event — the
// degenerate "available" rule simulation mode uses (spec §4.6).
func (s *PendingEventSet) PopMin() (Event, bool) {
	if s.heap.Len() == 0 {
		return Event{}, false
	}
	return heap.Pop(&s.heap).(Event), true
}

// Peek returns the minimum event without removing it.
func (s *PendingEventSet) Peek() (Event, bool) {
	if s.heap.Len() == 0 {
		return Event{}, false
	}
	return s.heap[0], true
}

// Len reports how many events are pending.
func (s *PendingEventSet) Len() int { return s.heap.Len() }

// Remove drops the event with the given id, if present, used to retire
// a timer's pending fire when it is cancelled or overridden.
func (s *PendingEventSet) Remove(id uint64) bool {
	for i, e := range s.heap {
		if e.ID == id {
			heap.Remove(&s.heap, i)
			return true
		}
	}
	return false
}

// Find returns the event with the given id, if present.
func (s *PendingEventSet) Find(id uint64) (Event, bool) {
	for _, e := range s.heap {
		if e.ID == id {
			return e, true
		}
	}
	return Event{}, false
}

// All returns a copy of every pending event, in no particular order
// beyond what the underlying heap array happens to hold. Used by the
// model checker's dependency resolver, which must inspect the whole
// set to compute the legal next choices.
func (s *PendingEventSet) All() []Event {
	out := make([]Event, len(s.heap))
	copy(out, s.heap)
	return out
}

// Clone returns a deep-enough copy of the set: Event is a plain value
// type, so copying the backing slice is sufficient (spec §5,
// "branching always clones").
func (s *PendingEventSet) Clone() *PendingEventSet {
	cp := &PendingEventSet{
		heap:   make(eventHeap, len(s.heap)),
		nextID: s.nextID,
	}
	copy(cp.heap, s.heap)
	return cp
}

// Hash folds every pending event into a single order-independent hash,
// since the pending set participates in state equality as a multiset
// (spec §3, "the multiset of pending events").
func (s *PendingEventSet) Hash() uint64 {
	var acc uint64
	for _, e := range s.heap {
		h := fnvOffset
		h = mixHash(h, uint64(e.Kind))
		h = mixHash(h, uint64(e.Time.UnixNano()))
		h = mixHash(h, e.Msg.Hash())
		h = mixHash(h, e.Options.hash())
		h = fnvMix(h, e.Target)
		h = fnvMix(h, e.Src)
		h = fnvMix(h, e.Timer)
		// XOR into the accumulator so the fold is order-independent,
		// matching the multiset (not sequence) equality spec §3 requires.
		acc ^= h
	}
	return acc
}

func (o DeliveryOptions) hash() uint64 {
	h := fnvOffset
	h = mixHash(h, uint64(o.Kind))
	h = mixHash(h, uint64(o.Delay))
	return h
}

// Equal compares two pending sets as multisets of events (ignoring
// insertion order, matching Hash's order-independence). nextID is
// excluded deliberately: two states reached via different numbers of
// already-executed events can still be the same state (spec §3).
func (s *PendingEventSet) Equal(other *PendingEventSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	remaining := other.All()
	for _, e := range s.heap {
		found := -1
		for i, o := range remaining {
			if eventsEqual(e, o) {
				found = i
				break
			}
		}
		if found == -1 {
			return false
		}
		remaining = append(remaining[:found], remaining[found+1:]...)
	}
	return true
}

func eventsEqual(a, b Event) bool {
	return a.Kind == b.Kind &&
		a.Time.Equal(b.Time) &&
		a.Target == b.Target &&
		a.Src == b.Src &&
		a.Timer == b.Timer &&
		a.Msg.Equal(b.Msg) &&
		a.Options == b.Options
}

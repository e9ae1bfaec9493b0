package mc

import (
	"sort"
	"time"

	"github.com/anysim-project/anysim/pkg/anysim"
)

// State is the hashable/equatable snapshot of the entire checked
// system: every node's snapshot, the network's link configuration, the
// pending-events multiset, and the logical time (spec §3, "System
// state snapshot"). Unlike anysim.System, a State owns independent
// *anysim.Node instances so that branching — which always clones —
// never lets two siblings share mutable process state.
type State struct {
	order   []string
	nodes   map[string]*Node
	network *Network
	pending *anysim.PendingEventSet
	time    time.Time
	trace   *anysim.TraceHandler
}

// NewRootState builds the initial MC state from a set of already
// constructed, already-started anysim.Nodes and a configured network.
// now is the logical time of the root (almost always the zero time).
func NewRootState(nodes map[string]*anysim.Node, network *anysim.Network, pending *anysim.PendingEventSet, now time.Time) *State {
	order := sortedNodeNames(nodes)
	wrapped := make(map[string]*Node, len(nodes))
	for name, n := range nodes {
		wrapped[name] = WrapNode(n)
	}
	return &State{
		order:   order,
		nodes:   wrapped,
		network: WrapNetwork(network),
		pending: pending,
		time:    now,
		trace:   anysim.NewTraceHandler(),
	}
}

func sortedNodeNames(nodes map[string]*anysim.Node) []string {
	out := make([]string, 0, len(nodes))
	for name := range nodes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Node returns the node snapshot-capable wrapper bound under name.
func (s *State) Node(name string) (*Node, bool) {
	n, ok := s.nodes[name]
	return n, ok
}

// Network returns the state's network wrapper.
func (s *State) Network() *Network { return s.network }

// Pending returns the state's pending-event set.
func (s *State) Pending() *anysim.PendingEventSet { return s.pending }

// Time returns the state's logical time.
func (s *State) Time() time.Time { return s.time }

// Trace returns the user-visible trace accumulated along the path from
// the root to this state (spec §4.8). It is scoped to this branch:
// Clone forks it, so siblings never see each other's entries.
func (s *State) Trace() *anysim.TraceHandler { return s.trace }

// Snapshot captures a pure, comparable value for every node, keyed by
// node name — the "per-node McNodeState" spec §3 describes.
func (s *State) Snapshot() map[string]NodeSnapshot {
	out := make(map[string]NodeSnapshot, len(s.nodes))
	for name, n := range s.nodes {
		out[name] = n.Snapshot()
	}
	return out
}

// Clone deep-clones every node (via CloneForExploration), the network,
// and the pending set, producing an independent State that can be
// mutated by applying one event without affecting s (spec §5, "branching
// always clones").
func (s *State) Clone() *State {
	nodes := make(map[string]*Node, len(s.nodes))
	for name, n := range s.nodes {
		nodes[name] = WrapNode(n.Node.CloneForExploration())
	}
	return &State{
		order:   append([]string(nil), s.order...),
		nodes:   nodes,
		network: WrapNetwork(s.network.Clone()),
		pending: s.pending.Clone(),
		time:    s.time,
		trace:   s.trace.Fork(),
	}
}

// Hash folds the node snapshots, network link table, pending-event
// multiset, and logical time into one deterministic hash. Event logs
// and message counters are excluded, matching spec §3's definition of
// what participates in state equality.
func (s *State) Hash() uint64 {
	h := uint64(14695981039346656037)
	for _, name := range s.order {
		snap := s.nodes[name].Snapshot()
		h = mixString(h, name)
		h = mix(h, snap.hash())
	}
	h = mix(h, s.network.hash())
	h = mix(h, s.pending.Hash())
	h = mix(h, uint64(s.time.UnixNano()))
	return h
}

// Equal compares two states field by field, per spec §3's definition:
// process snapshots, crash flags, local outboxes, network
// connectivity, and the pending-event multiset, plus logical time.
func (s *State) Equal(other *State) bool {
	if !s.time.Equal(other.time) {
		return false
	}
	if len(s.order) != len(other.order) {
		return false
	}
	for _, name := range s.order {
		a, ok := s.nodes[name]
		if !ok {
			return false
		}
		b, ok := other.nodes[name]
		if !ok {
			return false
		}
		if !a.Snapshot().equal(b.Snapshot()) {
			return false
		}
	}
	if !s.network.equal(other.network) {
		return false
	}
	return s.pending.Equal(other.pending)
}

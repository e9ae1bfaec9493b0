// Package mc implements the model checker: state-snapshot-capable
// node/network variants, the pending-events dependency resolver, the
// DFS/BFS search strategies, and the ModelChecker glue that ties them
// to a root anysim.System (spec §4.6-§4.7, §4.9).
package mc

import (
	"sort"

	"github.com/anysim-project/anysim/pkg/anysim"
)

// ProcSnapshot is the hashable/equatable image of a single process's
// externally observable state: its ProcessState payload plus its
// local outbox contents (spec §3, state snapshot fields).
type ProcSnapshot struct {
	State       anysim.ProcessState
	LocalOutbox []anysim.Message
}

func (p ProcSnapshot) hash() uint64 {
	h := uint64(14695981039346656037)
	if p.State != nil {
		h = mix(h, p.State.Hash())
	}
	for _, m := range p.LocalOutbox {
		h = mix(h, m.Hash())
	}
	return h
}

func (p ProcSnapshot) equal(other ProcSnapshot) bool {
	if (p.State == nil) != (other.State == nil) {
		return false
	}
	if p.State != nil && !p.State.Equal(other.State) {
		return false
	}
	if len(p.LocalOutbox) != len(other.LocalOutbox) {
		return false
	}
	for i := range p.LocalOutbox {
		if !p.LocalOutbox[i].Equal(other.LocalOutbox[i]) {
			return false
		}
	}
	return true
}

// NodeSnapshot is the hashable/equatable image of a whole node: its
// crash flag and every bound process's snapshot, keyed by process
// name. Fields are walked in sorted key order wherever they affect a
// hash or an equality check, per the "sorted-map" design note (spec §9).
type NodeSnapshot struct {
	Name    string
	Crashed bool
	Procs   map[string]ProcSnapshot
}

func (n NodeSnapshot) hash() uint64 {
	h := uint64(14695981039346656037)
	h = mixString(h, n.Name)
	if n.Crashed {
		h = mix(h, 1)
	}
	for _, name := range sortedKeys(n.Procs) {
		h = mixString(h, name)
		h = mix(h, n.Procs[name].hash())
	}
	return h
}

func (n NodeSnapshot) equal(other NodeSnapshot) bool {
	if n.Name != other.Name || n.Crashed != other.Crashed {
		return false
	}
	if len(n.Procs) != len(other.Procs) {
		return false
	}
	for name, p := range n.Procs {
		op, ok := other.Procs[name]
		if !ok || !p.equal(op) {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func mix(h uint64, v uint64) uint64 {
	h ^= v
	h *= 1099511628211
	return h
}

func mixString(h uint64, s string) uint64 {
	h ^= uint64(len(s))
	h *= 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

// Node is the state-snapshot-capable variant of anysim.Node used by
// the model checker (spec §4.6, "MC Node"). It delegates all dispatch
// behavior to the embedded Node and adds Snapshot/Restore.
type Node struct {
	*anysim.Node
}

// WrapNode adapts an already-built anysim.Node for model checking.
func WrapNode(n *anysim.Node) *Node {
	return &Node{Node: n}
}

// Snapshot captures every bound process's externally observable state
// and local outbox, plus the node's crash flag.
func (n *Node) Snapshot() NodeSnapshot {
	procs := make(map[string]ProcSnapshot, len(n.ProcessNames()))
	for _, name := range n.ProcessNames() {
		entry, _ := n.Entry(name)
		outbox := make([]anysim.Message, len(entry.LocalOutbox))
		copy(outbox, entry.LocalOutbox)
		procs[name] = ProcSnapshot{
			State:       entry.Process.State(),
			LocalOutbox: outbox,
		}
	}
	return NodeSnapshot{Name: n.Name, Crashed: n.Crashed, Procs: procs}
}

// Restore resets the node to match a previously captured snapshot.
// Process identity is preserved (SetState is used, not reconstruction)
// unless the snapshot's crash flag requires a crashed node, in which
// case the node's existing Crash bookkeeping is reused.
func (n *Node) Restore(snap NodeSnapshot) {
	n.Crashed = snap.Crashed
	for name, ps := range snap.Procs {
		entry, ok := n.Entry(name)
		if !ok {
			continue
		}
		entry.Process.SetState(ps.State)
		entry.LocalOutbox = append([]anysim.Message(nil), ps.LocalOutbox...)
	}
}

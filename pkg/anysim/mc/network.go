package mc

import (
	"sort"

	"github.com/anysim-project/anysim/pkg/anysim"
)

// Network is the state-snapshot-capable, non-sampling variant of
// anysim.Network the model checker uses (spec §4.6, "MC Network").
// Where the simulator's Network.Send draws from an RNG to pick one
// outcome, Network.Branches enumerates every outcome the current link
// configuration allows as a distinct successor (spec §4.4, MC mode).
type Network struct {
	*anysim.Network
}

// WrapNetwork adapts an already-configured anysim.Network for model
// checking.
func WrapNetwork(nw *anysim.Network) *Network {
	return &Network{Network: nw}
}

// Branch is one legal outcome of resolving a pending MessageReceived
// event: delivery (possibly corrupted or duplicated) or an outright
// drop. Events holds the concrete events this outcome enqueues into
// the successor state (empty for a drop).
type Branch struct {
	Outcome anysim.EventKind
	Events  []anysim.Event
}

// Branches enumerates the successor events a pending delivery from
// pending.Src to pending.Target may resolve into, respecting
// pending.Options (spec §4.4: "NoFailures(delay) disables drop/dup/
// corrupt and pins the delay"). Disconnected links admit only the
// forced drop outcome. Every other failure mode is included only if
// the corresponding rate is nonzero — a zero rate means that failure
// is not part of this model, not merely improbable, so it contributes
// no branch (keeping the explored state space no larger than the
// scenario's own configuration requires). expandAll forces every
// failure mode to be considered even where Options requests
// NoFailures, matching ExecutionMode Debug (spec §4.7: "in Debug, all
// delivery options are expanded").
func (nw *Network) Branches(pending anysim.Event, expandAll bool) []Branch {
	link := nw.LinkConfigFor(anysim.NodeOf(pending.Src), anysim.NodeOf(pending.Target))
	if !link.Connected {
		return []Branch{{Outcome: anysim.EventMessageDropped}}
	}

	if pending.Options.Kind == anysim.OptionsNoFailures && !expandAll {
		delivered := pending
		delivered.Kind = anysim.EventMessageReceived
		delivered.Time = pending.Time.Add(pending.Options.Delay)
		return []Branch{{Outcome: anysim.EventMessageReceived, Events: []anysim.Event{delivered}}}
	}

	delay := link.DelayMin
	normal := pending
	normal.Kind = anysim.EventMessageReceived
	normal.Time = pending.Time.Add(delay)

	branches := []Branch{{Outcome: anysim.EventMessageReceived, Events: []anysim.Event{normal}}}

	if link.DropRate > 0 {
		branches = append(branches, Branch{Outcome: anysim.EventMessageDropped})
	}
	if link.DupRate > 0 {
		dup := normal
		dup.OriginID = pending.ID
		branches = append(branches, Branch{Outcome: anysim.EventMessageDuplicated, Events: []anysim.Event{normal, dup}})
	}
	if link.CorruptRate > 0 {
		corrupted := normal
		corrupted.Msg.Data = ""
		branches = append(branches, Branch{Outcome: anysim.EventMessageCorrupted, Events: []anysim.Event{corrupted}})
	}
	return branches
}

// hash folds the network's explicitly configured links into a
// deterministic hash, walked in sorted (src, dst) order so the result
// does not depend on map iteration order.
func (nw *Network) hash() uint64 {
	links := nw.ConfiguredLinks()
	keys := make([][2]string, 0, len(links))
	for k := range links {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	h := uint64(14695981039346656037)
	for _, k := range keys {
		l := links[k]
		h = mixString(h, k[0]+">"+k[1])
		h = mix(h, boolHash(l.Connected))
		h = mix(h, uint64(l.DelayMin))
		h = mix(h, uint64(l.DelayMax))
		h = mix(h, floatHash(l.DropRate))
		h = mix(h, floatHash(l.DupRate))
		h = mix(h, floatHash(l.CorruptRate))
	}
	return h
}

func (nw *Network) equal(other *Network) bool {
	a, b := nw.ConfiguredLinks(), other.ConfiguredLinks()
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		ov, ok := b[k]
		if !ok || v != ov {
			return false
		}
	}
	return true
}

func boolHash(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func floatHash(f float64) uint64 {
	return uint64(f * 1e9)
}

package anysim

import (
	"math/rand"
	"time"
)

// LinkConfig holds the per-directed-pair configuration the network
// applies when a message crosses from one node to another (spec §3/§4.4).
type LinkConfig struct {
	Connected   bool
	DelayMin    time.Duration
	DelayMax    time.Duration
	DropRate    float64
	DupRate     float64
	CorruptRate float64
}

// defaultLinkConfig is applied to any directed pair nobody has
// configured explicitly: connected, zero delay, no failures.
func defaultLinkConfig() LinkConfig {
	return LinkConfig{Connected: true}
}

type linkKey struct {
	src, dst string
}

// Network models the directed links between nodes: connectivity,
// delay distribution, and drop/dup/corrupt probabilities (spec §4.4).
// In simulation mode it samples from a shared RNG in a fixed call
// order so traces replay byte-identically given the same seed.
type Network struct {
	links map[linkKey]LinkConfig
}

// NewNetwork returns a network where every pair defaults to connected,
// zero-delay, and failure-free.
func NewNetwork() *Network {
	return &Network{links: make(map[linkKey]LinkConfig)}
}

func (nw *Network) link(src, dst string) LinkConfig {
	if l, ok := nw.links[linkKey{src, dst}]; ok {
		return l
	}
	return defaultLinkConfig()
}

func (nw *Network) setLink(src, dst string, mutate func(*LinkConfig)) {
	l := nw.link(src, dst)
	mutate(&l)
	nw.links[linkKey{src, dst}] = l
}

// SetDelay configures the uniform delay distribution [min, max) for
// messages from src to dst (exactly min when max <= min).
func (nw *Network) SetDelay(src, dst string, min, max time.Duration) {
	nw.setLink(src, dst, func(l *LinkConfig) { l.DelayMin, l.DelayMax = min, max })
}

// SetDropRate configures the probability a message from src to dst is
// dropped in transit.
func (nw *Network) SetDropRate(src, dst string, rate float64) {
	nw.setLink(src, dst, func(l *LinkConfig) { l.DropRate = rate })
}

// SetDupRate configures the probability a message from src to dst is
// independently delivered a second time.
func (nw *Network) SetDupRate(src, dst string, rate float64) {
	nw.setLink(src, dst, func(l *LinkConfig) { l.DupRate = rate })
}

// SetCorruptRate configures the probability a message from src to dst
// arrives with its data corrupted.
func (nw *Network) SetCorruptRate(src, dst string, rate float64) {
	nw.setLink(src, dst, func(l *LinkConfig) { l.CorruptRate = rate })
}

// DisconnectNode severs every directed link to and from name, in both
// directions, modeling a node dropping off the network (used alongside
// CrashNode).
func (nw *Network) DisconnectNode(name string) {
	for key, l := range nw.links {
		if key.src == name || key.dst == name {
			l.Connected = false
			nw.links[key] = l
		}
	}
	nw.connectAllKnownPairsTouching(name, false)
}

// ReconnectNode restores every directed link to and from name to
// connected, used by RecoverNode.
func (nw *Network) ReconnectNode(name string) {
	for key, l := range nw.links {
		if key.src == name || key.dst == name {
			l.Connected = true
			nw.links[key] = l
		}
	}
}

// connectAllKnownPairsTouching ensures a connectivity entry exists for
// every pair touching name against every other node this network has
// ever seen, so a disconnect reaches pairs that were still at their
// (implicit, connected) default.
func (nw *Network) connectAllKnownPairsTouching(name string, connected bool) {
	nodes := map[string]struct{}{}
	for key := range nw.links {
		nodes[key.src] = struct{}{}
		nodes[key.dst] = struct{}{}
	}
	for other := range nodes {
		if other == name {
			continue
		}
		nw.setLink(name, other, func(l *LinkConfig) { l.Connected = connected })
		nw.setLink(other, name, func(l *LinkConfig) { l.Connected = connected })
	}
}

// MakePartition disconnects every directed pair between the two given
// node groups, in both directions, rendering them mutually unreachable
// (spec glossary, "Partition"). Links within each group are untouched.
func (nw *Network) MakePartition(groupA, groupB []string) {
	for _, a := range groupA {
		for _, b := range groupB {
			nw.setLink(a, b, func(l *LinkConfig) { l.Connected = false })
			nw.setLink(b, a, func(l *LinkConfig) { l.Connected = false })
		}
	}
}

// HealPartition restores connectivity between the two given node
// groups in both directions.
func (nw *Network) HealPartition(groupA, groupB []string) {
	for _, a := range groupA {
		for _, b := range groupB {
			nw.setLink(a, b, func(l *LinkConfig) { l.Connected = true })
			nw.setLink(b, a, func(l *LinkConfig) { l.Connected = true })
		}
	}
}

// LinkConfigFor exposes the effective configuration for a directed
// pair, used by the model checker to decide branch eligibility.
func (nw *Network) LinkConfigFor(src, dst string) LinkConfig {
	return nw.link(src, dst)
}

// ConfiguredLinks returns a copy of every directed pair that has been
// explicitly configured (via SetDelay/SetDropRate/.../MakePartition),
// keyed by [2]string{src, dst}. Pairs left at their implicit default
// are not included — callers that need the effective configuration for
// an arbitrary pair should use LinkConfigFor instead. This accessor
// exists so the model checker can fold the network's configuration
// into a state hash/equality check (spec §3, "network connectivity").
func (nw *Network) ConfiguredLinks() map[[2]string]LinkConfig {
	out := make(map[[2]string]LinkConfig, len(nw.links))
	for k, v := range nw.links {
		out[[2]string{k.src, k.dst}] = v
	}
	return out
}

// Clone returns an independent copy of the network's link table.
func (nw *Network) Clone() *Network {
	cp := &Network{links: make(map[linkKey]LinkConfig, len(nw.links))}
	for k, v := range nw.links {
		cp.links[k] = v
	}
	return cp
}

// Send realizes one message send from src to dst at time now, drawing
// from rng in the fixed order spec §4.4 specifies: connectivity (no
// draw), drop, delay, duplicate (+ independent delay), corrupt. It
// returns zero, one, or two MessageReceived events (respectively:
// dropped or disconnected; delivered once; delivered twice via
// duplication).
func (nw *Network) Send(msg Message, src, dst string, now time.Time, rng *rand.Rand) []Event {
	nodeSrc, nodeDst := nodeOf(src), nodeOf(dst)
	link := nw.link(nodeSrc, nodeDst)

	if !link.Connected {
		return nil
	}
	if link.DropRate > 0 && rng.Float64() < link.DropRate {
		return nil
	}

	delay := link.sampleDelay(rng)
	primary := Event{Kind: EventMessageReceived, Time: now.Add(delay), Target: dst, Msg: msg, Src: src}

	var out []Event
	duplicate := link.DupRate > 0 && rng.Float64() < link.DupRate
	var dupDelay time.Duration
	if duplicate {
		dupDelay = link.sampleDelay(rng)
	}

	corrupted := link.CorruptRate > 0 && rng.Float64() < link.CorruptRate
	if corrupted {
		primary.Msg = corrupt(primary.Msg)
	}

	out = append(out, primary)
	if duplicate {
		dup := Event{Kind: EventMessageReceived, Time: now.Add(dupDelay), Target: dst, Msg: primary.Msg, Src: src}
		out = append(out, dup)
	}
	return out
}

func (l LinkConfig) sampleDelay(rng *rand.Rand) time.Duration {
	if l.DelayMax <= l.DelayMin {
		return l.DelayMin
	}
	span := int64(l.DelayMax - l.DelayMin)
	return l.DelayMin + time.Duration(rng.Int63n(span))
}

// corrupt applies the engine's one documented corruption rule: the
// message's data is emptied. Spec §9 leaves the exact rule as an
// open question to be resolved and published by the implementer;
// emptying the string is the simplest deterministic choice that is
// still observably different from every valid payload.
func corrupt(msg Message) Message {
	msg.Data = ""
	return msg
}

// nodeOf extracts the node portion of a "node.proc" address.
func nodeOf(addr string) string {
	return NodeOf(addr)
}

// NodeOf extracts the node portion of a "node.proc" address.
func NodeOf(addr string) string {
	for i := 0; i < len(addr); i++ {
		if addr[i] == '.' {
			return addr[:i]
		}
	}
	return addr
}

// ProcOf extracts the process portion of a "node.proc" address.
func ProcOf(addr string) string {
	for i := 0; i < len(addr); i++ {
		if addr[i] == '.' {
			return addr[i+1:]
		}
	}
	return ""
}

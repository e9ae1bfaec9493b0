package mc

import (
	"math/rand"

	"github.com/anysim-project/anysim/pkg/anysim"
)

// Transition is one successor the model checker's strategy may take
// from a State: the pending event id it resolves, the concrete
// outcome kind, and the resulting cloned State (spec §4.7 step 3).
type Transition struct {
	EventID uint64
	Outcome anysim.EventKind
	State   *State
}

// Successors enumerates every legal next transition from s under mode,
// per spec §4.6/§4.7: the resolver narrows the pending set to the
// eligible ids, and each pending MessageReceived further branches into
// its non-sampling delivery outcomes while each pending TimerFired has
// exactly one successor. rng is threaded through to process callbacks
// only — it is not consulted to pick an outcome, since MC mode replaces
// RNG sampling with exhaustive branching (spec §5).
func (s *State) Successors(mode OrderingMode, execMode ExecutionMode, rng *rand.Rand) ([]Transition, error) {
	ids := Available(s.pending, mode)
	var out []Transition
	for _, id := range ids {
		ev, ok := s.pending.Find(id)
		if !ok {
			continue
		}
		switch ev.Kind {
		case anysim.EventMessageReceived:
			for _, branch := range s.network.Branches(ev, execMode == Debug) {
				t, err := s.applyMessageBranch(id, branch, rng)
				if err != nil {
					return nil, err
				}
				out = append(out, t)
			}
		case anysim.EventTimerFired:
			t, err := s.applyTimerFired(id, ev, rng)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
	}
	return out, nil
}

// applyMessageBranch clones s, retires the abstract pending delivery
// id, and realizes one concrete outcome: a drop removes it with no
// further effect; a duplicate dispatches the first copy now and
// re-enqueues the second as a fresh pending delivery, by which point
// the original id has already been removed from pending above; deliver
// and corrupt each dispatch their single concrete event.
func (s *State) applyMessageBranch(id uint64, branch Branch, rng *rand.Rand) (Transition, error) {
	next := s.Clone()
	next.pending.Remove(id)

	switch branch.Outcome {
	case anysim.EventMessageDropped:
		return Transition{EventID: id, Outcome: branch.Outcome, State: next}, nil
	case anysim.EventMessageDuplicated:
		if err := next.dispatchDelivery(branch.Events[0], rng); err != nil {
			return Transition{}, err
		}
		next.pending.Push(branch.Events[1])
		return Transition{EventID: id, Outcome: branch.Outcome, State: next}, nil
	default: // EventMessageReceived (deliver) or EventMessageCorrupted
		if err := next.dispatchDelivery(branch.Events[0], rng); err != nil {
			return Transition{}, err
		}
		return Transition{EventID: id, Outcome: branch.Outcome, State: next}, nil
	}
}

// applyTimerFired clones s, retires the firing timer's pending id and
// bookkeeping, advances logical time to the event, and dispatches the
// timer callback.
func (s *State) applyTimerFired(id uint64, ev anysim.Event, rng *rand.Rand) (Transition, error) {
	next := s.Clone()
	next.pending.Remove(id)

	nodeName := anysim.NodeOf(ev.Target)
	procName := anysim.ProcOf(ev.Target)
	n, ok := next.nodes[nodeName]
	if !ok || n.Crashed {
		return Transition{EventID: id, Outcome: ev.Kind, State: next}, nil
	}
	entry, ok := n.Entry(procName)
	if !ok {
		return Transition{EventID: id, Outcome: ev.Kind, State: next}, nil
	}
	entry.RecordTimerCleared(ev.Timer)
	if ev.Time.After(next.time) {
		next.time = ev.Time
	}

	produced, err := n.Dispatch(procName, anysim.Trigger{Kind: anysim.TriggerTimer, Name: ev.Timer}, next.time.Add(n.ClockSkew), rng)
	if err != nil {
		return Transition{}, err
	}
	next.applyProduced(n.Node, procName, produced)
	return Transition{EventID: id, Outcome: ev.Kind, State: next}, nil
}

// dispatchDelivery advances logical time to ev and runs the target
// process's OnMessage callback, folding its produced actions back into
// the pending set. A crashed target or unbound process silently drops
// the delivery, matching the simulator's own crash semantics.
func (s *State) dispatchDelivery(ev anysim.Event, rng *rand.Rand) error {
	nodeName := anysim.NodeOf(ev.Target)
	procName := anysim.ProcOf(ev.Target)
	n, ok := s.nodes[nodeName]
	if !ok || n.Crashed {
		return nil
	}
	entry, ok := n.Entry(procName)
	if !ok {
		return nil
	}
	if ev.Time.After(s.time) {
		s.time = ev.Time
	}

	produced, err := n.Dispatch(procName, anysim.Trigger{Kind: anysim.TriggerMessage, Msg: ev.Msg, From: ev.Src}, s.time.Add(n.ClockSkew), rng)
	if err != nil {
		return err
	}
	entry.RecordMessageReceived()
	s.applyProduced(n.Node, procName, produced)
	return nil
}

// applyProduced folds the actions a dispatch produced into the state's
// pending set, mirroring anysim.System.realize but without the
// network's stochastic resolution: a produced MessageReceived event is
// pushed as a fresh abstract pending delivery, to be branched when the
// resolver later selects it; a produced TimerFired retires any stale
// pending fire under the same name before pushing the new one; a
// produced TimerCancelled retires the pending fire immediately.
func (s *State) applyProduced(n *anysim.Node, procName string, produced []anysim.Event) {
	entry, ok := n.Entry(procName)
	if !ok {
		return
	}
	for _, ev := range produced {
		switch ev.Kind {
		case anysim.EventMessageReceived:
			s.pending.Push(ev)
			s.trace.Record(anysim.TraceEntry{Time: ev.Time, Node: n.Name, Proc: procName, Kind: "send", Detail: ev.Msg.String() + " -> " + ev.Target})
		case anysim.EventTimerFired:
			if oldID, had := entry.PendingTimers[ev.Timer]; had {
				s.pending.Remove(oldID)
			}
			newID := s.pending.Push(ev)
			entry.PendingTimers[ev.Timer] = newID
			s.trace.Record(anysim.TraceEntry{Time: s.time, Node: n.Name, Proc: procName, Kind: "set-timer", Detail: ev.Timer})
		case anysim.EventTimerCancelled:
			if oldID, had := entry.PendingTimers[ev.Timer]; had {
				s.pending.Remove(oldID)
				entry.RecordTimerCleared(ev.Timer)
			}
			s.trace.Record(anysim.TraceEntry{Time: s.time, Node: n.Name, Proc: procName, Kind: "cancel-timer", Detail: ev.Timer})
		}
	}
}

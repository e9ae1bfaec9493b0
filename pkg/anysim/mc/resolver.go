package mc

import (
	"time"

	"github.com/anysim-project/anysim/pkg/anysim"
)

// OrderingMode selects which pending events the resolver considers
// eligible to fire next (spec §4.6).
type OrderingMode int

const (
	// Normal allows any pending event for any node to be chosen,
	// producing the largest explorable state space.
	Normal OrderingMode = iota
	// MessagesFirst restricts the choice to pending MessageReceived
	// events whenever at least one is pending; only once none remain
	// do timers become eligible.
	MessagesFirst
	// StrictTime restricts the choice to events whose scheduled time
	// equals the minimum pending time.
	StrictTime
)

// Available lists the ids of pending events eligible to fire next under
// mode, after applying the mode's filter and the resolver's
// happens-before constraints (spec §4.6): a timer fire cannot be chosen
// while an earlier-inserted TimerCancelled for the same target+timer is
// still pending, and a duplicate delivery cannot precede its original.
func Available(pending *anysim.PendingEventSet, mode OrderingMode) []uint64 {
	all := pending.All()
	candidates := filterByMode(all, mode)

	out := make([]uint64, 0, len(candidates))
	for _, e := range candidates {
		if !respectsHappensBefore(e, all) {
			continue
		}
		out = append(out, e.ID)
	}
	return out
}

func filterByMode(all []anysim.Event, mode OrderingMode) []anysim.Event {
	switch mode {
	case MessagesFirst:
		var messages []anysim.Event
		for _, e := range all {
			if e.Kind == anysim.EventMessageReceived {
				messages = append(messages, e)
			}
		}
		if len(messages) > 0 {
			return messages
		}
		return all
	case StrictTime:
		min, ok := minTime(all)
		if !ok {
			return nil
		}
		var atMin []anysim.Event
		for _, e := range all {
			if e.Time.Equal(min) {
				atMin = append(atMin, e)
			}
		}
		return atMin
	default: // Normal
		return all
	}
}

func minTime(all []anysim.Event) (time.Time, bool) {
	if len(all) == 0 {
		return time.Time{}, false
	}
	min := all[0].Time
	for _, e := range all[1:] {
		if e.Time.Before(min) {
			min = e.Time
		}
	}
	return min, true
}

// respectsHappensBefore applies the two ordering constraints spec §4.6
// names explicitly: a timer fire is blocked by an earlier-inserted
// pending cancellation of the same (target, timer); a duplicate
// delivery is blocked while its original delivery is still pending.
func respectsHappensBefore(candidate anysim.Event, all []anysim.Event) bool {
	if candidate.Kind == anysim.EventTimerFired {
		for _, other := range all {
			if other.Kind == anysim.EventTimerCancelled &&
				other.Target == candidate.Target &&
				other.Timer == candidate.Timer &&
				other.ID < candidate.ID {
				return false
			}
		}
	}
	if candidate.OriginID != 0 {
		for _, other := range all {
			if other.ID == candidate.OriginID {
				return false
			}
		}
	}
	return true
}

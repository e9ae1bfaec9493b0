package mc

import (
	"math/rand"

	"github.com/anysim-project/anysim/pkg/anysim"
)

// ExecutionMode controls whether NoFailures optimizations shrink the
// explored branch set (spec §4.7).
type ExecutionMode int

const (
	// Default honors NoFailures options, collapsing a pinned delivery
	// to a single branch.
	Default ExecutionMode = iota
	// Debug expands every delivery option regardless of NoFailures.
	Debug
)

// PruneReason explains why a branch was abandoned rather than failed.
type PruneReason string

// GoalReached explains why a branch counts as successful.
type GoalReached string

// StrategyConfig carries the user-supplied callbacks a search
// evaluates at every state, plus the knobs that shape how much of the
// state space gets explored (spec §4.7).
type StrategyConfig struct {
	Mode          OrderingMode
	ExecutionMode ExecutionMode

	// Prune reports a reason to abandon this branch without judging it
	// a failure, or ("", false) to continue.
	Prune func(*State) (PruneReason, bool)
	// Invariant returns a non-nil error if the state violates a
	// user-supplied property; any such error aborts the search.
	Invariant func(*State) error
	// Goal reports this branch successful, or ("", false) to continue
	// checking for further enabled transitions.
	Goal func(*State) (GoalReached, bool)
	// Collect is an optional capture predicate; every state for which
	// it returns true is appended to Result.Collected.
	Collect func(*State) bool
}

// PathStep is one entry of the event-sequence path leading from the
// root to a terminal state, used to reconstruct a counterexample (spec
// §4.7 step 5) or a successful run's trace.
type PathStep struct {
	EventID uint64
	Outcome anysim.EventKind
	Trace   []anysim.TraceEntry
}

// Status summarizes how a search concluded.
type Status int

const (
	// StatusGoalReached means every explored leaf reached a goal or was
	// pruned.
	StatusGoalReached Status = iota
	// StatusInvariantViolation means Invariant rejected some state.
	StatusInvariantViolation
	// StatusLivenessViolation means a branch terminated without goal,
	// prune, or further enabled events.
	StatusLivenessViolation
	// StatusCallbackError means a process callback returned an error
	// mid-exploration.
	StatusCallbackError
	// StatusPruned means a single branch was abandoned via Prune; it
	// never escapes explore as a top-level Result, but evaluate uses it
	// to distinguish a prune from an ordinary goal success.
	StatusPruned
)

// Result is what a Strategy run returns: the overall verdict, the
// offending path when applicable, the total states visited/deduped,
// and any collected states.
type Result struct {
	Status       Status
	Err          error
	Path         []PathStep
	StatesVisited     int
	StatesDeduplicated int
	PrunedBranches     int
	Collected    []*State
}

// Strategy explores the state space reachable from a root State,
// evaluating cfg's callbacks at every node (spec §4.7).
type Strategy interface {
	Run(root *State, cfg StrategyConfig, rng *rand.Rand) Result
}

// visitedSet deduplicates states by hash, resolving collisions with a
// full equality check (spec §4.7 step 4).
type visitedSet struct {
	buckets map[uint64][]*State
}

func newVisitedSet() *visitedSet {
	return &visitedSet{buckets: make(map[uint64][]*State)}
}

// seen reports whether an equal state has already been visited, and if
// not, records s as visited.
func (v *visitedSet) seen(s *State) bool {
	h := s.Hash()
	for _, existing := range v.buckets[h] {
		if existing.Equal(s) {
			return true
		}
	}
	v.buckets[h] = append(v.buckets[h], s)
	return false
}

// evaluate runs Invariant, Prune, and Goal in that order against a
// state, per spec §4.7 step 1. Invariant must run before Prune: a state
// that is both prune-eligible and invariant-violating is a genuine
// counterexample, not a branch to quietly drop. terminal is true once
// any of the three has produced a terminal verdict for this branch.
func evaluate(s *State, cfg StrategyConfig) (terminal bool, result Result) {
	if cfg.Invariant != nil {
		if err := cfg.Invariant(s); err != nil {
			return true, Result{
				Status: StatusInvariantViolation,
				Err: &anysim.ViolationError{
					Kind:   anysim.ViolationInvariant,
					Reason: err.Error(),
				},
			}
		}
	}
	if cfg.Prune != nil {
		if reason, pruned := cfg.Prune(s); pruned {
			_ = reason
			return true, Result{Status: StatusPruned}
		}
	}
	if cfg.Goal != nil {
		if _, reached := cfg.Goal(s); reached {
			return true, Result{Status: StatusGoalReached}
		}
	}
	return false, Result{}
}

package mc

import (
	"math/rand"
	"sort"
)

// DFSStrategy explores the state space depth-first, recursing over
// each state's successor list in deterministic event-id order (spec
// §4.7 step 3).
type DFSStrategy struct{}

// Run explores root to exhaustion or until an invariant/liveness
// violation or callback error aborts the search.
func (DFSStrategy) Run(root *State, cfg StrategyConfig, rng *rand.Rand) Result {
	d := &dfsRun{cfg: cfg, rng: rng, visited: newVisitedSet()}
	result := d.explore(root, nil)
	result.StatesVisited = d.visited.visitedCount()
	result.StatesDeduplicated = d.dedup
	result.PrunedBranches = d.pruned
	result.Collected = d.collected
	return result
}

type dfsRun struct {
	cfg       StrategyConfig
	rng       *rand.Rand
	visited   *visitedSet
	dedup     int
	pruned    int
	collected []*State
}

// explore is the recursive step: evaluate terminal callbacks, then
// either return their verdict or recurse into every enabled
// successor, stopping at the first one that reports a terminal
// failure (invariant violation, liveness violation, or callback
// error).
func (d *dfsRun) explore(s *State, path []PathStep) Result {
	if d.visited.seen(s) {
		d.dedup++
		return Result{Status: StatusGoalReached}
	}
	if d.cfg.Collect != nil && d.cfg.Collect(s) {
		d.collected = append(d.collected, s)
	}

	terminal, result := evaluate(s, d.cfg)
	if terminal {
		if result.Status == StatusPruned {
			d.pruned++
			return Result{Status: StatusGoalReached}
		}
		if result.Status == StatusInvariantViolation {
			result.Path = append([]PathStep(nil), path...)
		}
		return result
	}

	transitions, err := s.Successors(d.cfg.Mode, d.cfg.ExecutionMode, d.rng)
	if err != nil {
		return Result{Status: StatusCallbackError, Err: err, Path: append([]PathStep(nil), path...)}
	}
	if len(transitions) == 0 {
		// No goal, no prune, nothing left enabled: liveness violation.
		return Result{
			Status: StatusLivenessViolation,
			Path:   append([]PathStep(nil), path...),
		}
	}

	sort.Slice(transitions, func(i, j int) bool { return transitions[i].EventID < transitions[j].EventID })
	for _, t := range transitions {
		step := PathStep{EventID: t.EventID, Outcome: t.Outcome, Trace: t.State.Trace().Entries()}
		child := d.explore(t.State, append(path, step))
		if child.Status != StatusGoalReached {
			return child
		}
	}
	return Result{Status: StatusGoalReached}
}

func (v *visitedSet) visitedCount() int {
	n := 0
	for _, bucket := range v.buckets {
		n += len(bucket)
	}
	return n
}

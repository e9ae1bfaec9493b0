package mc

import (
	"math/rand"
	"sort"
)

// BFSStrategy explores the state space level-synchronously: every
// state at depth n is expanded before any state at depth n+1 (spec
// §4.7 step 3, "BFS uses a FIFO").
type BFSStrategy struct{}

// bfsFrame pairs a frontier state with the path that reached it, since
// BFS has no call stack to unwind on backtrack the way DFS does.
type bfsFrame struct {
	state *State
	path  []PathStep
}

// Run explores root level by level to exhaustion or until an
// invariant/liveness violation or callback error aborts the search.
func (BFSStrategy) Run(root *State, cfg StrategyConfig, rng *rand.Rand) Result {
	visited := newVisitedSet()
	var dedup, pruned int
	var collected []*State

	queue := []bfsFrame{{state: root}}

	for len(queue) > 0 {
		frame := queue[0]
		queue = queue[1:]

		if visited.seen(frame.state) {
			dedup++
			continue
		}
		if cfg.Collect != nil && cfg.Collect(frame.state) {
			collected = append(collected, frame.state)
		}

		terminal, result := evaluate(frame.state, cfg)
		if terminal {
			if result.Status == StatusPruned {
				pruned++
				continue
			}
			if result.Status == StatusGoalReached {
				// This branch succeeded; keep draining the rest of the
				// frontier instead of declaring the whole run done,
				// matching DFS's "every leaf reaches a goal" semantics.
				continue
			}
			result.Path = append([]PathStep(nil), frame.path...)
			result.StatesVisited = visited.visitedCount()
			result.StatesDeduplicated = dedup
			result.PrunedBranches = pruned
			result.Collected = collected
			return result
		}

		transitions, err := frame.state.Successors(cfg.Mode, cfg.ExecutionMode, rng)
		if err != nil {
			return Result{
				Status:             StatusCallbackError,
				Err:                err,
				Path:               append([]PathStep(nil), frame.path...),
				StatesVisited:      visited.visitedCount(),
				StatesDeduplicated: dedup,
				PrunedBranches:     pruned,
				Collected:          collected,
			}
		}
		if len(transitions) == 0 {
			return Result{
				Status:             StatusLivenessViolation,
				Path:               append([]PathStep(nil), frame.path...),
				StatesVisited:      visited.visitedCount(),
				StatesDeduplicated: dedup,
				PrunedBranches:     pruned,
				Collected:          collected,
			}
		}

		sort.Slice(transitions, func(i, j int) bool { return transitions[i].EventID < transitions[j].EventID })
		for _, t := range transitions {
			step := PathStep{EventID: t.EventID, Outcome: t.Outcome, Trace: t.State.Trace().Entries()}
			childPath := append(append([]PathStep(nil), frame.path...), step)
			queue = append(queue, bfsFrame{state: t.State, path: childPath})
		}
	}

	return Result{
		Status:             StatusGoalReached,
		StatesVisited:      visited.visitedCount(),
		StatesDeduplicated: dedup,
		PrunedBranches:     pruned,
		Collected:          collected,
	}
}

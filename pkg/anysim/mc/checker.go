// Package mc implements the model checker: state-snapshot-capable
// node/network variants, the pending-events dependency resolver, the
// DFS/BFS search strategies, and the ModelChecker glue that ties them
// to a root anysim.System (spec §4.6-§4.7, §4.9).
package mc

import (
	"github.com/anysim-project/anysim/pkg/anysim"
	"github.com/anysim-project/anysim/pkg/anysim/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// ModelChecker drives a Strategy over the state space reachable from a
// System's current configuration (spec §4.7).
type ModelChecker struct {
	sys      *anysim.System
	cfg      StrategyConfig
	strategy Strategy
	logger   anysim.Logger
	metrics  *metrics.Metrics
	runID    uuid.UUID
}

// NewModelChecker builds a checker bound to an already-configured
// System (nodes, processes, and network should be set up exactly as
// for simulation; AddProcess's OnStart dispatch already ran). strategy
// selects DFS or BFS exploration.
func NewModelChecker(sys *anysim.System, cfg StrategyConfig, strategy Strategy, logger anysim.Logger) *ModelChecker {
	if logger == nil {
		logger = anysim.NewDefaultLogger()
	}
	return &ModelChecker{sys: sys, cfg: cfg, strategy: strategy, logger: logger, runID: uuid.New()}
}

// WithMetrics attaches a metrics set registered against reg, returning
// the ModelChecker for chaining.
func (mcck *ModelChecker) WithMetrics(reg prometheus.Registerer, namespace string) *ModelChecker {
	mcck.metrics = metrics.New(reg, namespace)
	return mcck
}

// Run invokes stimulus on the bound System to enqueue the initial
// trigger (spec §6: "run(callback); callback receives a mutable system
// reference to enqueue the initial stimulus"), then snapshots the root
// State and explores it with the configured Strategy, reporting the
// aggregate Result and logging a rendered trace on failure (spec
// §7.2-§7.3, mirroring System.fail's simulation-mode behavior).
// stimulus may be nil if the bound System already has pending events
// (e.g. queued by a prior Run call being re-explored from a fresh
// checker).
func (mcck *ModelChecker) Run(stimulus func(*anysim.System)) Result {
	if stimulus != nil {
		stimulus(mcck.sys)
	}
	root := NewRootState(mcck.sys.Nodes(), mcck.sys.Network(), mcck.sys.PendingEvents(), mcck.sys.Now())
	result := mcck.strategy.Run(root, mcck.cfg, mcck.sys.Rand())

	if mcck.metrics != nil {
		mcck.metrics.StatesExplored.Add(float64(result.StatesVisited))
		mcck.metrics.StatesDeduplicated.Add(float64(result.StatesDeduplicated))
		mcck.metrics.PrunedBranches.Add(float64(result.PrunedBranches))
		if result.Status == StatusGoalReached {
			mcck.metrics.GoalsReached.Inc()
		}
		if result.Status == StatusInvariantViolation {
			mcck.metrics.InvariantViolations.Inc()
		}
	}

	switch result.Status {
	case StatusInvariantViolation, StatusLivenessViolation, StatusCallbackError:
		mcck.renderFailure(result)
	}
	return result
}

func (mcck *ModelChecker) renderFailure(result Result) {
	cause := result.Err
	if cause == nil {
		cause = &anysim.ViolationError{Kind: anysim.ViolationGoalUnreached, Reason: "no enabled transition, goal, or prune"}
	}
	mcck.logger.Errorf("model checker found a counterexample (run %s) of path length %d: %v", mcck.runID, len(result.Path), cause)
	for _, step := range result.Path {
		for _, e := range step.Trace {
			mcck.logger.Debugf("  [%s] %s/%s %s %s", e.Time, e.Node, e.Proc, e.Kind, e.Detail)
		}
	}
}

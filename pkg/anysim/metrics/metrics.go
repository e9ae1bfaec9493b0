// Package metrics exposes the engine's operational counters as
// Prometheus metrics, grounded on the teacher's own dependency on
// prometheus/common and the fuller client_golang stack carried by the
// cuemby-warren example in the retrieval pack.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups every counter/gauge the simulator and model checker
// report. It is registered against a caller-supplied registry rather
// than prometheus.DefaultRegisterer so multiple System/ModelChecker
// instances can coexist within one test binary without collisions —
// the teacher's own tests spin up many Unity instances per process
// (test/testing.go's UnityCluster), so per-instance registries mirror
// that multi-instance-per-process pattern.
type Metrics struct {
	EventsProcessed      prometheus.Counter
	MessagesSent         prometheus.Counter
	MessagesDropped      prometheus.Counter
	MessagesDuplicated   prometheus.Counter
	MessagesCorrupted    prometheus.Counter
	TimersScheduled      prometheus.Counter
	TimersFired          prometheus.Counter
	StatesExplored       prometheus.Counter
	StatesDeduplicated   prometheus.Counter
	InvariantViolations  prometheus.Counter
	PrunedBranches       prometheus.Counter
	GoalsReached         prometheus.Counter
	PendingEventSetSize  prometheus.Gauge
}

// New builds and registers a Metrics set against reg. reg must not be
// nil; pass prometheus.NewRegistry() for an isolated instance, or the
// application's existing registry to fold anysim's metrics into it.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "anysim",
			Name:      name,
			Help:      help,
		})
		reg.MustRegister(c)
		return c
	}
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "anysim",
			Name:      name,
			Help:      help,
		})
		reg.MustRegister(g)
		return g
	}

	return &Metrics{
		EventsProcessed:     counter("events_processed_total", "Events executed by the simulator or model checker."),
		MessagesSent:        counter("messages_sent_total", "Messages handed to the network for delivery."),
		MessagesDropped:     counter("messages_dropped_total", "Messages dropped in transit."),
		MessagesDuplicated:  counter("messages_duplicated_total", "Messages delivered a second time."),
		MessagesCorrupted:   counter("messages_corrupted_total", "Messages delivered with corrupted data."),
		TimersScheduled:     counter("timers_scheduled_total", "Timers scheduled via SetTimer/SetTimerOnce."),
		TimersFired:         counter("timers_fired_total", "Timers that fired."),
		StatesExplored:      counter("mc_states_explored_total", "Distinct states visited by the model checker."),
		StatesDeduplicated:  counter("mc_states_deduplicated_total", "States recognized as already-visited via the hash index."),
		InvariantViolations: counter("mc_invariant_violations_total", "Invariant violations found."),
		PrunedBranches:      counter("mc_pruned_branches_total", "Branches abandoned via a prune."),
		GoalsReached:        counter("mc_goals_reached_total", "Model-checking runs in which every explored branch reached a goal or was pruned."),
		PendingEventSetSize: gauge("pending_event_set_size", "Current number of pending events."),
	}
}

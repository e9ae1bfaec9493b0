package mc_test

import (
	"errors"
	"testing"

	"github.com/anysim-project/anysim/examples/pingpong/basic"
	"github.com/anysim-project/anysim/pkg/anysim"
	"github.com/anysim-project/anysim/pkg/anysim/mc"
	"github.com/stretchr/testify/require"
)

// buildPingPongChecker wires a lossless two-node ping-pong system and
// returns the bound ModelChecker, leaving the initial PING to be
// enqueued by the stimulus callback passed to Run, mirroring spec §8
// scenario 3's DFS exhaustive-exploration setup.
func buildPingPongChecker(t *testing.T, cfg mc.StrategyConfig, strategy mc.Strategy) *mc.ModelChecker {
	t.Helper()
	sys := anysim.NewSystem(1, nil)
	sys.AddNode("client")
	sys.AddNode("server")
	require.NoError(t, sys.AddProcess("server", "s", basic.NewServerFactory()))
	require.NoError(t, sys.AddProcess("client", "c", basic.NewClientFactory(anysim.Addr("server", "s"))))
	return mc.NewModelChecker(sys, cfg, strategy, nil)
}

// sendInitialPing is the stimulus every ping-pong checker test shares:
// enqueue the client's first local PING before exploration starts.
func sendInitialPing(sys *anysim.System) {
	_ = sys.SendLocalMessage("client", "c", anysim.Message{Tag: "PING", Data: "0"})
}

func TestDFSExhaustivePingPongReachesGoalOnEveryLeaf(t *testing.T) {
	gotPong := func(s *mc.State) (mc.GoalReached, bool) {
		n, ok := s.Node("client")
		if !ok {
			return "", false
		}
		snap := n.Snapshot()
		proc, ok := snap.Procs["c"]
		if !ok {
			return "", false
		}
		for _, m := range proc.LocalOutbox {
			if m.Tag == "PONG" {
				return "got-pong", true
			}
		}
		return "", false
	}

	cfg := mc.StrategyConfig{
		Mode: mc.Normal,
		Goal: gotPong,
		Prune: func(s *mc.State) (mc.PruneReason, bool) {
			if s.Pending().Len() > 8 {
				return "too-many-pending", true
			}
			return "", false
		},
	}

	checker := buildPingPongChecker(t, cfg, mc.DFSStrategy{})
	result := checker.Run(sendInitialPing)

	require.Equal(t, mc.StatusGoalReached, result.Status)
	require.Nil(t, result.Err)
}

func TestDFSInvariantViolationReportsAPath(t *testing.T) {
	sentinel := errors.New("saw a corrupted pong")
	cfg := mc.StrategyConfig{
		Mode: mc.Normal,
		Invariant: func(s *mc.State) error {
			n, ok := s.Node("client")
			if !ok {
				return nil
			}
			proc := n.Snapshot().Procs["c"]
			for _, m := range proc.LocalOutbox {
				if m.Tag == "PONG" && m.Data == "" {
					return sentinel
				}
			}
			return nil
		},
		Goal: func(s *mc.State) (mc.GoalReached, bool) {
			n, ok := s.Node("client")
			if !ok {
				return "", false
			}
			proc := n.Snapshot().Procs["c"]
			if len(proc.LocalOutbox) > 0 {
				return "got-pong", true
			}
			return "", false
		},
	}

	sys := anysim.NewSystem(1, nil)
	sys.AddNode("client")
	sys.AddNode("server")
	sys.Network().SetCorruptRate("server", "client", 1.0)
	require.NoError(t, sys.AddProcess("server", "s", basic.NewServerFactory()))
	require.NoError(t, sys.AddProcess("client", "c", basic.NewClientFactory(anysim.Addr("server", "s"))))

	checker := mc.NewModelChecker(sys, cfg, mc.DFSStrategy{}, nil)
	result := checker.Run(sendInitialPing)

	require.Equal(t, mc.StatusInvariantViolation, result.Status)
	require.ErrorContains(t, result.Err, sentinel.Error())
	require.NotEmpty(t, result.Path)
}

func TestBFSAgreesWithDFSOnGoalReachability(t *testing.T) {
	goal := func(s *mc.State) (mc.GoalReached, bool) {
		n, ok := s.Node("client")
		if !ok {
			return "", false
		}
		if len(n.Snapshot().Procs["c"].LocalOutbox) > 0 {
			return "got-pong", true
		}
		return "", false
	}
	cfg := mc.StrategyConfig{Mode: mc.Normal, Goal: goal}

	dfsResult := buildPingPongChecker(t, cfg, mc.DFSStrategy{}).Run(sendInitialPing)
	bfsResult := buildPingPongChecker(t, cfg, mc.BFSStrategy{}).Run(sendInitialPing)

	require.Equal(t, dfsResult.Status, bfsResult.Status)
}

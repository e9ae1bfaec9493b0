package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/anysim-project/anysim/examples/pingpong/basic"
	"github.com/anysim-project/anysim/examples/pingpong/retry"
	"github.com/anysim-project/anysim/pkg/anysim"
)

// scenarios maps a CLI-selectable name to the function that runs it
// against a loaded Config, returning a descriptive error on failure
// (spec §8, "Concrete scenarios").
var scenarios = map[string]func(cfg *anysim.Config) error{
	"ping-pong-lossless": scenarioPingPongLossless,
	"ping-pong-retry":    scenarioPingPongRetry,
	"partition-isolates": scenarioPartitionIsolates,
	"timer-override":     scenarioTimerOverride,
}

// scenarioPingPongLossless is spec §8 scenario 1: zero-delay,
// failure-free network; expects exactly one local PONG and no
// outstanding timers.
func scenarioPingPongLossless(cfg *anysim.Config) error {
	sys := anysim.NewSystem(cfg.Seed, nil)
	sys.AddNode("client")
	sys.AddNode("server")
	if err := sys.AddProcess("server", "server", basic.NewServerFactory()); err != nil {
		return err
	}
	if err := sys.AddProcess("client", "client", basic.NewClientFactory(anysim.Addr("server", "server"))); err != nil {
		return err
	}
	if err := sys.SendLocalMessage("client", "client", anysim.Message{Tag: "PING", Data: "0"}); err != nil {
		return err
	}
	if err := sys.StepUntilNoEvents(); err != nil {
		return err
	}
	msgs, err := sys.ReadLocalMessages("client", "client")
	if err != nil {
		return err
	}
	if len(msgs) != 1 || msgs[0].Tag != "PONG" || msgs[0].Data != "0" {
		return fmt.Errorf("expected exactly one PONG{0}, got %v", msgs)
	}
	return nil
}

// scenarioPingPongRetry is spec §8 scenario 2: with a 0.5 drop rate on
// the client-to-server link, it passes once a PONG reaches the client's
// local outbox within the step budget. It does not check how many
// retries were sent.
func scenarioPingPongRetry(cfg *anysim.Config) error {
	sys := anysim.NewSystem(cfg.Seed, nil)
	sys.AddNode("client")
	sys.AddNode("server")
	sys.Network().SetDropRate("client", "server", 0.5)
	if err := sys.AddProcess("server", "server", retry.NewServerFactory()); err != nil {
		return err
	}
	if err := sys.AddProcess("client", "client", retry.NewClientFactoryWithInterval(anysim.Addr("server", "server"), 3*time.Second)); err != nil {
		return err
	}
	if err := sys.SendLocalMessage("client", "client", anysim.Message{Tag: "PING", Data: "0"}); err != nil {
		return err
	}
	budget := 1000
	for i := 0; i < budget; i++ {
		more, err := sys.Step()
		if err != nil {
			return err
		}
		if !more {
			break
		}
		msgs, err := sys.ReadLocalMessages("client", "client")
		if err != nil {
			return err
		}
		if len(msgs) > 0 {
			return nil
		}
	}
	return errors.New("PONG never reached the client within the step budget")
}

// scenarioPartitionIsolates is spec §8 scenario 5: partitioning client
// and server before sending prevents any PONG from arriving, while the
// client's retry timer keeps firing up to the step budget.
func scenarioPartitionIsolates(cfg *anysim.Config) error {
	sys := anysim.NewSystem(cfg.Seed, nil)
	sys.AddNode("client")
	sys.AddNode("server")
	if err := sys.AddProcess("server", "server", retry.NewServerFactory()); err != nil {
		return err
	}
	if err := sys.AddProcess("client", "client", retry.NewClientFactoryWithInterval(anysim.Addr("server", "server"), 1*time.Second)); err != nil {
		return err
	}
	sys.Network().MakePartition([]string{"client"}, []string{"server"})
	if err := sys.SendLocalMessage("client", "client", anysim.Message{Tag: "PING", Data: "0"}); err != nil {
		return err
	}

	budget := 50
	for i := 0; i < budget; i++ {
		more, err := sys.Step()
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	msgs, err := sys.ReadLocalMessages("client", "client")
	if err != nil {
		return err
	}
	if len(msgs) != 0 {
		return fmt.Errorf("expected no PONG across a partition, got %v", msgs)
	}
	return nil
}

// scenarioTimerOverride is spec §8 scenario 6: a timer set to fire at
// 5 and immediately overridden to fire at 1 must fire exactly once, at
// 1, never at 5.
func scenarioTimerOverride(cfg *anysim.Config) error {
	sys := anysim.NewSystem(cfg.Seed, nil)
	sys.AddNode("n")
	fired := 0
	start := sys.Now()
	if err := sys.AddProcess("n", "p", func() anysim.Process {
		return &overrideProbe{onStartFire: func(ctx *anysim.Context) {
			ctx.SetTimer("t", 5*time.Second)
			ctx.SetTimer("t", 1*time.Second)
		}, record: func() { fired++ }}
	}); err != nil {
		return err
	}
	if err := sys.StepUntilNoEvents(); err != nil {
		return err
	}
	if fired != 1 {
		return fmt.Errorf("expected exactly one timer fire, got %d", fired)
	}
	if sys.Now().Sub(start) != 1*time.Second {
		return fmt.Errorf("expected the single fire at +1s, landed at +%s", sys.Now().Sub(start))
	}
	return nil
}

// overrideProbe is a minimal process used only to exercise the
// timer-override scenario: it schedules its override on start and
// calls record on every timer fire.
type overrideProbe struct {
	onStartFire func(ctx *anysim.Context)
	record      func()
}

func (p *overrideProbe) OnStart(ctx *anysim.Context) error {
	p.onStartFire(ctx)
	return nil
}
func (p *overrideProbe) OnMessage(msg anysim.Message, from string, ctx *anysim.Context) error {
	return nil
}
func (p *overrideProbe) OnLocalMessage(msg anysim.Message, ctx *anysim.Context) error { return nil }
func (p *overrideProbe) OnTimer(name string, ctx *anysim.Context) error {
	p.record()
	return nil
}
func (p *overrideProbe) State() anysim.ProcessState { return nil }
func (p *overrideProbe) SetState(state anysim.ProcessState) {}

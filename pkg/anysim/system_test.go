package anysim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// echoState is a trivial ProcessState used by the test fixtures below.
type echoState struct{}

func (echoState) Hash() uint64                      { return 0 }
func (echoState) Equal(other ProcessState) bool     { _, ok := other.(echoState); return ok }

type pingClient struct{ server string }

func (c *pingClient) OnStart(ctx *Context) error { return nil }
func (c *pingClient) OnMessage(msg Message, from string, ctx *Context) error {
	if msg.Tag == "PONG" {
		ctx.SendLocal(msg)
	}
	return nil
}
func (c *pingClient) OnLocalMessage(msg Message, ctx *Context) error {
	if msg.Tag == "PING" {
		ctx.Send(msg, c.server)
	}
	return nil
}
func (c *pingClient) OnTimer(name string, ctx *Context) error  { return nil }
func (c *pingClient) State() ProcessState                      { return echoState{} }
func (c *pingClient) SetState(state ProcessState)               {}

type pongServer struct{}

func (s *pongServer) OnStart(ctx *Context) error { return nil }
func (s *pongServer) OnMessage(msg Message, from string, ctx *Context) error {
	if msg.Tag == "PING" {
		ctx.Send(Message{Tag: "PONG", Data: msg.Data}, from)
	}
	return nil
}
func (s *pongServer) OnLocalMessage(msg Message, ctx *Context) error { return nil }
func (s *pongServer) OnTimer(name string, ctx *Context) error       { return nil }
func (s *pongServer) State() ProcessState                            { return echoState{} }
func (s *pongServer) SetState(state ProcessState)                    {}

func buildPingPongSystem(t *testing.T, seed int64) *System {
	t.Helper()
	sys := NewSystem(seed, nil)
	sys.AddNode("client")
	sys.AddNode("server")
	require.NoError(t, sys.AddProcess("server", "s", func() Process { return &pongServer{} }))
	require.NoError(t, sys.AddProcess("client", "c", func() Process {
		return &pingClient{server: Addr("server", "s")}
	}))
	return sys
}

func TestPingPongLosslessDeliversExactlyOnePong(t *testing.T) {
	sys := buildPingPongSystem(t, 1)
	require.NoError(t, sys.SendLocalMessage("client", "c", Message{Tag: "PING", Data: "0"}))
	require.NoError(t, sys.StepUntilNoEvents())

	msgs, err := sys.ReadLocalMessages("client", "c")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, Message{Tag: "PONG", Data: "0"}, msgs[0])
	require.Equal(t, 0, sys.PendingCount())
}

func TestSimulationIsDeterministicForFixedSeedAndScript(t *testing.T) {
	run := func() []TraceEntry {
		sys := buildPingPongSystem(t, 7)
		sys.Network().SetDelay("client", "server", time.Second, 3*time.Second)
		sys.Network().SetDelay("server", "client", time.Second, 3*time.Second)
		require.NoError(t, sys.SendLocalMessage("client", "c", Message{Tag: "PING", Data: "0"}))
		require.NoError(t, sys.StepUntilNoEvents())
		return sys.Trace().Entries()
	}

	a := run()
	b := run()
	require.Equal(t, a, b)
	require.NotEmpty(t, a)
}

func TestStepProcessesInNonDecreasingTimeOrder(t *testing.T) {
	sys := buildPingPongSystem(t, 3)
	sys.Network().SetDelay("client", "server", time.Second, 5*time.Second)
	sys.Network().SetDelay("server", "client", time.Second, 5*time.Second)
	require.NoError(t, sys.SendLocalMessage("client", "c", Message{Tag: "PING", Data: "0"}))

	var last time.Time
	for {
		more, err := sys.Step()
		require.NoError(t, err)
		if !more {
			break
		}
		require.False(t, sys.Now().Before(last))
		last = sys.Now()
	}
}

func TestCrashNodeSuppressesCallbacksUntilRecover(t *testing.T) {
	sys := buildPingPongSystem(t, 5)
	sys.Network().SetDelay("client", "server", time.Second, time.Second)
	sys.Network().SetDelay("server", "client", time.Second, time.Second)

	require.NoError(t, sys.CrashNode("server"))
	require.NoError(t, sys.SendLocalMessage("client", "c", Message{Tag: "PING", Data: "0"}))
	require.NoError(t, sys.StepUntilNoEvents())

	msgs, err := sys.ReadLocalMessages("client", "c")
	require.NoError(t, err)
	require.Empty(t, msgs, "crashed server must never reply")

	require.NoError(t, sys.RecoverNode("server"))
	require.NoError(t, sys.SendLocalMessage("client", "c", Message{Tag: "PING", Data: "1"}))
	require.NoError(t, sys.StepUntilNoEvents())

	msgs, err = sys.ReadLocalMessages("client", "c")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "1", msgs[0].Data)
}

type overrideProcess struct {
	fired int
}

func (p *overrideProcess) OnStart(ctx *Context) error {
	ctx.SetTimer("t", 5*time.Second)
	ctx.SetTimer("t", 1*time.Second)
	return nil
}
func (p *overrideProcess) OnMessage(msg Message, from string, ctx *Context) error { return nil }
func (p *overrideProcess) OnLocalMessage(msg Message, ctx *Context) error         { return nil }
func (p *overrideProcess) OnTimer(name string, ctx *Context) error {
	p.fired++
	return nil
}
func (p *overrideProcess) State() ProcessState          { return echoState{} }
func (p *overrideProcess) SetState(state ProcessState)  {}

func TestTimerOverrideFiresOnlyOnceAtTheNewDelay(t *testing.T) {
	sys := NewSystem(1, nil)
	sys.AddNode("n")
	probe := &overrideProcess{}
	start := sys.Now()
	require.NoError(t, sys.AddProcess("n", "p", func() Process { return probe }))
	require.NoError(t, sys.StepUntilNoEvents())

	require.Equal(t, 1, probe.fired)
	require.Equal(t, time.Second, sys.Now().Sub(start))
}

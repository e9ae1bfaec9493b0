package anysim

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNetworkSendDefaultIsZeroDelayNoFailures(t *testing.T) {
	nw := NewNetwork()
	rng := rand.New(rand.NewSource(1))
	msg := Message{Tag: "PING", Data: "0"}
	now := time.Unix(0, 0)

	out := nw.Send(msg, "client.c", "server.s", now, rng)
	require.Len(t, out, 1)
	require.True(t, out[0].Time.Equal(now))
	require.True(t, out[0].Msg.Equal(msg))
}

func TestNetworkDropRateOneAlwaysDrops(t *testing.T) {
	nw := NewNetwork()
	nw.SetDropRate("client", "server", 1.0)
	rng := rand.New(rand.NewSource(1))
	out := nw.Send(Message{Tag: "PING"}, "client.c", "server.s", time.Unix(0, 0), rng)
	require.Empty(t, out)
}

func TestNetworkDisconnectedLinkDropsEverything(t *testing.T) {
	nw := NewNetwork()
	nw.DisconnectNode("server")
	rng := rand.New(rand.NewSource(1))
	out := nw.Send(Message{Tag: "PING"}, "client.c", "server.s", time.Unix(0, 0), rng)
	require.Empty(t, out)
}

func TestNetworkMakeAndHealPartition(t *testing.T) {
	nw := NewNetwork()
	nw.MakePartition([]string{"a"}, []string{"b"})
	require.False(t, nw.LinkConfigFor("a", "b").Connected)
	require.False(t, nw.LinkConfigFor("b", "a").Connected)

	nw.HealPartition([]string{"a"}, []string{"b"})
	require.True(t, nw.LinkConfigFor("a", "b").Connected)
	require.True(t, nw.LinkConfigFor("b", "a").Connected)
}

func TestNetworkDelayIsWithinConfiguredRange(t *testing.T) {
	nw := NewNetwork()
	nw.SetDelay("client", "server", 2*time.Second, 4*time.Second)
	rng := rand.New(rand.NewSource(42))
	now := time.Unix(0, 0)

	for i := 0; i < 50; i++ {
		out := nw.Send(Message{Tag: "PING"}, "client.c", "server.s", now, rng)
		require.Len(t, out, 1)
		delay := out[0].Time.Sub(now)
		require.GreaterOrEqual(t, delay, 2*time.Second)
		require.Less(t, delay, 4*time.Second)
	}
}

func TestCorruptEmptiesData(t *testing.T) {
	m := corrupt(Message{Tag: "PING", Data: "payload"})
	require.Equal(t, "PING", m.Tag)
	require.Empty(t, m.Data)
}

func TestNodeOfAndProcOf(t *testing.T) {
	require.Equal(t, "n", NodeOf("n.p"))
	require.Equal(t, "p", ProcOf("n.p"))
	require.Equal(t, "n", NodeOf("n"))
	require.Empty(t, ProcOf("n"))
}

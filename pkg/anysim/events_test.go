package anysim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPendingEventSetOrdersByTimeThenID(t *testing.T) {
	s := NewPendingEventSet()
	base := time.Unix(0, 0)

	idLate := s.Push(Event{Time: base.Add(5 * time.Second), Target: "n.p"})
	idEarly := s.Push(Event{Time: base.Add(1 * time.Second), Target: "n.p"})
	idTieA := s.Push(Event{Time: base.Add(1 * time.Second), Target: "n.p"})

	first, ok := s.PopMin()
	require.True(t, ok)
	require.Equal(t, idEarly, first.ID)

	second, ok := s.PopMin()
	require.True(t, ok)
	require.Equal(t, idTieA, second.ID)

	third, ok := s.PopMin()
	require.True(t, ok)
	require.Equal(t, idLate, third.ID)

	_, ok = s.PopMin()
	require.False(t, ok)
}

func TestPendingEventSetRemove(t *testing.T) {
	s := NewPendingEventSet()
	id := s.Push(Event{Target: "n.p"})
	require.Equal(t, 1, s.Len())
	require.True(t, s.Remove(id))
	require.Equal(t, 0, s.Len())
	require.False(t, s.Remove(id))
}

func TestPendingEventSetHashEqualityIsOrderIndependent(t *testing.T) {
	base := time.Unix(0, 0)
	a := NewPendingEventSet()
	a.Push(Event{Time: base, Target: "n.p", Msg: Message{Tag: "A"}})
	a.Push(Event{Time: base.Add(time.Second), Target: "n.q", Msg: Message{Tag: "B"}})

	b := NewPendingEventSet()
	b.Push(Event{Time: base.Add(time.Second), Target: "n.q", Msg: Message{Tag: "B"}})
	b.Push(Event{Time: base, Target: "n.p", Msg: Message{Tag: "A"}})

	require.Equal(t, a.Hash(), b.Hash())
	require.True(t, a.Equal(b))
}

func TestPendingEventSetCloneIsIndependent(t *testing.T) {
	s := NewPendingEventSet()
	s.Push(Event{Target: "n.p"})
	clone := s.Clone()

	s.Push(Event{Target: "n.q"})
	require.Equal(t, 2, s.Len())
	require.Equal(t, 1, clone.Len())
}

package mc

import (
	"testing"
	"time"

	"github.com/anysim-project/anysim/pkg/anysim"
	"github.com/stretchr/testify/require"
)

func TestAvailableNormalReturnsEverything(t *testing.T) {
	s := anysim.NewPendingEventSet()
	a := s.Push(anysim.Event{Kind: anysim.EventMessageReceived, Time: time.Unix(0, 0)})
	b := s.Push(anysim.Event{Kind: anysim.EventTimerFired, Time: time.Unix(0, 1)})

	ids := Available(s, Normal)
	require.ElementsMatch(t, []uint64{a, b}, ids)
}

func TestAvailableMessagesFirstExcludesTimersWhenAMessageIsPending(t *testing.T) {
	s := anysim.NewPendingEventSet()
	msgID := s.Push(anysim.Event{Kind: anysim.EventMessageReceived, Time: time.Unix(0, 0)})
	s.Push(anysim.Event{Kind: anysim.EventTimerFired, Time: time.Unix(0, 1)})

	ids := Available(s, MessagesFirst)
	require.Equal(t, []uint64{msgID}, ids)
}

func TestAvailableMessagesFirstFallsBackToTimersWhenNoMessagePending(t *testing.T) {
	s := anysim.NewPendingEventSet()
	timerID := s.Push(anysim.Event{Kind: anysim.EventTimerFired, Time: time.Unix(0, 0)})

	ids := Available(s, MessagesFirst)
	require.Equal(t, []uint64{timerID}, ids)
}

func TestAvailableStrictTimeOnlyReturnsMinimumTimeEvents(t *testing.T) {
	s := anysim.NewPendingEventSet()
	early := s.Push(anysim.Event{Kind: anysim.EventMessageReceived, Time: time.Unix(0, 0)})
	s.Push(anysim.Event{Kind: anysim.EventTimerFired, Time: time.Unix(0, 5)})
	earlyTie := s.Push(anysim.Event{Kind: anysim.EventTimerFired, Time: time.Unix(0, 0)})

	ids := Available(s, StrictTime)
	require.ElementsMatch(t, []uint64{early, earlyTie}, ids)
}

func TestAvailableBlocksTimerFireBehindAnEarlierCancellation(t *testing.T) {
	s := anysim.NewPendingEventSet()
	cancelID := s.Push(anysim.Event{Kind: anysim.EventTimerCancelled, Time: time.Unix(0, 0), Target: "n.p", Timer: "t"})
	fireID := s.Push(anysim.Event{Kind: anysim.EventTimerFired, Time: time.Unix(0, 1), Target: "n.p", Timer: "t"})

	ids := Available(s, Normal)
	require.Contains(t, ids, cancelID)
	require.NotContains(t, ids, fireID)
}

func TestAvailableBlocksDuplicateBeforeItsOriginal(t *testing.T) {
	s := anysim.NewPendingEventSet()
	originalID := s.Push(anysim.Event{Kind: anysim.EventMessageReceived, Time: time.Unix(0, 0)})
	dupID := s.Push(anysim.Event{Kind: anysim.EventMessageReceived, Time: time.Unix(0, 0), OriginID: originalID})

	ids := Available(s, Normal)
	require.Contains(t, ids, originalID)
	require.NotContains(t, ids, dupID)
}

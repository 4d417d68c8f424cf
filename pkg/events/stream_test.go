package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamFanOut(t *testing.T) {
	s := NewStream[int]()
	first := s.Subscribe()
	second := s.Subscribe()

	s.Emit(1)
	s.Emit(2)

	require.Equal(t, 1, <-first.C)
	require.Equal(t, 2, <-first.C)
	require.Equal(t, 1, <-second.C)
	require.Equal(t, 2, <-second.C)
}

func TestStreamEmitWithoutSubscribersDoesNotBlock(t *testing.T) {
	s := NewStream[string]()
	s.Emit("nobody listening")
}

func TestStreamUnsubscribeClosesChannel(t *testing.T) {
	s := NewStream[int]()
	sub := s.Subscribe()
	other := s.Subscribe()

	sub.Unsubscribe()
	_, open := <-sub.C
	require.False(t, open)

	// remaining subscribers still receive
	s.Emit(7)
	require.Equal(t, 7, <-other.C)
}

func TestStreamUnsubscribeIsIdempotent(t *testing.T) {
	s := NewStream[int]()
	sub := s.Subscribe()
	sub.Unsubscribe()
	sub.Unsubscribe()
}

func TestStreamSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	s := NewStream[int]()
	sub := s.Subscribe()

	for i := 0; i < subscriberBuffer+10; i++ {
		s.Emit(i)
	}

	// buffer holds the first events; the overflow was dropped
	require.Equal(t, 0, <-sub.C)
	require.Len(t, sub.C, subscriberBuffer-1)
}

func TestStreamClose(t *testing.T) {
	s := NewStream[int]()
	sub := s.Subscribe()

	s.Close()
	_, open := <-sub.C
	require.False(t, open)

	// post-close operations are inert
	s.Emit(1)
	late := s.Subscribe()
	_, open = <-late.C
	require.False(t, open)
	late.Unsubscribe()
}

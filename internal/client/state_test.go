package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateCellAwait(t *testing.T) {
	cell := newStateCell()
	assert.Equal(t, NotConnected, cell.Get())

	done := make(chan State, 1)
	go func() {
		s, _ := cell.Await(context.Background(), func(s State) bool { return s == Connected })
		done <- s
	}()

	cell.Set(Connecting)
	cell.Set(Connected)

	select {
	case s := <-done:
		assert.Equal(t, Connected, s)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken")
	}
}

func TestStateCellAwaitCancelled(t *testing.T) {
	cell := newStateCell()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	s, err := cell.Await(ctx, func(s State) bool { return s == Connected })
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, NotConnected, s)
}

func TestStateCellCompareAndSet(t *testing.T) {
	cell := newStateCell()

	assert.True(t, cell.CompareAndSet(Connecting, NotConnected, Disconnected))
	assert.False(t, cell.CompareAndSet(Connecting, NotConnected, Disconnected))
	assert.Equal(t, Connecting, cell.Get())
	assert.Equal(t, "CONNECTING", cell.Get().String())
}

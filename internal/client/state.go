package client

import (
	"context"
	"sync"
)

// State is the lifecycle position of a Client.
type State int

const (
	NotConnected State = iota
	Connecting
	Connected
	Disconnecting
	Disconnected
)

func (s State) String() string {
	switch s {
	case NotConnected:
		return "NOT_CONNECTED"
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	case Disconnecting:
		return "DISCONNECTING"
	case Disconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// stateCell holds the current state and wakes every waiter on change.
type stateCell struct {
	mu      sync.Mutex
	state   State
	changed chan struct{}
}

func newStateCell() *stateCell {
	return &stateCell{state: NotConnected, changed: make(chan struct{})}
}

func (c *stateCell) Get() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *stateCell) Set(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == s {
		return
	}
	c.state = s
	close(c.changed)
	c.changed = make(chan struct{})
}

// CompareAndSet moves to next only from one of the from states.
func (c *stateCell) CompareAndSet(next State, from ...State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range from {
		if c.state == f {
			if c.state != next {
				c.state = next
				close(c.changed)
				c.changed = make(chan struct{})
			}
			return true
		}
	}
	return false
}

// Await blocks until pred holds for the current state or ctx ends.
func (c *stateCell) Await(ctx context.Context, pred func(State) bool) (State, error) {
	for {
		c.mu.Lock()
		s, ch := c.state, c.changed
		c.mu.Unlock()

		if pred(s) {
			return s, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return s, ctx.Err()
		}
	}
}

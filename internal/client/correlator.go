package client

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"linkinbio-service/internal/protocol"
)

var (
	// ErrCorrelatorClosed indicates the correlator no longer accepts calls.
	ErrCorrelatorClosed = errors.New("correlator closed")
	// ErrDuplicateRequestID indicates a request id is already awaiting a response.
	ErrDuplicateRequestID = errors.New("request id already pending")
)

// Transport hands an encoded-ready request to the outbound stream.
type Transport interface {
	Send(ctx context.Context, msg protocol.Message) error
}

type pendingCall struct {
	respCh chan protocol.Message
	errCh  chan error
}

// Correlator multiplexes concurrently outstanding requests over one duplex
// stream and routes each response back to its caller by request id.
type Correlator struct {
	t Transport

	mu      sync.Mutex
	pending map[string]*pendingCall

	nextID atomic.Uint64

	closed   atomic.Bool
	closeErr error
}

func NewCorrelator(t Transport) *Correlator {
	return &Correlator{t: t, pending: make(map[string]*pendingCall)}
}

// NextID allocates a request id. Ids are never reused by one Correlator.
func (c *Correlator) NextID() string {
	return strconv.FormatUint(c.nextID.Add(1), 10)
}

// Call allocates an id, builds the request with it, sends it and waits for
// the matching response or for ctx to end. A successful=false answer is
// returned as the *protocol.Error it carries.
func (c *Correlator) Call(ctx context.Context, build func(id string) protocol.Message) (protocol.Message, error) {
	id := c.NextID()
	pc := &pendingCall{respCh: make(chan protocol.Message, 1), errCh: make(chan error, 1)}

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return nil, c.err()
	}
	if _, dup := c.pending[id]; dup {
		c.mu.Unlock()
		return nil, ErrDuplicateRequestID
	}
	c.pending[id] = pc
	c.mu.Unlock()

	// registered before sending so a fast response is never missed
	if err := c.t.Send(ctx, build(id)); err != nil {
		c.forget(id)
		return nil, err
	}

	select {
	case resp := <-pc.respCh:
		if errResp, ok := resp.(*protocol.ErrorResponse); ok {
			return nil, errResp.Err()
		}
		return resp, nil
	case err := <-pc.errCh:
		return nil, err
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	}
}

// Resolve delivers a response to its waiting caller. It reports false for
// responses nobody waits for, which are dropped.
func (c *Correlator) Resolve(resp protocol.Message) bool {
	if resp == nil {
		return false
	}
	id := resp.MessageID()

	c.mu.Lock()
	pc, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if ok {
		pc.respCh <- resp
	}
	return ok
}

// Pending returns the number of calls awaiting a response.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close fails every pending call with err and rejects new calls.
func (c *Correlator) Close(err error) {
	if err == nil {
		err = ErrCorrelatorClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.closeErr = err
	for id, pc := range c.pending {
		delete(c.pending, id)
		pc.errCh <- err
	}
}

func (c *Correlator) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Correlator) err() error {
	if c.closeErr != nil {
		return c.closeErr
	}
	return ErrCorrelatorClosed
}

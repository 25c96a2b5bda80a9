package client

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"testing"
	"time"

	"linkinbio-service/internal/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTransport collects sent requests for the test to answer.
type recordingTransport struct {
	mu   sync.Mutex
	sent []protocol.Message
	err  error
}

func (t *recordingTransport) Send(_ context.Context, msg protocol.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, msg)
	return nil
}

func (t *recordingTransport) waitSent(tb testing.TB, n int) []protocol.Message {
	tb.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		t.mu.Lock()
		if len(t.sent) >= n {
			out := append([]protocol.Message(nil), t.sent...)
			t.mu.Unlock()
			return out
		}
		t.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	tb.Fatalf("expected %d sent requests", n)
	return nil
}

func subscribeTo(user string) func(id string) protocol.Message {
	return func(id string) protocol.Message {
		return &protocol.SubscriptionRequest{ID: id, ClientID: "C1", Subscription: protocol.UserChannel(user)}
	}
}

func TestCorrelatorPairsShuffledResponses(t *testing.T) {
	const k = 50
	tr := &recordingTransport{}
	c := NewCorrelator(tr)

	type result struct {
		user string
		resp protocol.Message
		err  error
	}
	results := make(chan result, k)

	for i := 0; i < k; i++ {
		user := strconv.Itoa(i)
		go func() {
			resp, err := c.Call(context.Background(), subscribeTo(user))
			results <- result{user: user, resp: resp, err: err}
		}()
	}

	sent := tr.waitSent(t, k)
	rand.Shuffle(len(sent), func(i, j int) { sent[i], sent[j] = sent[j], sent[i] })

	for _, msg := range sent {
		req := msg.(*protocol.SubscriptionRequest)
		ok := c.Resolve(&protocol.SubscriptionResponse{
			ID:           req.ID,
			ClientID:     "C1",
			Channel:      protocol.ChannelSubscribe,
			Subscription: req.Subscription,
			Successful:   true,
		})
		require.True(t, ok)
	}

	for i := 0; i < k; i++ {
		r := <-results
		require.NoError(t, r.err)
		resp := r.resp.(*protocol.SubscriptionResponse)
		assert.Equal(t, protocol.UserChannel(r.user), resp.Subscription, "response paired with the wrong caller")
	}
	assert.Equal(t, 0, c.Pending())
}

func TestCorrelatorIDsAreUnique(t *testing.T) {
	c := NewCorrelator(&recordingTransport{})
	seen := make(map[string]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := c.NextID()
				mu.Lock()
				assert.False(t, seen[id], "id %s reused", id)
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 800)
}

func TestCorrelatorTimeoutRemovesWaiter(t *testing.T) {
	tr := &recordingTransport{}
	c := NewCorrelator(tr)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Call(ctx, subscribeTo("42"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, c.Pending())

	// a late response finds nobody waiting
	sent := tr.waitSent(t, 1)
	assert.False(t, c.Resolve(&protocol.SubscriptionResponse{ID: sent[0].MessageID(), Successful: true}))
}

func TestCorrelatorErrorResponse(t *testing.T) {
	tr := &recordingTransport{}
	c := NewCorrelator(tr)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Call(context.Background(), subscribeTo("99"))
		errCh <- err
	}()

	sent := tr.waitSent(t, 1)
	c.Resolve(protocol.NewErrorResponse(sent[0], "C1", protocol.Errorf(protocol.KindChannelMismatch, "denied")))

	err := <-errCh
	assert.Equal(t, protocol.KindChannelMismatch, protocol.KindOf(err))
}

func TestCorrelatorSendFailure(t *testing.T) {
	boom := errors.New("boom")
	c := NewCorrelator(&recordingTransport{err: boom})

	_, err := c.Call(context.Background(), subscribeTo("42"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Pending())
}

func TestCorrelatorCloseFailsPending(t *testing.T) {
	tr := &recordingTransport{}
	c := NewCorrelator(tr)
	closeErr := protocol.Errorf(protocol.KindTransport, "stream closed")

	errCh := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := c.Call(context.Background(), subscribeTo("42"))
			errCh <- err
		}()
	}
	tr.waitSent(t, 2)

	c.Close(closeErr)

	for i := 0; i < 2; i++ {
		assert.Equal(t, protocol.KindTransport, protocol.KindOf(<-errCh))
	}

	_, err := c.Call(context.Background(), subscribeTo("42"))
	assert.Equal(t, protocol.KindTransport, protocol.KindOf(err))
}

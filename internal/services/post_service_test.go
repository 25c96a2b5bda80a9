package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"linkinbio-service/internal/models"
	"linkinbio-service/internal/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	name string
	post models.Post
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) PublishPostEvent(_ context.Context, name string, post models.Post) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{name: name, post: post})
	return p.err
}

func TestPostServiceOwnership(t *testing.T) {
	ctx := context.Background()
	svc := NewPostService(memory.NewPostRepository(), nil)

	post, err := svc.Create(ctx, "42", models.CreatePostRequest{URL: "example.com", Image: "img"})
	require.NoError(t, err)
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, "42", post.User)

	got, err := svc.Get(ctx, "42", post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)

	_, err = svc.Get(ctx, "99", post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound, "another user's post must look missing")

	_, err = svc.List(ctx, "99", "42")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Update(ctx, "99", models.UpdatePostRequest{ID: post.ID, URL: "stolen.com"})
	assert.ErrorIs(t, err, ErrPostNotFound)

	_, err = svc.Delete(ctx, "99", post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)

	posts, err := svc.List(ctx, "42", "42")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "example.com", posts[0].URL)
}

func TestPostServiceUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewPostService(memory.NewPostRepository(), nil)

	post, err := svc.Create(ctx, "42", models.CreatePostRequest{URL: "example.com"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "42", models.UpdatePostRequest{ID: post.ID, URL: "updated.com", Image: "img"})
	require.NoError(t, err)
	assert.Equal(t, "updated.com", updated.URL)
	assert.Equal(t, "42", updated.User)

	deleted, err := svc.Delete(ctx, "42", post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, deleted.ID)

	_, err = svc.Get(ctx, "42", post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestPostServiceUniqueIDs(t *testing.T) {
	ctx := context.Background()
	svc := NewPostService(memory.NewPostRepository(), nil)
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		post, err := svc.Create(ctx, "42", models.CreatePostRequest{URL: "example.com"})
		require.NoError(t, err)
		assert.False(t, seen[post.ID])
		seen[post.ID] = true
	}
}

func TestPostServiceNotifyIsolatesPublishers(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("broker down")}
	healthy := &recordingPublisher{}
	svc := NewPostService(memory.NewPostRepository(), nil, failing, healthy)

	post := models.Post{ID: "p1", User: "42"}
	svc.Notify(context.Background(), "create_linkinbio_post", post)

	assert.Len(t, failing.events, 1)
	require.Len(t, healthy.events, 1)
	assert.Equal(t, "create_linkinbio_post", healthy.events[0].name)
	assert.Equal(t, post, healthy.events[0].post)
}

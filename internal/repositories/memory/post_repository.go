package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"linkinbio-service/internal/models"
	"linkinbio-service/internal/repositories"
)

// PostRepository keeps posts in process memory. Used for DB_DRIVER=memory and tests.
type PostRepository struct {
	mu    sync.RWMutex
	posts map[string]models.Post
}

func NewPostRepository() *PostRepository {
	return &PostRepository{posts: make(map[string]models.Post)}
}

func (r *PostRepository) Get(_ context.Context, id string) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.posts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &post, nil
}

func (r *PostRepository) ListByUser(_ context.Context, user string) ([]models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	posts := make([]models.Post, 0)
	for _, p := range r.posts {
		if p.User == user {
			posts = append(posts, p)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID < posts[j].ID
		}
		return posts[i].CreatedAt.Before(posts[j].CreatedAt)
	})
	return posts, nil
}

func (r *PostRepository) Create(_ context.Context, post *models.Post) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stored := *post
	stored.CreatedAt, stored.UpdatedAt = now, now
	r.posts[stored.ID] = stored
	return &stored, nil
}

func (r *PostRepository) Update(_ context.Context, post *models.Post) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.posts[post.ID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	stored.URL = post.URL
	stored.Image = post.Image
	stored.UpdatedAt = time.Now()
	r.posts[stored.ID] = stored
	return &stored, nil
}

func (r *PostRepository) Delete(_ context.Context, id string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.posts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	delete(r.posts, id)
	return &stored, nil
}

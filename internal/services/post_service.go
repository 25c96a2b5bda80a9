package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"linkinbio-service/internal/models"
	"linkinbio-service/internal/repositories"

	"github.com/google/uuid"
)

var (
	ErrPostNotFound = errors.New("no matching linkinbio post found")
	ErrForbidden    = errors.New("access to another user's posts is forbidden")
)

// PostStore is the persistence collaborator.
type PostStore interface {
	Get(ctx context.Context, id string) (*models.Post, error)
	ListByUser(ctx context.Context, user string) ([]models.Post, error)
	Create(ctx context.Context, post *models.Post) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) (*models.Post, error)
	Delete(ctx context.Context, id string) (*models.Post, error)
}

// PostEventPublisher is told about every successful mutation.
type PostEventPublisher interface {
	PublishPostEvent(ctx context.Context, name string, post models.Post) error
}

// PostService applies ownership rules on top of the store: a user only sees
// and mutates their own posts.
type PostService struct {
	store      PostStore
	publishers []PostEventPublisher
	newID      func() string
	logger     *slog.Logger
}

func NewPostService(store PostStore, logger *slog.Logger, publishers ...PostEventPublisher) *PostService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostService{
		store:      store,
		publishers: publishers,
		newID:      func() string { return uuid.New().String() },
		logger:     logger,
	}
}

// Get returns the post when it belongs to userID. Posts of other users are
// reported as not found.
func (s *PostService) Get(ctx context.Context, userID, id string) (*models.Post, error) {
	post, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if post.User != userID {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *PostService) List(ctx context.Context, userID, owner string) ([]models.Post, error) {
	if owner != userID {
		return nil, ErrForbidden
	}
	posts, err := s.store.ListByUser(ctx, owner)
	if err != nil {
		return nil, storeError(err)
	}
	return posts, nil
}

func (s *PostService) Create(ctx context.Context, userID string, req models.CreatePostRequest) (*models.Post, error) {
	post := &models.Post{
		ID:    s.newID(),
		User:  userID,
		URL:   req.URL,
		Image: req.Image,
	}
	created, err := s.store.Create(ctx, post)
	if err != nil {
		return nil, storeError(err)
	}
	s.logger.Info("Post created", "postID", created.ID, "user", userID)
	return created, nil
}

func (s *PostService) Update(ctx context.Context, userID string, req models.UpdatePostRequest) (*models.Post, error) {
	if _, err := s.Get(ctx, userID, req.ID); err != nil {
		return nil, err
	}
	updated, err := s.store.Update(ctx, &models.Post{ID: req.ID, User: userID, URL: req.URL, Image: req.Image})
	if err != nil {
		return nil, storeError(err)
	}
	s.logger.Info("Post updated", "postID", updated.ID, "user", userID)
	return updated, nil
}

func (s *PostService) Delete(ctx context.Context, userID, id string) (*models.Post, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	s.logger.Info("Post deleted", "postID", deleted.ID, "user", userID)
	return deleted, nil
}

// Notify hands a completed mutation to every publisher. A failing publisher
// is logged and does not stop the others.
func (s *PostService) Notify(ctx context.Context, name string, post models.Post) {
	for _, p := range s.publishers {
		if err := p.PublishPostEvent(ctx, name, post); err != nil {
			s.logger.Warn("Failed to publish post event", "name", name, "postID", post.ID, "error", err)
		}
	}
}

func storeError(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrPostNotFound
	}
	return fmt.Errorf("post store: %w", err)
}

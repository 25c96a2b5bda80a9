package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"linkinbio-service/internal/models"
	"linkinbio-service/internal/repositories"

	"gorm.io/gorm"
)

// PostRepository stores posts through gorm. It works on both postgres and
// mysql dialectors.
type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Get(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &post, nil
}

func (r *PostRepository) ListByUser(ctx context.Context, user string) ([]models.Post, error) {
	posts := make([]models.Post, 0)
	err := r.db.WithContext(ctx).
		Where(&models.Post{User: user}).
		Order("created_at ASC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

func (r *PostRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		slog.Error("Failed to create post", "postID", post.ID, "error", err)
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return post, nil
}

func (r *PostRepository) Update(ctx context.Context, post *models.Post) (*models.Post, error) {
	var updated models.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Post{}).
			Where("id = ?", post.ID).
			Updates(map[string]any{"url": post.URL, "image": post.Image})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repositories.ErrNotFound
		}
		return tx.Where("id = ?", post.ID).First(&updated).Error
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return &updated, nil
}

// Delete removes the post and returns it as it was stored.
func (r *PostRepository) Delete(ctx context.Context, id string) (*models.Post, error) {
	var deleted models.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&deleted).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repositories.ErrNotFound
			}
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Post{}).Error
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete post: %w", err)
	}
	return &deleted, nil
}

package models

import (
	"time"
)

/** --------------------ENTITIES-------------------- */
// Post is a single link-in-bio entry owned by a user
type Post struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	User      string    `gorm:"column:user;index;not null" json:"user"`
	URL       string    `gorm:"not null" json:"url"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Post) TableName() string {
	return "linkinbio_posts"
}

/** -------------------- DTOs -------------------- */
type CreatePostRequest struct {
	URL   string `json:"url" binding:"required"`
	Image string `json:"image"`
}

type UpdatePostRequest struct {
	ID    string `json:"id" binding:"required"`
	URL   string `json:"url" binding:"required"`
	Image string `json:"image"`
}

type ImageUploadResponse struct {
	URL string `json:"url"`
}

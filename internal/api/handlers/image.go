package handlers

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"linkinbio-service/internal/adapters/storage"
	"linkinbio-service/internal/api/middleware"
	"linkinbio-service/internal/models"

	"github.com/gin-gonic/gin"
)

const maxImageSize = 5 << 20

// ImageStore is implemented by storage.MinIOClient.
type ImageStore interface {
	UploadImage(ctx context.Context, userID string, file *multipart.FileHeader) (string, error)
}

type ImageHandler struct {
	store ImageStore
}

func NewImageHandler(store ImageStore) *ImageHandler {
	return &ImageHandler{store: store}
}

func (h *ImageHandler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/LinkinbioPostImage", h.UploadImage)
}

// UploadImage godoc
// @Summary Upload a post image
// @Description Store an image and return the URL to put in a post
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Security TokenAuth
// @Param image formData file true "Image file"
// @Success 200 {object} models.ImageUploadResponse
// @Failure 400 {object} models.ErrorResponse "Missing, oversized or non-image file"
// @Failure 401 {object} models.ErrorResponse "Missing token"
// @Failure 403 {object} models.ErrorResponse "Invalid token"
// @Failure 500 {object} models.ErrorResponse "Upload failed"
// @Router /LinkinbioPostImage [post]
func (h *ImageHandler) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		writeBadRequest(c, err)
		return
	}
	if file.Size > maxImageSize {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Image too large",
		})
		return
	}

	url, err := h.store.UploadImage(c.Request.Context(), middleware.UserID(c), file)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedImage) {
			writeBadRequest(c, err)
			return
		}
		slog.Error("Image upload failed", "user", middleware.UserID(c), "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Upload failed",
		})
		return
	}

	c.JSON(http.StatusOK, models.ImageUploadResponse{URL: url})
}

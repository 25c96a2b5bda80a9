package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"linkinbio-service/internal/api/middleware"
	"linkinbio-service/internal/models"
	"linkinbio-service/internal/protocol"
	"linkinbio-service/internal/services"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	postService *services.PostService
}

func NewPostHandler(postService *services.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// RegisterRoutes maps HTTP methods to handler functions
func (h *PostHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/LinkinbioPost/:id", h.GetPost)
	r.GET("/LinkinbioPosts/:user", h.ListPosts)
	r.POST("/CreateLinkinbioPost", h.CreatePost)
	r.POST("/UpdateLinkinbioPost", h.UpdatePost)
	r.DELETE("/delete/:id", h.DeletePost)
}

// GetPost godoc
// @Summary Get a post
// @Description Get a single link-in-bio post owned by the caller
// @Tags posts
// @Produce json
// @Security TokenAuth
// @Param id path string true "Post ID"
// @Success 200 {object} models.Post
// @Failure 401 {object} models.ErrorResponse "Missing token"
// @Failure 403 {object} models.ErrorResponse "Invalid token"
// @Failure 404 {object} models.ErrorResponse "Post not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /LinkinbioPost/{id} [get]
func (h *PostHandler) GetPost(c *gin.Context) {
	post, err := h.postService.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// ListPosts godoc
// @Summary List posts of a user
// @Description List every link-in-bio post of a user. Callers may only list their own posts.
// @Tags posts
// @Produce json
// @Security TokenAuth
// @Param user path string true "User ID"
// @Success 200 {array} models.Post
// @Failure 401 {object} models.ErrorResponse "Missing token"
// @Failure 403 {object} models.ErrorResponse "Invalid token or another user's posts"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /LinkinbioPosts/{user} [get]
func (h *PostHandler) ListPosts(c *gin.Context) {
	posts, err := h.postService.List(c.Request.Context(), middleware.UserID(c), c.Param("user"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// CreatePost godoc
// @Summary Create a post
// @Description Create a link-in-bio post for the caller and notify subscribers of /user/{id}
// @Tags posts
// @Accept json
// @Produce json
// @Security TokenAuth
// @Param request body models.CreatePostRequest true "Post data"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 401 {object} models.ErrorResponse "Missing token"
// @Failure 403 {object} models.ErrorResponse "Invalid token"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /CreateLinkinbioPost [post]
func (h *PostHandler) CreatePost(c *gin.Context) {
	var req models.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	post, err := h.postService.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	h.respondAndNotify(c, protocol.UpdateCreated, post)
}

// UpdatePost godoc
// @Summary Update a post
// @Description Replace url and image of a post owned by the caller and notify subscribers
// @Tags posts
// @Accept json
// @Produce json
// @Security TokenAuth
// @Param request body models.UpdatePostRequest true "Post data"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse "Invalid input"
// @Failure 401 {object} models.ErrorResponse "Missing token"
// @Failure 403 {object} models.ErrorResponse "Invalid token"
// @Failure 404 {object} models.ErrorResponse "Post not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /UpdateLinkinbioPost [post]
func (h *PostHandler) UpdatePost(c *gin.Context) {
	var req models.UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	post, err := h.postService.Update(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	h.respondAndNotify(c, protocol.UpdateUpdated, post)
}

// DeletePost godoc
// @Summary Delete a post
// @Description Delete a post owned by the caller, return it and notify subscribers
// @Tags posts
// @Produce json
// @Security TokenAuth
// @Param id path string true "Post ID"
// @Success 200 {object} models.Post
// @Failure 401 {object} models.ErrorResponse "Missing token"
// @Failure 403 {object} models.ErrorResponse "Invalid token"
// @Failure 404 {object} models.ErrorResponse "Post not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /delete/{id} [delete]
func (h *PostHandler) DeletePost(c *gin.Context) {
	post, err := h.postService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	h.respondAndNotify(c, protocol.UpdateDeleted, post)
}

// respondAndNotify flushes the response before fanning the mutation out.
func (h *PostHandler) respondAndNotify(c *gin.Context, name string, post *models.Post) {
	c.JSON(http.StatusOK, post)
	c.Writer.Flush()
	h.postService.Notify(c.Request.Context(), name, *post)
}

func writeBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Code:    http.StatusBadRequest,
		Message: "Invalid request body",
		Details: err.Error(),
	})
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPostNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Code:    http.StatusNotFound,
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Code:    http.StatusForbidden,
			Message: err.Error(),
		})
	default:
		slog.Error("Post request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Code:    http.StatusInternalServerError,
			Message: "Internal server error",
		})
	}
}

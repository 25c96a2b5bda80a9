package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"linkinbio-service/internal/adapters/storage"
	"linkinbio-service/internal/api/middleware"
	"linkinbio-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeImageStore struct {
	user string
	err  error
}

func (f *fakeImageStore) UploadImage(_ context.Context, userID string, file *multipart.FileHeader) (string, error) {
	f.user = userID
	if f.err != nil {
		return "", f.err
	}
	return "http://minio/posts/images/" + userID + "/" + file.Filename, nil
}

func uploadRequest(t *testing.T, contentType string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="avatar.png"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/LinkinbioPostImage", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func newImageEngine(store ImageStore) *gin.Engine {
	engine := gin.New()
	group := engine.Group("/", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, "42")
	})
	NewImageHandler(store).RegisterRoutes(group)
	return engine
}

func TestUploadImage(t *testing.T) {
	store := &fakeImageStore{}
	w := httptest.NewRecorder()
	newImageEngine(store).ServeHTTP(w, uploadRequest(t, "image/png"))

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.ImageUploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "http://minio/posts/images/42/avatar.png", resp.URL)
	assert.Equal(t, "42", store.user)
}

func TestUploadImageErrors(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/LinkinbioPostImage", nil)
	newImageEngine(&fakeImageStore{}).ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing file")

	w = httptest.NewRecorder()
	newImageEngine(&fakeImageStore{err: storage.ErrUnsupportedImage}).ServeHTTP(w, uploadRequest(t, "text/plain"))
	assert.Equal(t, http.StatusBadRequest, w.Code, "not an image")

	w = httptest.NewRecorder()
	newImageEngine(&fakeImageStore{err: errors.New("bucket gone")}).ServeHTTP(w, uploadRequest(t, "image/png"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealth(t *testing.T) {
	healthy := NewHealthHandler(HealthCheck{Name: "redis", Check: func(context.Context) error { return nil }})
	degraded := NewHealthHandler(
		HealthCheck{Name: "redis", Check: func(context.Context) error { return nil }},
		HealthCheck{Name: "database", Check: func(context.Context) error { return errors.New("down") }},
	)

	for want, h := range map[int]*HealthHandler{http.StatusOK: healthy, http.StatusServiceUnavailable: degraded} {
		engine := gin.New()
		engine.GET("/healthz", h.Health)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, want, w.Code)
	}
}

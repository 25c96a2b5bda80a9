package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"linkinbio-service/internal/models"
)

// APIError is a non-2xx answer of the posts API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("posts api: %d %s", e.StatusCode, e.Message)
}

// PostsAPI calls the CRUD endpoints with a user token.
type PostsAPI struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewPostsAPI(baseURL, token string, httpClient *http.Client) *PostsAPI {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &PostsAPI{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

func (a *PostsAPI) Get(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := a.do(ctx, http.MethodGet, "/LinkinbioPost/"+url.PathEscape(id), nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (a *PostsAPI) List(ctx context.Context, user string) ([]models.Post, error) {
	var posts []models.Post
	if err := a.do(ctx, http.MethodGet, "/LinkinbioPosts/"+url.PathEscape(user), nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (a *PostsAPI) Create(ctx context.Context, postURL, image string) (*models.Post, error) {
	var post models.Post
	req := models.CreatePostRequest{URL: postURL, Image: image}
	if err := a.do(ctx, http.MethodPost, "/CreateLinkinbioPost", req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (a *PostsAPI) Update(ctx context.Context, id, postURL, image string) (*models.Post, error) {
	var post models.Post
	req := models.UpdatePostRequest{ID: id, URL: postURL, Image: image}
	if err := a.do(ctx, http.MethodPost, "/UpdateLinkinbioPost", req, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (a *PostsAPI) Delete(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := a.do(ctx, http.MethodDelete, "/delete/"+url.PathEscape(id), nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (a *PostsAPI) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Token", a.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody models.ErrorResponse
		raw, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &errBody) == nil && errBody.Message != "" {
			msg = errBody.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

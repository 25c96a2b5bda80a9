package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"path"
	"strings"

	"linkinbio-service/internal/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrUnsupportedImage = errors.New("only image uploads are accepted")

// MinIOClient stores post images in a bucket
type MinIOClient struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinIOClient connects and makes sure the bucket exists
func NewMinIOClient(ctx context.Context, cfg config.MinIOConfig) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("%s://%s", client.EndpointURL().Scheme, client.EndpointURL().Host)
	}

	slog.Info("Connected to MinIO", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return &MinIOClient{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
	}, nil
}

// UploadImage stores the file under images/<user>/ and returns its public URL
func (m *MinIOClient) UploadImage(ctx context.Context, userID string, file *multipart.FileHeader) (string, error) {
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrUnsupportedImage
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	objectName := ObjectName(userID, file.Filename)
	_, err = m.client.PutObject(ctx, m.bucket, objectName, src, file.Size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", m.publicURL, m.bucket, objectName), nil
}

// ObjectName keeps the original extension and replaces the rest with a uuid.
func ObjectName(userID, filename string) string {
	return fmt.Sprintf("images/%s/%s%s", userID, uuid.New().String(), strings.ToLower(path.Ext(filename)))
}

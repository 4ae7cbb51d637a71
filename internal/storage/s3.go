// Package storage mirrors run and merged files to an S3-compatible bucket and
// reads them back for merging.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/thefilesareinthecomputer/web-scraping-research-agent/internal/config"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// objectStore is the part of *minio.Client the service uses.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, key, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// minioStore narrows GetObject's concrete return type.
type minioStore struct {
	*minio.Client
}

func (m minioStore) GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return m.Client.GetObject(ctx, bucket, key, opts)
}

// S3Service is a client for S3-compatible storage.
type S3Service struct {
	client objectStore
	bucket string
	logger *slog.Logger
}

// NewS3Service connects to the endpoint named in cfg.
func NewS3Service(cfg config.S3Config, logger *slog.Logger) (*S3Service, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("object store not configured: MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY and RUNS_BUCKET are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	logger.Info("connected to object store", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return &S3Service{client: minioStore{client}, bucket: cfg.Bucket, logger: logger}, nil
}

// Bucket is the configured bucket name.
func (s *S3Service) Bucket() string {
	return s.bucket
}

// CreateBucket makes bucketName unless it already exists.
func (s *S3Service) CreateBucket(ctx context.Context, bucketName string, location string) (bool, error) {
	exists, err := s.client.BucketExists(ctx, bucketName)
	if err != nil {
		return false, fmt.Errorf("error checking bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
			return false, fmt.Errorf("create bucket %s: %w", bucketName, err)
		}
		s.logger.Info("created bucket", "bucket", bucketName)
	}
	return true, nil
}

// PutFile uploads the file at filePath under key, replacing any existing
// object.
func (s *S3Service) PutFile(ctx context.Context, bucketName, key, filePath string) error {
	info, err := s.client.FPutObject(ctx, bucketName, key, filePath, minio.PutObjectOptions{
		ContentType: contentType(key),
	})
	if err != nil {
		return fmt.Errorf("failed to store %s as %s/%s: %w", filePath, bucketName, key, err)
	}
	s.logger.Debug("stored object", "bucket", bucketName, "key", key, "size", info.Size)
	return nil
}

// Upload maps a local file to its object key.
type Upload struct {
	Path string
	Key  string
}

// PutFiles uploads each file in turn. A failed upload does not stop the
// rest; all failures are returned joined.
func (s *S3Service) PutFiles(ctx context.Context, bucketName string, uploads []Upload) (int, error) {
	var (
		stored int
		errs   []error
	)
	for _, u := range uploads {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.PutFile(ctx, bucketName, u.Key, u.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		stored++
	}
	return stored, errors.Join(errs...)
}

// GetObjectBytes reads a whole object. A missing object yields ErrNotFound.
func (s *S3Service) GetObjectBytes(ctx context.Context, bucketName, key string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, wrapGetErr(bucketName, key, err)
	}
	defer object.Close()

	b, err := io.ReadAll(object)
	if err != nil {
		return nil, wrapGetErr(bucketName, key, err)
	}
	return b, nil
}

func wrapGetErr(bucket, key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%s/%s: %w", bucket, key, ErrNotFound)
	}
	return fmt.Errorf("failed to get object %s/%s: %w", bucket, key, err)
}

// ListKeys returns the keys under prefix in lexical order.
func (s *S3Service) ListKeys(ctx context.Context, bucketName, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", bucketName, prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

func contentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".html":
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}

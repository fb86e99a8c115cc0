// Package media stores uploaded document files in an S3-compatible bucket.
// Objects are content addressed so re-uploading a file yields the same URL.
package media

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/crypto/blake2b"
)

const objectPrefix = "media/"

var ErrTooLarge = errors.New("media: file exceeds upload limit")

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	MaxBytes  int64
}

type Store struct {
	client   *minio.Client
	bucket   string
	maxBytes int64
	logger   *slog.Logger
}

// Open connects to the bucket endpoint and creates the bucket if missing.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	s := &Store{client: client, bucket: cfg.Bucket, maxBytes: cfg.MaxBytes, logger: logger}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("media bucket created", "bucket", s.bucket)
	return nil
}

// Ping checks that the bucket is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

// Upload reads r fully, stores it under its content key and returns that key.
func (s *Store) Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	data, err := readLimited(r, s.maxBytes)
	if err != nil {
		return "", err
	}
	key := ObjectKey(data, filename)
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

// PresignedURL returns a time-limited download link for key.
func (s *Store) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, strings.TrimPrefix(key, "/"), ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

// ObjectKey derives the storage key from the file content. The original
// extension is kept, lowercased.
func ObjectKey(data []byte, filename string) string {
	sum := blake2b.Sum256(data)
	return objectPrefix + hex.EncodeToString(sum[:]) + strings.ToLower(path.Ext(filename))
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > max {
		return nil, ErrTooLarge
	}
	return data, nil
}

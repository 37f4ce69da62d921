// Package publish stores and retrieves the aggregation artifact.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Sink stores serialized artifacts under a key with full-overwrite
// semantics, and reads them back for the portal.
type Sink interface {
	Put(ctx context.Context, key string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// S3API is the S3 surface the sink uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Sink publishes artifacts to an S3 bucket.
type S3Sink struct {
	api    S3API
	bucket string
}

// NewS3Sink creates an S3Sink for the given bucket.
func NewS3Sink(api S3API, bucket string) *S3Sink {
	return &S3Sink{api: api, bucket: bucket}
}

// Put uploads the body under key, replacing any previous object.
func (s *S3Sink) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("publish: put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Get downloads the object stored under key.
func (s *S3Sink) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("publish: get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("publish: read s3://%s/%s: %w", s.bucket, key, err)
	}
	return body, nil
}

// FileSink stores artifacts on the local filesystem, for development runs.
type FileSink struct {
	dir string
}

// NewFileSink creates a FileSink rooted at dir, creating it if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("publish: create sink dir %s: %w", dir, err)
	}
	return &FileSink{dir: dir}, nil
}

// Put writes the body to dir/key, replacing any previous file.
func (f *FileSink) Put(_ context.Context, key string, body []byte) error {
	path := filepath.Join(f.dir, key)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("publish: write %s: %w", path, err)
	}
	return nil
}

// Get reads the file stored under key.
func (f *FileSink) Get(_ context.Context, key string) ([]byte, error) {
	path := filepath.Join(f.dir, key)
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("publish: read %s: %w", path, err)
	}
	return body, nil
}

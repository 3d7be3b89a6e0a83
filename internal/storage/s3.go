// Package storage mirrors published release artifacts into an S3 bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const defaultRegion = "us-east-1"

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Mirror stores copies of released archives under <prefix>/<version>/ and
// <prefix>/latest/.
type Mirror struct {
	client s3API
	bucket string
	prefix string
}

func New(ctx context.Context, bucket, prefix, region string) (*Mirror, error) {
	if bucket == "" {
		return nil, fmt.Errorf("mirror bucket is required")
	}
	if region == "" {
		region = defaultRegion
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithClient(bucket, prefix, s3.NewFromConfig(cfg)), nil
}

func NewWithClient(bucket, prefix string, client s3API) *Mirror {
	return &Mirror{
		client: client,
		bucket: bucket,
		prefix: normalizePrefix(prefix),
	}
}

// KeyForVersion returns the archive key of a file within one release.
func (m *Mirror) KeyForVersion(version, filename string) string {
	return joinKey(m.prefix, sanitizeSegment(version), filename)
}

func (m *Mirror) KeyForLatest(filename string) string {
	return joinKey(m.prefix, "latest", filename)
}

// Key returns a key directly under the prefix.
func (m *Mirror) Key(filename string) string {
	return joinKey(m.prefix, filename)
}

// UploadFile uploads a local file to the given key.
func (m *Mirror) UploadFile(ctx context.Context, key, localPath, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := m.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", m.bucket, key, err)
	}
	return nil
}

// UploadBytes uploads in-memory data to the given key.
func (m *Mirror) UploadBytes(ctx context.Context, key string, data []byte, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := m.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", m.bucket, key, err)
	}
	return nil
}

// DownloadBytes downloads an object into memory.
func (m *Mirror) DownloadBytes(ctx context.Context, key string) ([]byte, error) {
	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// CopyToLatest copies an existing object to the latest key for filename.
func (m *Mirror) CopyToLatest(ctx context.Context, srcKey, filename string) error {
	latestKey := m.KeyForLatest(filename)
	input := &s3.CopyObjectInput{
		Bucket:            aws.String(m.bucket),
		Key:               aws.String(latestKey),
		CopySource:        aws.String(encodeCopySource(m.bucket, srcKey)),
		MetadataDirective: types.MetadataDirectiveCopy,
	}
	if _, err := m.client.CopyObject(ctx, input); err != nil {
		return fmt.Errorf("copy %s to %s: %w", srcKey, latestKey, err)
	}
	return nil
}

func normalizePrefix(prefix string) string {
	return strings.Trim(prefix, "/")
}

// sanitizeSegment keeps a version string from escaping its directory.
func sanitizeSegment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "/", "-")
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

func joinKey(prefix string, parts ...string) string {
	all := []string{}
	if prefix != "" {
		all = append(all, prefix)
	}
	all = append(all, parts...)
	return strings.TrimPrefix(path.Join(all...), "/")
}

func encodeCopySource(bucket, key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return bucket + "/" + strings.Join(parts, "/")
}

// IsNotFound returns true when the error indicates the object does not exist.
func IsNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}

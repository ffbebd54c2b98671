package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// expiresAtMetadata is the object metadata key holding the expiry as Unix milliseconds.
const expiresAtMetadata = "expires-at"

// S3Config holds construction parameters for an S3-compatible backend (AWS S3 or MinIO).
type S3Config struct {
	Bucket    string
	Region    string // default us-east-1
	Endpoint  string // optional; enables a custom endpoint
	Prefix    string // prepended to every object key
	PathStyle bool
}

// S3Backend stores one object per overlay under Prefix+hash. S3 has no
// native per-object TTL, so expiry is stored in metadata and enforced on read.
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
	now    func() time.Time
}

// OpenS3 creates an S3 backend using the default AWS credential chain.
func OpenS3(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3Backend(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3Backend wraps an existing client.
func NewS3Backend(client *s3.Client, bucket, prefix string) *S3Backend {
	return &S3Backend{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

func (b *S3Backend) objectKey(key string) string { return b.prefix + key }

func (b *S3Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer func() { _ = out.Body.Close() }()

	if raw, ok := out.Metadata[expiresAtMetadata]; ok {
		expiresAt, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, false, fmt.Errorf("object %s: bad %s metadata %q", key, expiresAtMetadata, raw)
		}
		if b.now().UnixMilli() >= expiresAt {
			return nil, false, nil
		}
	}
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("reading object %s: %w", key, err)
	}
	return data, true, nil
}

func (b *S3Backend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.objectKey(key)),
		Body:        bytes.NewReader(value),
		ContentType: aws.String("application/json"),
	}
	if ttl > 0 {
		input.Metadata = map[string]string{
			expiresAtMetadata: strconv.FormatInt(b.now().Add(ttl).UnixMilli(), 10),
		}
	}
	_, err := b.client.PutObject(ctx, input)
	return err
}

func (b *S3Backend) Close() error { return nil }

// isNotFound recognizes NoSuchKey as well as a bare 404, which S3-compatible
// servers return without an error body.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var status interface{ HTTPStatusCode() int }
	return errors.As(err, &status) && status.HTTPStatusCode() == http.StatusNotFound
}

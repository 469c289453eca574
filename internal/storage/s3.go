package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/keagan/dilate/internal/config"
	"github.com/keagan/dilate/internal/logging"
	"github.com/rs/zerolog"
)

// s3API is the subset of *s3.Client the store uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store keeps objects under prefix in a bucket.
type S3Store struct {
	logger zerolog.Logger
	client s3API
	bucket string
	prefix string
}

// NewS3Store loads AWS credentials from the environment.
func NewS3Store(ctx context.Context, logger zerolog.Logger, cfg config.StorageConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 storage requires a bucket")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return newS3Store(logger, s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

func newS3Store(logger zerolog.Logger, client s3API, bucket, prefix string) *S3Store {
	return &S3Store{
		logger: logging.WithComponent(logger, "storage").With().Str("backend", "s3").Str("bucket", bucket).Logger(),
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// key flattens local paths to their base name under prefix.
func (s *S3Store) key(k string) string {
	return path.Join(s.prefix, path.Base(k))
}

func (s *S3Store) uri(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte) error {
	k := s.key(key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(k),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(k)),
	})
	if err != nil {
		return fmt.Errorf("S3 PutObject %s: %w", s.uri(k), err)
	}
	s.logger.Debug().Str("key", k).Int("bytes", len(data)).Msg("stored object")
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	k := s.key(key)
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%s: %w", s.uri(k), ErrNotFound)
		}
		return nil, fmt.Errorf("S3 GetObject %s: %w", s.uri(k), err)
	}
	defer result.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(result.Body); err != nil {
		return nil, fmt.Errorf("failed to read S3 object %s: %w", s.uri(k), err)
	}
	return buf.Bytes(), nil
}

func (s *S3Store) Upload(ctx context.Context, key, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	k := s.key(key)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(k),
		Body:        f,
		ContentType: aws.String(contentType(k)),
	})
	if err != nil {
		return "", fmt.Errorf("S3 PutObject %s: %w", s.uri(k), err)
	}

	s.logger.Info().Str("src", localPath).Str("dst", s.uri(k)).Msg("published file")
	return s.uri(k), nil
}

func contentType(key string) string {
	switch path.Ext(key) {
	case ".json":
		return "application/json"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	default:
		return "application/octet-stream"
	}
}

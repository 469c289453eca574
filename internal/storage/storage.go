// Package storage persists run metadata and published outputs, either on
// the local filesystem or in an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/keagan/dilate/internal/config"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("object not found")

// Store is a flat key/value blob store.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Upload copies a local file to key and returns where it ended up.
	Upload(ctx context.Context, key, localPath string) (string, error)
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, logger zerolog.Logger, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "fs":
		return NewFSStore(logger, cfg.Dir), nil
	case "s3":
		return NewS3Store(ctx, logger, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

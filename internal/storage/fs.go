package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/keagan/dilate/internal/logging"
	"github.com/keagan/dilate/pkg/util"
	"github.com/rs/zerolog"
)

// FSStore keeps objects as files under root. An empty root resolves keys
// against the working directory, so keys can be plain paths.
type FSStore struct {
	logger zerolog.Logger
	root   string
}

func NewFSStore(logger zerolog.Logger, root string) *FSStore {
	return &FSStore{
		logger: logging.WithComponent(logger, "storage").With().Str("backend", "fs").Logger(),
		root:   root,
	}
}

func (s *FSStore) path(key string) string {
	if s.root == "" || filepath.IsAbs(key) {
		return key
	}
	return filepath.Join(s.root, key)
}

func (s *FSStore) Put(ctx context.Context, key string, data []byte) error {
	p := s.path(key)
	if err := util.EnsureDir(filepath.Dir(p)); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", p, err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	s.logger.Debug().Str("path", p).Int("bytes", len(data)).Msg("stored object")
	return nil
}

func (s *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	p := s.path(key)
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, nil
}

func (s *FSStore) Upload(ctx context.Context, key, localPath string) (string, error) {
	dst := s.path(key)

	srcAbs, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	dstAbs, err := filepath.Abs(dst)
	if err != nil {
		return "", err
	}
	if srcAbs == dstAbs {
		return dstAbs, nil
	}

	if err := util.EnsureDir(filepath.Dir(dstAbs)); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", dstAbs, err)
	}
	if err := copyFile(srcAbs, dstAbs); err != nil {
		return "", fmt.Errorf("failed to publish %s: %w", localPath, err)
	}

	s.logger.Info().Str("src", srcAbs).Str("dst", dstAbs).Msg("published file")
	return dstAbs, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

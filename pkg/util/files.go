package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RemoveDir removes a directory tree, ignoring a missing directory
func RemoveDir(path string) error {
	if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SiblingPath returns path with its extension replaced and a suffix appended to the stem.
// SiblingPath("out/video.mp4", ".meta", ".json") == "out/video.meta.json"
func SiblingPath(path, suffix, ext string) string {
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	return stem + suffix + ext
}

// IndexedName builds a zero-padded file name for the i-th member of a series
func IndexedName(prefix string, i int, ext string) string {
	return fmt.Sprintf("%s_%04d%s", prefix, i, ext)
}

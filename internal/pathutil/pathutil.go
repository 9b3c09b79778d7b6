package pathutil

import (
	"os"
	"path/filepath"
)

// Abs returns path made absolute against the working directory and
// lexically cleaned. Symlinks are not resolved: callers rely on the
// same lexical form being produced for a path whether or not it exists
// on disk yet.
func Abs(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// Exists reports whether path refers to anything at all.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsFile reports whether path refers to a regular file.
func IsFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// Package storage keeps uploaded files on the local filesystem.
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Store persists uploaded files and returns the public path they are served under.
type Store interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Remove(ctx context.Context, publicPath string) error
}

// LocalStore writes files into a directory served statically at URLPrefix.
type LocalStore struct {
	dir       string
	urlPrefix string
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates the upload directory if needed.
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Save writes data under name and returns "<urlPrefix>/<name>". The file is written
// to a temporary name first so a failed write never leaves a partial upload behind.
func (s *LocalStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base != name {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close upload: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, base)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("store upload: %w", err)
	}
	return path.Join(s.urlPrefix, base), nil
}

// Remove deletes a previously saved file. Paths outside the store are ignored.
func (s *LocalStore) Remove(_ context.Context, publicPath string) error {
	if publicPath == "" || !strings.HasPrefix(publicPath, s.urlPrefix+"/") {
		return nil
	}
	name := path.Base(publicPath)
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

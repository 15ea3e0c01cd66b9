// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package status tracks the lifecycle of analysis tasks and persists their
// artifacts. This file defines the BlobStore abstraction the package writes
// through, plus the local filesystem implementation used in development and
// tests. A Cloud Storage implementation lives in the cloud package.
package status

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrBlobNotFound is returned by Read for keys that have never been written.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is a minimal key-value abstraction over durable object storage.
// Keys are slash-separated logical paths like "results/<task_id>.json".
// Writes must be atomic: a concurrent reader sees either the previous
// content or the new content, never a partial file.
type BlobStore interface {
	// Write stores data under key, replacing any previous content.
	Write(ctx context.Context, key string, data []byte) error

	// Read returns the content stored under key, or ErrBlobNotFound.
	Read(ctx context.Context, key string) ([]byte, error)

	// List returns the keys under the given prefix, in no particular order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// FileBlobStore implements BlobStore on a local directory. Atomicity comes
// from writing to a temp file in the same directory and renaming it over
// the final path, so a crash mid-write never leaves a torn object behind.
type FileBlobStore struct {
	baseDir string
}

// NewFileBlobStore creates a blob store rooted at baseDir, creating the
// directory if needed.
func NewFileBlobStore(baseDir string) (*FileBlobStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory %s: %w", baseDir, err)
	}
	return &FileBlobStore{baseDir: baseDir}, nil
}

// resolve maps a logical key to a filesystem path, rejecting keys that
// would escape the base directory.
func (s *FileBlobStore) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid blob key: %s", key)
	}
	return filepath.Join(s.baseDir, clean), nil
}

// Write stores data under key using a temp-file-and-rename so readers never
// observe a partial write.
func (s *FileBlobStore) Write(_ context.Context, key string, data []byte) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s: %w", key, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to commit %s: %w", key, err)
	}
	return nil
}

// Read returns the content stored under key.
func (s *FileBlobStore) Read(_ context.Context, key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// List walks the tree under prefix and returns the logical keys of every
// regular file found. An absent prefix directory yields an empty list.
func (s *FileBlobStore) List(_ context.Context, prefix string) ([]string, error) {
	root, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}
	var keys []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, relErr := filepath.Rel(s.baseDir, path)
		if relErr != nil {
			return relErr
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	return keys, nil
}

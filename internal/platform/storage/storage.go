// Package storage provides document blob storage behind a single adapter
// interface so core logic never branches on where the bytes live. Backends:
// S3 (production), local filesystem (small deployments, development), an
// in-memory store for tests, and a disabled store for installations that
// keep no documents at all.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrNotFound = errors.New("object not found")
	ErrDisabled = errors.New("document storage is disabled")
)

// DocStore is the document storage adapter. Keys are opaque slash-separated
// paths chosen by the documents service.
type DocStore interface {
	// Enabled reports whether the backend can store and serve objects.
	Enabled() bool
	// DownloadURL returns a URL the client can fetch the object from. For
	// S3 this is a presigned URL; for local storage it is an API proxy path.
	DownloadURL(ctx context.Context, key string) (string, error)
	// Get opens the object for reading. The caller must close it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
}

// ---------------------------------------------------------------------------
// Local filesystem backend
// ---------------------------------------------------------------------------

type localStore struct {
	dir       string
	proxyPath string
}

// NewLocal returns a DocStore writing under dir. proxyPath is the API route
// prefix download URLs point at (e.g. "/api/documents/raw").
func NewLocal(dir, proxyPath string) (DocStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}
	return &localStore{dir: dir, proxyPath: strings.TrimRight(proxyPath, "/")}, nil
}

func (s *localStore) Enabled() bool { return true }

// path maps a key onto the storage dir, rejecting traversal outside it.
func (s *localStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.Join(s.dir, filepath.FromSlash(key)))
	if !strings.HasPrefix(clean, filepath.Clean(s.dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return clean, nil
}

func (s *localStore) DownloadURL(_ context.Context, key string) (string, error) {
	if _, err := s.path(key); err != nil {
		return "", err
	}
	return s.proxyPath + "/" + key, nil
}

func (s *localStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	return f, nil
}

func (s *localStore) Put(_ context.Context, key string, r io.Reader, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close object %s: %w", key, err)
	}
	return os.Rename(tmp.Name(), p)
}

func (s *localStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// In-memory backend (tests, development)
// ---------------------------------------------------------------------------

type memStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemory() DocStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Enabled() bool { return true }

func (s *memStore) DownloadURL(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[key]; !ok {
		return "", ErrNotFound
	}
	return "mem://" + key, nil
}

func (s *memStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStore) Put(_ context.Context, key string, r io.Reader, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// ---------------------------------------------------------------------------
// Disabled backend
// ---------------------------------------------------------------------------

type disabledStore struct{}

func NewDisabled() DocStore { return disabledStore{} }

func (disabledStore) Enabled() bool { return false }

func (disabledStore) DownloadURL(context.Context, string) (string, error) {
	return "", ErrDisabled
}

func (disabledStore) Get(context.Context, string) (io.ReadCloser, error) {
	return nil, ErrDisabled
}

func (disabledStore) Put(context.Context, string, io.Reader, string) error {
	return ErrDisabled
}

func (disabledStore) Delete(context.Context, string) error {
	return ErrDisabled
}

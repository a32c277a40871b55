// Package objectstore provides exam file storage for the clinic platform.
// It defines the ObjectStore interface, an S3/MinIO-backed implementation,
// an in-memory implementation suitable for testing and development, and
// Echo HTTP handlers for presigned upload/download and proxied streaming.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrMissingKey     = errors.New("object key is required")
	ErrInvalidKey     = errors.New("object key is invalid")
)

// ---------------------------------------------------------------------------
// Presign lifetimes
// ---------------------------------------------------------------------------

// Upload URLs are short-lived: the browser requests one and PUTs immediately.
// Download URLs last longer so an open report page can still fetch the file.
const (
	PresignPutTTL = 60 * time.Second
	PresignGetTTL = 300 * time.Second
)

// ---------------------------------------------------------------------------
// Domain types
// ---------------------------------------------------------------------------

// ObjectInfo describes a stored exam file.
type ObjectInfo struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PresignedURL is a time-limited URL granting a single S3 operation.
type PresignedURL struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ---------------------------------------------------------------------------
// ObjectStore interface
// ---------------------------------------------------------------------------

// ObjectStore defines the contract for exam file storage backends.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, content io.Reader) (*ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	PresignPut(ctx context.Context, key, contentType string) (*PresignedURL, error)
	PresignGet(ctx context.Context, key string) (*PresignedURL, error)
}

// BuildKey derives the canonical storage key for an exam file:
// "<patientID>/<unix-millis>.<ext>". The timestamp keeps repeated uploads
// of the same original filename from clobbering each other.
func BuildKey(patientID, fileName string, now time.Time) (string, error) {
	if patientID == "" {
		return "", ErrInvalidKey
	}
	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("%s/%d.%s", patientID, now.UnixMilli(), ext), nil
}

// ValidateKey rejects keys that are empty or attempt path traversal.
func ValidateKey(key string) error {
	if key == "" {
		return ErrMissingKey
	}
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	return nil
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type storedObject struct {
	info    ObjectInfo
	content []byte
}

// MemoryStore is a thread-safe, in-memory ObjectStore for testing/dev.
// Presigned URLs point at the local proxy routes since there is no external
// storage service to sign against.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*storedObject

	// BaseURL prefixes presigned URLs, e.g. "http://localhost:8080".
	BaseURL string
}

// NewMemoryStore returns a ready-to-use MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]*storedObject)}
}

func (s *MemoryStore) Put(_ context.Context, key, contentType string, content io.Reader) (*ObjectInfo, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}

	info := ObjectInfo{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(data)),
		UpdatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.objects[key] = &storedObject{info: info, content: data}
	s.mu.Unlock()

	out := info
	return &out, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (io.ReadCloser, *ObjectInfo, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, ErrObjectNotFound
	}

	info := obj.info
	return io.NopCloser(bytes.NewReader(obj.content)), &info, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) PresignPut(_ context.Context, key, _ string) (*PresignedURL, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	return &PresignedURL{
		URL:       s.BaseURL + "/files/" + key,
		Method:    "PUT",
		Key:       key,
		ExpiresAt: time.Now().UTC().Add(PresignPutTTL),
	}, nil
}

func (s *MemoryStore) PresignGet(_ context.Context, key string) (*PresignedURL, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrObjectNotFound
	}

	return &PresignedURL{
		URL:       s.BaseURL + "/files/" + key,
		Method:    "GET",
		Key:       key,
		ExpiresAt: time.Now().UTC().Add(PresignGetTTL),
	}, nil
}

// Package settings manages the single-row clinic configuration: display
// name and logo.
package settings

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/Iv3rn/exam-access-flow/internal/platform/objectstore"
)

// Settings maps to the clinic_settings table. The table holds exactly one
// row; LogoPath is an object-store key.
type Settings struct {
	ClinicName string     `db:"clinic_name" json:"clinic_name"`
	LogoPath   *string    `db:"logo_path" json:"logo_path,omitempty"`
	UpdatedBy  *uuid.UUID `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

type Repository interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, s *Settings) error
}

type Service struct {
	repo  Repository
	store objectstore.ObjectStore
}

func NewService(repo Repository, store objectstore.ObjectStore) *Service {
	return &Service{repo: repo, store: store}
}

func (s *Service) Get(ctx context.Context) (*Settings, error) {
	return s.repo.Get(ctx)
}

func (s *Service) UpdateName(ctx context.Context, name string, updatedBy *uuid.UUID) (*Settings, error) {
	if name == "" {
		return nil, fmt.Errorf("clinic_name is required")
	}
	cur, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	cur.ClinicName = name
	cur.UpdatedBy = updatedBy
	if err := s.repo.Update(ctx, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

// SetLogo stores the uploaded logo and records its key, removing the
// previous logo object when there was one.
func (s *Service) SetLogo(ctx context.Context, fileName, contentType string, content io.Reader, updatedBy *uuid.UUID) (*Settings, error) {
	cur, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}

	key, err := objectstore.BuildKey("clinic-logo", fileName, time.Now())
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Put(ctx, key, contentType, content); err != nil {
		return nil, fmt.Errorf("store logo: %w", err)
	}

	old := cur.LogoPath
	cur.LogoPath = &key
	cur.UpdatedBy = updatedBy
	if err := s.repo.Update(ctx, cur); err != nil {
		return nil, err
	}

	if old != nil && *old != key {
		_ = s.store.Delete(ctx, *old)
	}
	return cur, nil
}

// LogoURL returns a presigned download URL for the current logo.
func (s *Service) LogoURL(ctx context.Context) (*objectstore.PresignedURL, error) {
	cur, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if cur.LogoPath == nil {
		return nil, objectstore.ErrObjectNotFound
	}
	return s.store.PresignGet(ctx, *cur.LogoPath)
}

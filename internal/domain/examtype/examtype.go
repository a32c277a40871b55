// Package examtype manages the clinic's exam-type taxonomy: the named
// categories staff tag uploads with.
package examtype

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTypeNotFound  = errors.New("exam type not found")
	ErrDuplicateName = errors.New("an exam type with this name already exists")
)

// ExamType maps to the exam_type table; name is unique.
type ExamType struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Active    bool       `db:"active" json:"active"`
	CreatedBy *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

type Repository interface {
	Create(ctx context.Context, t *ExamType) error
	GetByID(ctx context.Context, id uuid.UUID) (*ExamType, error)
	List(ctx context.Context, activeOnly bool) ([]*ExamType, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Rename(ctx context.Context, id uuid.UUID, name string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, name string, createdBy *uuid.UUID) (*ExamType, error) {
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	t := &ExamType{Name: name, Active: true, CreatedBy: createdBy}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]*ExamType, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

func (s *Service) Rename(ctx context.Context, id uuid.UUID, name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	return s.repo.Rename(ctx, id, name)
}

package exam

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Iv3rn/exam-access-flow/internal/platform/objectstore"
)

// ActivityRecorder appends an entry to the clinic activity log.
type ActivityRecorder interface {
	Record(ctx context.Context, actor *uuid.UUID, action, entityType string, entityID *uuid.UUID, details map[string]interface{}) error
}

type Service struct {
	exams    ExamRepository
	reports  ReportRepository
	store    objectstore.ObjectStore
	activity ActivityRecorder
	log      zerolog.Logger
}

func NewService(exams ExamRepository, reports ReportRepository, store objectstore.ObjectStore, activity ActivityRecorder, log zerolog.Logger) *Service {
	return &Service{exams: exams, reports: reports, store: store, activity: activity, log: log}
}

// UploadInput describes a file upload attached to a patient.
type UploadInput struct {
	PatientID   uuid.UUID
	ExamType    string // exams only
	Title       string // reports only
	Description *string
	FileName    string
	ContentType string
	Content     io.Reader
	UploadedBy  *uuid.UUID
}

func fileType(fileName string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
}

// UploadExam stores the file and inserts the exam row. If the insert fails
// the stored object is removed again so the bucket does not accumulate
// orphans.
func (s *Service) UploadExam(ctx context.Context, in UploadInput) (*Exam, error) {
	if in.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if in.ExamType == "" {
		return nil, fmt.Errorf("exam_type is required")
	}
	if in.FileName == "" {
		return nil, fmt.Errorf("file name is required")
	}

	key, err := objectstore.BuildKey(in.PatientID.String(), in.FileName, time.Now())
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Put(ctx, key, in.ContentType, in.Content); err != nil {
		return nil, fmt.Errorf("store exam file: %w", err)
	}

	e := &Exam{
		PatientID:   in.PatientID,
		ExamType:    in.ExamType,
		Description: in.Description,
		FilePath:    key,
		FileType:    fileType(in.FileName),
		UploadedBy:  in.UploadedBy,
	}
	if err := s.exams.Create(ctx, e); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.log.Error().Err(delErr).Str("key", key).
				Msg("orphaned exam file cleanup failed after insert error")
		}
		return nil, fmt.Errorf("insert exam: %w", err)
	}

	if s.activity != nil {
		_ = s.activity.Record(ctx, in.UploadedBy, "exam.uploaded", "exam", &e.ID,
			map[string]interface{}{"patient_id": in.PatientID.String(), "exam_type": in.ExamType})
	}
	return e, nil
}

func (s *Service) GetExam(ctx context.Context, id uuid.UUID) (*Exam, error) {
	return s.exams.GetByID(ctx, id)
}

func (s *Service) ListExamsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Exam, int, error) {
	return s.exams.ListByPatient(ctx, patientID, limit, offset)
}

// ExamDownloadURL returns a short-lived presigned URL for the exam file.
// The exam must belong to patientID; a mismatch reads as not found so the
// response does not reveal whether the id exists.
func (s *Service) ExamDownloadURL(ctx context.Context, patientID, id uuid.UUID) (*objectstore.PresignedURL, error) {
	e, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.PatientID != patientID {
		return nil, ErrExamNotFound
	}
	return s.store.PresignGet(ctx, e.FilePath)
}

// DeleteExam removes the row first and then the object; a leftover object is
// logged rather than resurrecting the row.
func (s *Service) DeleteExam(ctx context.Context, id uuid.UUID, actor *uuid.UUID) error {
	e, err := s.exams.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.exams.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, e.FilePath); err != nil {
		s.log.Error().Err(err).Str("key", e.FilePath).Msg("exam file removal failed after row delete")
	}
	if s.activity != nil {
		_ = s.activity.Record(ctx, actor, "exam.deleted", "exam", &id, nil)
	}
	return nil
}

func (s *Service) UploadReport(ctx context.Context, in UploadInput) (*Report, error) {
	if in.PatientID == uuid.Nil {
		return nil, fmt.Errorf("patient_id is required")
	}
	if in.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if in.FileName == "" {
		return nil, fmt.Errorf("file name is required")
	}

	key, err := objectstore.BuildKey(in.PatientID.String(), in.FileName, time.Now())
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Put(ctx, key, in.ContentType, in.Content); err != nil {
		return nil, fmt.Errorf("store report file: %w", err)
	}

	rep := &Report{
		PatientID:   in.PatientID,
		Title:       in.Title,
		Description: in.Description,
		FilePath:    key,
		FileType:    fileType(in.FileName),
		UploadedBy:  in.UploadedBy,
	}
	if err := s.reports.Create(ctx, rep); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.log.Error().Err(delErr).Str("key", key).
				Msg("orphaned report file cleanup failed after insert error")
		}
		return nil, fmt.Errorf("insert report: %w", err)
	}

	if s.activity != nil {
		_ = s.activity.Record(ctx, in.UploadedBy, "report.uploaded", "report", &rep.ID,
			map[string]interface{}{"patient_id": in.PatientID.String()})
	}
	return rep, nil
}

func (s *Service) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	return s.reports.GetByID(ctx, id)
}

func (s *Service) ListReportsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	return s.reports.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ReportDownloadURL(ctx context.Context, patientID, id uuid.UUID) (*objectstore.PresignedURL, error) {
	rep, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.PatientID != patientID {
		return nil, ErrReportNotFound
	}
	return s.store.PresignGet(ctx, rep.FilePath)
}

func (s *Service) DeleteReport(ctx context.Context, id uuid.UUID, actor *uuid.UUID) error {
	rep, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.reports.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, rep.FilePath); err != nil {
		s.log.Error().Err(err).Str("key", rep.FilePath).Msg("report file removal failed after row delete")
	}
	if s.activity != nil {
		_ = s.activity.Record(ctx, actor, "report.deleted", "report", &id, nil)
	}
	return nil
}

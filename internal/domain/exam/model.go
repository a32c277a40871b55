package exam

import (
	"time"

	"github.com/google/uuid"
)

// Exam maps to the exam table. FilePath is the object-store key of the
// uploaded exam file.
type Exam struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	ExamType    string     `db:"exam_type" json:"exam_type"`
	Description *string    `db:"description" json:"description,omitempty"`
	FilePath    string     `db:"file_path" json:"file_path"`
	FileType    string     `db:"file_type" json:"file_type"`
	UploadedBy  *uuid.UUID `db:"uploaded_by" json:"uploaded_by,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Report maps to the report table: a written document attached to a patient,
// stored the same way exam files are.
type Report struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	Title       string     `db:"title" json:"title"`
	Description *string    `db:"description" json:"description,omitempty"`
	FilePath    string     `db:"file_path" json:"file_path"`
	FileType    string     `db:"file_type" json:"file_type"`
	UploadedBy  *uuid.UUID `db:"uploaded_by" json:"uploaded_by,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

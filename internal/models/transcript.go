package models

import "time"

// TranscriptRow is a single course line on a student's transcript.
type TranscriptRow struct {
	CourseCode string           `json:"course_code"`
	CourseName string           `json:"course_name"`
	Credits    int              `json:"credits"`
	Status     EnrollmentStatus `json:"status"`
	Grade      *LetterGrade     `json:"grade,omitempty"`
	Points     *float64         `json:"points,omitempty"`
}

// Transcript aggregates a student's coursework and cumulative GPA.
type Transcript struct {
	StudentID   string          `json:"student_id"`
	StudentName string          `json:"student_name"`
	Major       string          `json:"major"`
	GPA         float64         `json:"gpa"`
	Probation   bool            `json:"probation"`
	Rows        []TranscriptRow `json:"rows"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// ExportStatus tracks the lifecycle of an asynchronous transcript export.
type ExportStatus string

const (
	ExportStatusQueued ExportStatus = "QUEUED"
	ExportStatusReady  ExportStatus = "READY"
	ExportStatusFailed ExportStatus = "FAILED"
)

// TranscriptExport describes a queued or finished export file.
type TranscriptExport struct {
	ID          string       `json:"id"`
	StudentID   string       `json:"student_id"`
	Format      string       `json:"format"`
	Status      ExportStatus `json:"status"`
	File        string       `json:"file,omitempty"`
	DownloadURL string       `json:"download_url,omitempty"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

package models

import (
	"time"

	"github.com/lib/pq"
)

// Course represents an offered course. The active enrollment count is
// never stored; it is derived by counting active enrollments.
type Course struct {
	ID            string         `db:"id" json:"id"`
	Name          string         `db:"name" json:"name"`
	Code          string         `db:"code" json:"code"`
	Credits       int            `db:"credits" json:"credits"`
	ProfessorID   *string        `db:"professor_id" json:"professor_id,omitempty"`
	Capacity      int            `db:"capacity" json:"capacity"`
	Prerequisites pq.StringArray `db:"prerequisites" json:"prerequisites"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// CourseDetail enriches Course with derived enrollment data.
type CourseDetail struct {
	Course
	CurrentEnrollment int     `db:"current_enrollment" json:"current_enrollment"`
	ProfessorName     *string `db:"professor_name" json:"professor_name,omitempty"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	Search      string
	Code        string
	ProfessorID string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

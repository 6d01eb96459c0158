package models

import "time"

// Student represents a registered learner. GPA and Probation are
// derived fields maintained exclusively by the grade service.
type Student struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Major     string    `db:"major" json:"major"`
	Year      int       `db:"year" json:"year"`
	GPA       float64   `db:"gpa" json:"gpa"`
	Probation bool      `db:"probation" json:"probation"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Major     string
	Year      int
	Probation *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

package models

import "time"

// Professor represents a faculty member. Teaching load is derived from
// the number of courses referencing the professor.
type Professor struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Email      string    `db:"email" json:"email"`
	Department string    `db:"department" json:"department"`
	HireDate   time.Time `db:"hire_date" json:"hire_date"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ProfessorDetail enriches Professor with the derived teaching load.
type ProfessorDetail struct {
	Professor
	TeachingLoad int `db:"teaching_load" json:"teaching_load"`
}

// ProfessorFilter provides filters for listing professors.
type ProfessorFilter struct {
	Search     string
	Department string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

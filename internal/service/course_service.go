package service

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/registrar-api/internal/models"
	appErrors "github.com/campuskit/registrar-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	CodesExist(ctx context.Context, codes []string) (map[string]bool, error)
	CountByProfessor(ctx context.Context, professorID, excludeCourseID string) (int, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

type professorReader interface {
	FindByID(ctx context.Context, id string) (*models.Professor, error)
}

// Course codes are a department prefix followed by a three digit number,
// e.g. CS101 or MATH250.
var courseCodePattern = regexp.MustCompile(`^[A-Z]{2,4}[0-9]{3}$`)

type courseRosterLister interface {
	ListActiveByCourse(ctx context.Context, courseID string) ([]models.EnrollmentDetail, error)
}

// CreateCourseRequest holds payload for creating courses.
type CreateCourseRequest struct {
	Name          string   `json:"name" validate:"required,min=1,max=200"`
	Code          string   `json:"code" validate:"required,min=2,max=20"`
	Credits       int      `json:"credits" validate:"required,gte=1,lte=6"`
	ProfessorID   *string  `json:"professor_id"`
	Capacity      int      `json:"capacity" validate:"required,gte=1"`
	Prerequisites []string `json:"prerequisites"`
}

// UpdateCourseRequest holds payload for updating courses.
type UpdateCourseRequest struct {
	Name          string   `json:"name" validate:"required,min=1,max=200"`
	Code          string   `json:"code" validate:"required,min=2,max=20"`
	Credits       int      `json:"credits" validate:"required,gte=1,lte=6"`
	ProfessorID   *string  `json:"professor_id"`
	Capacity      int      `json:"capacity" validate:"required,gte=1"`
	Prerequisites []string `json:"prerequisites"`
}

// CourseService handles course use-cases, including the teaching load
// cap when a professor is assigned.
type CourseService struct {
	repo        courseRepository
	professors  professorReader
	enrollments courseRosterLister
	maxLoad     int
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(repo courseRepository, professors professorReader, enrollments courseRosterLister, maxLoad int, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if maxLoad <= 0 {
		maxLoad = 4
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, professors: professors, enrollments: enrollments, maxLoad: maxLoad, validator: validate, logger: logger}
}

// List returns courses and pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return courses, pagination, nil
}

// Get returns detailed course information including the derived
// current enrollment count.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, error) {
	course, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create registers a new course.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if !courseCodePattern.MatchString(req.Code) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid course code %q", req.Code))
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already used")
	}
	if err := s.checkPrerequisites(ctx, req.Code, req.Prerequisites); err != nil {
		return nil, err
	}
	if err := s.checkTeachingLoad(ctx, req.ProfessorID, ""); err != nil {
		return nil, err
	}
	course := &models.Course{
		Name:          req.Name,
		Code:          req.Code,
		Credits:       req.Credits,
		ProfessorID:   req.ProfessorID,
		Capacity:      req.Capacity,
		Prerequisites: req.Prerequisites,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Update modifies an existing course.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if !courseCodePattern.MatchString(req.Code) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid course code %q", req.Code))
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	exists, err := s.repo.ExistsByCode(ctx, req.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already used")
	}
	if err := s.checkPrerequisites(ctx, req.Code, req.Prerequisites); err != nil {
		return nil, err
	}
	if err := s.checkTeachingLoad(ctx, req.ProfessorID, id); err != nil {
		return nil, err
	}
	course.Name = req.Name
	course.Code = req.Code
	course.Credits = req.Credits
	course.ProfessorID = req.ProfessorID
	course.Capacity = req.Capacity
	course.Prerequisites = req.Prerequisites
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Delete removes a course and its enrollment rows.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	return nil
}

// Roster returns the active enrollments for a course ordered by
// student name.
func (s *CourseService) Roster(ctx context.Context, id string) ([]models.EnrollmentDetail, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	roster, err := s.enrollments.ListActiveByCourse(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return roster, nil
}

// checkPrerequisites rejects unknown prerequisite codes and
// self-reference.
func (s *CourseService) checkPrerequisites(ctx context.Context, code string, prerequisites []string) error {
	if len(prerequisites) == 0 {
		return nil
	}
	for _, prereq := range prerequisites {
		if prereq == code {
			return appErrors.Clone(appErrors.ErrValidation, "course cannot be its own prerequisite")
		}
	}
	known, err := s.repo.CodesExist(ctx, prerequisites)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate prerequisites")
	}
	for _, prereq := range prerequisites {
		if !known[prereq] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown prerequisite code %s", prereq))
		}
	}
	return nil
}

// checkTeachingLoad verifies the professor exists and has room for one
// more course assignment.
func (s *CourseService) checkTeachingLoad(ctx context.Context, professorID *string, excludeCourseID string) error {
	if professorID == nil || *professorID == "" {
		return nil
	}
	if _, err := s.professors.FindByID(ctx, *professorID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	assigned, err := s.repo.CountByProfessor(ctx, *professorID, excludeCourseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count teaching load")
	}
	if assigned >= s.maxLoad {
		return appErrors.Clone(appErrors.ErrTeachingLoadExceeded, fmt.Sprintf("professor already teaches %d courses", assigned))
	}
	return nil
}

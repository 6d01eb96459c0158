package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/registrar-api/internal/models"
	appErrors "github.com/campuskit/registrar-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindActiveByPair(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	ExistsActive(ctx context.Context, studentID, courseID string) (bool, error)
	CountActiveByCourse(ctx context.Context, courseID string) (int, error)
	SumActiveCredits(ctx context.Context, studentID string) (int, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, withdrawnAt *time.Time) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// standingRecalculator recomputes a student's GPA and probation flag
// after an enrollment mutation.
type standingRecalculator interface {
	Recalculate(ctx context.Context, studentID string) (*models.Student, error)
}

// EnrollRequest describes an admission attempt.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// EnrollmentService evaluates admission rules and manages enrollment
// lifecycle. The checks in Enroll run in a fixed order and the first
// failure wins.
type EnrollmentService struct {
	repo        enrollmentRepository
	students    studentReader
	courses     courseReader
	standing    standingRecalculator
	creditLimit int
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, courses courseReader, standing standingRecalculator, creditLimit int, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if creditLimit <= 0 {
		creditLimit = 18
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, courses: courses, standing: standing, creditLimit: creditLimit, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
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
	return enrollments, pagination, nil
}

// Enroll admits a student to a course when every admission rule passes.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	exists, err := s.repo.ExistsActive(ctx, student.ID, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEnrollment, "")
	}

	active, err := s.repo.CountActiveByCourse(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count course roster")
	}
	if active >= course.Capacity {
		return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
	}

	if len(course.Prerequisites) > 0 {
		history, err := s.repo.ListByStudent(ctx, student.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment history")
		}
		for _, code := range course.Prerequisites {
			if !prerequisiteSatisfied(history, code) {
				return nil, appErrors.Clone(appErrors.ErrPrerequisiteNotMet, fmt.Sprintf("prerequisite %s not satisfied", code))
			}
		}
	}

	credits, err := s.repo.SumActiveCredits(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum active credits")
	}
	if credits+course.Credits > s.creditLimit {
		return nil, appErrors.Clone(appErrors.ErrCreditLimitExceeded, fmt.Sprintf("enrolling would exceed the %d credit limit", s.creditLimit))
	}

	enrollment := &models.Enrollment{StudentID: student.ID, CourseID: course.ID, Status: models.EnrollmentStatusActive, EnrolledAt: time.Now().UTC()}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return enrollment, nil
}

// Withdraw soft-deletes an active enrollment and recomputes the
// student's standing. The row is retained for history.
func (s *EnrollmentService) Withdraw(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindActiveByPair(ctx, studentID, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	withdrawnAt := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, enrollment.ID, models.EnrollmentStatusWithdrawn, &withdrawnAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw enrollment")
	}
	enrollment.Status = models.EnrollmentStatusWithdrawn
	enrollment.WithdrawnAt = &withdrawnAt
	if s.standing != nil {
		if _, err := s.standing.Recalculate(ctx, studentID); err != nil {
			return nil, err
		}
	}
	return enrollment, nil
}

// Complete marks a graded active enrollment as completed so it keeps
// satisfying prerequisites after the term ends.
func (s *EnrollmentService) Complete(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindActiveByPair(ctx, studentID, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Grade == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment has no grade")
	}
	if err := s.repo.UpdateStatus(ctx, enrollment.ID, models.EnrollmentStatusCompleted, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete enrollment")
	}
	enrollment.Status = models.EnrollmentStatusCompleted
	return enrollment, nil
}

// prerequisiteSatisfied reports whether the history contains a
// non-withdrawn enrollment for the code with a passing grade.
func prerequisiteSatisfied(history []models.EnrollmentDetail, code string) bool {
	for _, record := range history {
		if record.CourseCode != code {
			continue
		}
		if record.Status != models.EnrollmentStatusActive && record.Status != models.EnrollmentStatusCompleted {
			continue
		}
		if record.Grade != nil && record.Grade.Passing() {
			return true
		}
	}
	return false
}

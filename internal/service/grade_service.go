package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/campuskit/registrar-api/internal/models"
	appErrors "github.com/campuskit/registrar-api/pkg/errors"
)

type gradeEnrollmentRepository interface {
	FindActiveByPair(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	SetGrade(ctx context.Context, id string, grade models.LetterGrade) error
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type gradeStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	UpdateAcademicStanding(ctx context.Context, id string, gpa float64, probation bool) error
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// GradeService assigns letter grades and maintains the derived GPA and
// probation fields on the student record.
type GradeService struct {
	enrollments gradeEnrollmentRepository
	students    gradeStudentRepository
	cache       cacheInvalidator
	cutoff      float64
	logger      *zap.Logger
}

// NewGradeService constructs GradeService. cutoff is the GPA below
// which a student is placed on probation. cache may be nil.
func NewGradeService(enrollments gradeEnrollmentRepository, students gradeStudentRepository, cache cacheInvalidator, cutoff float64, logger *zap.Logger) *GradeService {
	if cutoff <= 0 {
		cutoff = 2.0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{enrollments: enrollments, students: students, cache: cache, cutoff: cutoff, logger: logger}
}

// SetGrade records a grade on the student's active enrollment in the
// course and returns the student with refreshed standing.
func (s *GradeService) SetGrade(ctx context.Context, studentID, courseID string, grade models.LetterGrade) (*models.Student, error) {
	if !grade.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown letter grade %q", grade))
	}
	enrollment, err := s.enrollments.FindActiveByPair(ctx, studentID, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "active enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := s.enrollments.SetGrade(ctx, enrollment.ID, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}
	return s.Recalculate(ctx, studentID)
}

// Recalculate recomputes the credit-weighted GPA over graded active and
// completed enrollments. Incomplete and withdrawn grades are excluded.
// A student with no graded enrollments carries a 0.0 GPA and is not on
// probation.
func (s *GradeService) Recalculate(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	history, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment history")
	}

	var totalCredits int
	var totalPoints float64
	for _, record := range history {
		if record.Status == models.EnrollmentStatusWithdrawn || record.Grade == nil {
			continue
		}
		points, graded := record.Grade.Points()
		if !graded {
			continue
		}
		totalCredits += record.Credits
		totalPoints += points * float64(record.Credits)
	}

	gpa := 0.0
	probation := false
	if totalCredits > 0 {
		gpa = math.Round(totalPoints/float64(totalCredits)*100) / 100
		probation = gpa < s.cutoff
	}
	if err := s.students.UpdateAcademicStanding(ctx, studentID, gpa, probation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update academic standing")
	}
	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, "transcript:"+studentID); err != nil {
			s.logger.Warn("failed to invalidate transcript cache", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	s.logger.Debug("academic standing updated",
		zap.String("student_id", studentID),
		zap.Float64("gpa", gpa),
		zap.Bool("probation", probation))
	student.GPA = gpa
	student.Probation = probation
	return student, nil
}

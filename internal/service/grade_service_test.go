package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuskit/registrar-api/internal/models"
	appErrors "github.com/campuskit/registrar-api/pkg/errors"
)

type mockGradeEnrollments struct {
	activePairs map[string]models.Enrollment
	history     map[string][]models.EnrollmentDetail
	graded      map[string]models.LetterGrade
}

func (m *mockGradeEnrollments) FindActiveByPair(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	if e, ok := m.activePairs[pairKey(studentID, courseID)]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGradeEnrollments) SetGrade(ctx context.Context, id string, grade models.LetterGrade) error {
	if m.graded == nil {
		m.graded = make(map[string]models.LetterGrade)
	}
	m.graded[id] = grade
	return nil
}

func (m *mockGradeEnrollments) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return m.history[studentID], nil
}

type mockGradeStudents struct {
	students  map[string]*models.Student
	gpa       float64
	probation bool
	updated   bool
}

func (m *mockGradeStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGradeStudents) UpdateAcademicStanding(ctx context.Context, id string, gpa float64, probation bool) error {
	m.gpa = gpa
	m.probation = probation
	m.updated = true
	return nil
}

func gradedRow(code string, credits int, g models.LetterGrade, status models.EnrollmentStatus) models.EnrollmentDetail {
	return models.EnrollmentDetail{
		Enrollment: models.Enrollment{StudentID: "s1", Status: status, Grade: grade(g)},
		CourseCode: code,
		Credits:    credits,
	}
}

func TestGradeServiceSetGrade(t *testing.T) {
	enrollments := &mockGradeEnrollments{
		activePairs: map[string]models.Enrollment{pairKey("s1", "c1"): {ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusActive}},
		history: map[string][]models.EnrollmentDetail{"s1": {
			gradedRow("CS101", 3, models.GradeA, models.EnrollmentStatusActive),
		}},
	}
	students := &mockGradeStudents{students: map[string]*models.Student{"s1": {ID: "s1"}}}
	svc := NewGradeService(enrollments, students, nil, 2.0, zap.NewNop())

	student, err := svc.SetGrade(context.Background(), "s1", "c1", models.GradeA)
	require.NoError(t, err)
	assert.Equal(t, models.GradeA, enrollments.graded["e1"])
	assert.InDelta(t, 4.0, student.GPA, 1e-9)
	assert.False(t, student.Probation)
	assert.True(t, students.updated)
}

func TestGradeServiceSetGradeUnknownLetter(t *testing.T) {
	svc := NewGradeService(&mockGradeEnrollments{}, &mockGradeStudents{}, nil, 2.0, zap.NewNop())

	_, err := svc.SetGrade(context.Background(), "s1", "c1", models.LetterGrade("Z"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGradeServiceSetGradeNoActiveEnrollment(t *testing.T) {
	students := &mockGradeStudents{students: map[string]*models.Student{"s1": {ID: "s1"}}}
	svc := NewGradeService(&mockGradeEnrollments{}, students, nil, 2.0, zap.NewNop())

	_, err := svc.SetGrade(context.Background(), "s1", "c1", models.GradeB)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGradeServiceSetGradeCompletedEnrollment(t *testing.T) {
	enrollments := &mockGradeEnrollments{
		history: map[string][]models.EnrollmentDetail{"s1": {
			gradedRow("CS101", 3, models.GradeB, models.EnrollmentStatusCompleted),
		}},
	}
	students := &mockGradeStudents{students: map[string]*models.Student{"s1": {ID: "s1"}}}
	svc := NewGradeService(enrollments, students, nil, 2.0, zap.NewNop())

	// grades are assigned while the enrollment is active; completed
	// coursework is closed to grade changes
	_, err := svc.SetGrade(context.Background(), "s1", "c1", models.GradeA)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, enrollments.graded)
}

func TestGradeServiceRecalculateWeighted(t *testing.T) {
	enrollments := &mockGradeEnrollments{history: map[string][]models.EnrollmentDetail{"s1": {
		gradedRow("CS101", 3, models.GradeA, models.EnrollmentStatusCompleted),
		gradedRow("CS102", 3, models.GradeAMinus, models.EnrollmentStatusCompleted),
		gradedRow("CS103", 3, models.GradeBPlus, models.EnrollmentStatusActive),
		gradedRow("CS104", 3, models.GradeB, models.EnrollmentStatusActive),
		gradedRow("CS105", 3, models.GradeBMinus, models.EnrollmentStatusActive),
	}}}
	students := &mockGradeStudents{students: map[string]*models.Student{"s1": {ID: "s1"}}}
	svc := NewGradeService(enrollments, students, nil, 2.0, zap.NewNop())

	student, err := svc.Recalculate(context.Background(), "s1")
	require.NoError(t, err)
	// (4.0 + 3.7 + 3.3 + 3.0 + 2.7) / 5 with equal credits
	assert.InDelta(t, 3.34, student.GPA, 1e-9)
	assert.False(t, student.Probation)
}

func TestGradeServiceRecalculateExclusions(t *testing.T) {
	enrollments := &mockGradeEnrollments{history: map[string][]models.EnrollmentDetail{"s1": {
		gradedRow("CS101", 4, models.GradeC, models.EnrollmentStatusActive),
		gradedRow("CS102", 3, models.GradeIncomplete, models.EnrollmentStatusActive),
		gradedRow("CS103", 3, models.GradeA, models.EnrollmentStatusWithdrawn),
		{Enrollment: models.Enrollment{StudentID: "s1", Status: models.EnrollmentStatusActive}, CourseCode: "CS104", Credits: 3},
	}}}
	students := &mockGradeStudents{students: map[string]*models.Student{"s1": {ID: "s1"}}}
	svc := NewGradeService(enrollments, students, nil, 2.0, zap.NewNop())

	student, err := svc.Recalculate(context.Background(), "s1")
	require.NoError(t, err)
	// only the graded active row counts
	assert.InDelta(t, 2.0, student.GPA, 1e-9)
	assert.False(t, student.Probation)
}

func TestGradeServiceRecalculateProbation(t *testing.T) {
	enrollments := &mockGradeEnrollments{history: map[string][]models.EnrollmentDetail{"s1": {
		gradedRow("CS101", 3, models.GradeD, models.EnrollmentStatusActive),
		gradedRow("CS102", 3, models.GradeCMinus, models.EnrollmentStatusActive),
	}}}
	students := &mockGradeStudents{students: map[string]*models.Student{"s1": {ID: "s1"}}}
	svc := NewGradeService(enrollments, students, nil, 2.0, zap.NewNop())

	student, err := svc.Recalculate(context.Background(), "s1")
	require.NoError(t, err)
	// (1.0*3 + 1.7*3) / 6 = 1.35
	assert.InDelta(t, 1.35, student.GPA, 1e-9)
	assert.True(t, student.Probation)
}

func TestGradeServiceRecalculateProbationCleared(t *testing.T) {
	enrollments := &mockGradeEnrollments{history: map[string][]models.EnrollmentDetail{"s1": {
		gradedRow("CS101", 3, models.GradeD, models.EnrollmentStatusActive),
	}}}
	students := &mockGradeStudents{students: map[string]*models.Student{"s1": {ID: "s1"}}}
	svc := NewGradeService(enrollments, students, nil, 2.0, zap.NewNop())

	student, err := svc.Recalculate(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, student.Probation)

	enrollments.history["s1"] = []models.EnrollmentDetail{
		gradedRow("CS101", 3, models.GradeB, models.EnrollmentStatusActive),
	}
	student, err = svc.Recalculate(context.Background(), "s1")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, student.GPA, 1e-9)
	assert.False(t, student.Probation)
}

func TestGradeServiceRecalculateNoGrades(t *testing.T) {
	enrollments := &mockGradeEnrollments{history: map[string][]models.EnrollmentDetail{}}
	students := &mockGradeStudents{students: map[string]*models.Student{"s1": {ID: "s1", GPA: 3.1}}}
	svc := NewGradeService(enrollments, students, nil, 2.0, zap.NewNop())

	student, err := svc.Recalculate(context.Background(), "s1")
	require.NoError(t, err)
	assert.Zero(t, student.GPA)
	assert.False(t, student.Probation)
	assert.True(t, students.updated)
}

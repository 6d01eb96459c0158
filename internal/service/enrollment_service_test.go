package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuskit/registrar-api/internal/models"
	appErrors "github.com/campuskit/registrar-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	history       map[string][]models.EnrollmentDetail
	activePairs   map[string]models.Enrollment
	activeCount   map[string]int
	activeCredits map[string]int
	created       *models.Enrollment
	status        map[string]models.EnrollmentStatus
}

func pairKey(studentID, courseID string) string {
	return studentID + "|" + courseID
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockEnrollmentRepo) FindActiveByPair(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	if e, ok := m.activePairs[pairKey(studentID, courseID)]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ExistsActive(ctx context.Context, studentID, courseID string) (bool, error) {
	_, ok := m.activePairs[pairKey(studentID, courseID)]
	return ok, nil
}

func (m *mockEnrollmentRepo) CountActiveByCourse(ctx context.Context, courseID string) (int, error) {
	return m.activeCount[courseID], nil
}

func (m *mockEnrollmentRepo) SumActiveCredits(ctx context.Context, studentID string) (int, error) {
	return m.activeCredits[studentID], nil
}

func (m *mockEnrollmentRepo) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return m.history[studentID], nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = "new-enroll"
	}
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, withdrawnAt *time.Time) error {
	if m.status == nil {
		m.status = make(map[string]models.EnrollmentStatus)
	}
	m.status[id] = status
	return nil
}

type mockStudentReader struct {
	students map[string]*models.Student
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockCourseReader struct {
	courses map[string]*models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockStanding struct {
	recalculated []string
}

func (m *mockStanding) Recalculate(ctx context.Context, studentID string) (*models.Student, error) {
	m.recalculated = append(m.recalculated, studentID)
	return &models.Student{ID: studentID}, nil
}

func newEnrollmentFixture() (*mockEnrollmentRepo, *mockStudentReader, *mockCourseReader, *mockStanding, *EnrollmentService) {
	repo := &mockEnrollmentRepo{
		history:       map[string][]models.EnrollmentDetail{},
		activePairs:   map[string]models.Enrollment{},
		activeCount:   map[string]int{},
		activeCredits: map[string]int{},
	}
	students := &mockStudentReader{students: map[string]*models.Student{"s1": {ID: "s1", Name: "Dana"}}}
	courses := &mockCourseReader{courses: map[string]*models.Course{
		"c1": {ID: "c1", Code: "CS101", Credits: 3, Capacity: 2},
	}}
	standing := &mockStanding{}
	svc := NewEnrollmentService(repo, students, courses, standing, 18, validator.New(), zap.NewNop())
	return repo, students, courses, standing, svc
}

func grade(g models.LetterGrade) *models.LetterGrade {
	return &g
}

func TestEnrollmentServiceEnroll(t *testing.T) {
	repo, _, _, _, svc := newEnrollmentFixture()

	enrollment, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "s1", CourseID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.Nil(t, enrollment.Grade)
	assert.NotNil(t, repo.created)
}

func TestEnrollmentServiceEnrollStudentNotFound(t *testing.T) {
	_, _, _, _, svc := newEnrollmentFixture()

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "ghost", CourseID: "c1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollDuplicate(t *testing.T) {
	repo, _, _, _, svc := newEnrollmentFixture()
	repo.activePairs[pairKey("s1", "c1")] = models.Enrollment{ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusActive}

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "s1", CourseID: "c1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateEnrollment.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollCapacity(t *testing.T) {
	repo, _, _, _, svc := newEnrollmentFixture()
	repo.activeCount["c1"] = 2

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "s1", CourseID: "c1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, appErrors.FromError(err).Code)

	// a withdrawal frees the seat
	repo.activeCount["c1"] = 1
	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "s1", CourseID: "c1"})
	require.NoError(t, err)
}

func TestEnrollmentServiceEnrollPrerequisites(t *testing.T) {
	repo, _, courses, _, svc := newEnrollmentFixture()
	courses.courses["c2"] = &models.Course{ID: "c2", Code: "CS201", Credits: 3, Capacity: 30, Prerequisites: []string{"CS101"}}

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "s1", CourseID: "c2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPrerequisiteNotMet.Code, appErrors.FromError(err).Code)

	// failing grade does not satisfy the prerequisite
	repo.history["s1"] = []models.EnrollmentDetail{{
		Enrollment: models.Enrollment{StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusCompleted, Grade: grade(models.GradeF)},
		CourseCode: "CS101",
		Credits:    3,
	}}
	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "s1", CourseID: "c2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPrerequisiteNotMet.Code, appErrors.FromError(err).Code)

	// withdrawn rows do not count either
	repo.history["s1"] = []models.EnrollmentDetail{{
		Enrollment: models.Enrollment{StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusWithdrawn, Grade: grade(models.GradeA)},
		CourseCode: "CS101",
		Credits:    3,
	}}
	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "s1", CourseID: "c2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPrerequisiteNotMet.Code, appErrors.FromError(err).Code)

	repo.history["s1"] = []models.EnrollmentDetail{{
		Enrollment: models.Enrollment{StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusCompleted, Grade: grade(models.GradeC)},
		CourseCode: "CS101",
		Credits:    3,
	}}
	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "s1", CourseID: "c2"})
	require.NoError(t, err)
}

func TestEnrollmentServiceEnrollCreditLimit(t *testing.T) {
	repo, _, _, _, svc := newEnrollmentFixture()
	repo.activeCredits["s1"] = 16

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "s1", CourseID: "c1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCreditLimitExceeded.Code, appErrors.FromError(err).Code)

	repo.activeCredits["s1"] = 15
	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "s1", CourseID: "c1"})
	require.NoError(t, err)
}

func TestEnrollmentServiceWithdraw(t *testing.T) {
	repo, _, _, standing, svc := newEnrollmentFixture()
	repo.activePairs[pairKey("s1", "c1")] = models.Enrollment{ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusActive}

	enrollment, err := svc.Withdraw(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusWithdrawn, enrollment.Status)
	assert.NotNil(t, enrollment.WithdrawnAt)
	assert.Equal(t, models.EnrollmentStatusWithdrawn, repo.status["e1"])
	assert.Equal(t, []string{"s1"}, standing.recalculated)
}

func TestEnrollmentServiceWithdrawNotEnrolled(t *testing.T) {
	_, _, _, _, svc := newEnrollmentFixture()

	_, err := svc.Withdraw(context.Background(), "s1", "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceComplete(t *testing.T) {
	repo, _, _, _, svc := newEnrollmentFixture()
	repo.activePairs[pairKey("s1", "c1")] = models.Enrollment{ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusActive}

	_, err := svc.Complete(context.Background(), "s1", "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	repo.activePairs[pairKey("s1", "c1")] = models.Enrollment{ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusActive, Grade: grade(models.GradeB)}
	enrollment, err := svc.Complete(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, enrollment.Status)
}

package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/registrar-api/internal/models"
)

func enrollmentDetailRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "course_id", "status", "grade", "enrolled_at", "withdrawn_at",
		"student_name", "course_name", "course_code", "credits"}).
		AddRow("e1", "s1", "c1", models.EnrollmentStatusActive, nil, time.Now(), nil,
			"Dana Hale", "Intro to Programming", "CS101", 3)
}

func TestEnrollmentRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(`SELECT e\.id, .+ FROM enrollments e\s+LEFT JOIN students s ON s\.id = e\.student_id\s+LEFT JOIN courses c ON c\.id = e\.course_id WHERE e\.student_id = \$1 AND e\.status = \$2 ORDER BY e\.enrolled_at DESC LIMIT 20 OFFSET 0`).
		WithArgs("s1", models.EnrollmentStatusActive).
		WillReturnRows(enrollmentDetailRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM enrollments e\s+LEFT JOIN students s ON s\.id = e\.student_id\s+LEFT JOIN courses c ON c\.id = e\.course_id WHERE e\.student_id = \$1 AND e\.status = \$2`).
		WithArgs("s1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	enrollments, total, err := repo.List(context.Background(), models.EnrollmentFilter{
		StudentID: "s1",
		Status:    models.EnrollmentStatusActive,
	})
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "CS101", enrollments[0].CourseCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindActiveByPair(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "status", "grade", "enrolled_at", "withdrawn_at"}).
		AddRow("e1", "s1", "c1", models.EnrollmentStatusActive, nil, time.Now(), nil)
	mock.ExpectQuery(`SELECT id, student_id, course_id, status, grade, enrolled_at, withdrawn_at FROM enrollments\s+WHERE student_id = \$1 AND course_id = \$2 AND status = \$3`).
		WithArgs("s1", "c1", models.EnrollmentStatusActive).
		WillReturnRows(rows)

	enrollment, err := repo.FindActiveByPair(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "e1", enrollment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsActive(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM enrollments WHERE student_id = \$1 AND course_id = \$2 AND status = \$3 LIMIT 1`).
		WithArgs("s1", "c1", models.EnrollmentStatusActive).
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsActive(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCountActiveByCourse(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM enrollments WHERE course_id = \$1 AND status = \$2`).
		WithArgs("c1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(28))

	count, err := repo.CountActiveByCourse(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 28, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositorySumActiveCredits(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(c\.credits\), 0\) FROM enrollments e\s+JOIN courses c ON c\.id = e\.course_id\s+WHERE e\.student_id = \$1 AND e\.status = \$2`).
		WithArgs("s1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(15))

	total, err := repo.SumActiveCredits(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 15, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	enrollment := &models.Enrollment{StudentID: "s1", CourseID: "c1"}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositorySetGrade(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(`UPDATE enrollments SET grade = \$2 WHERE id = \$1`).
		WithArgs("e1", models.GradeAMinus).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetGrade(context.Background(), "e1", models.GradeAMinus))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepositoryMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	withdrawnAt := time.Now().UTC()
	mock.ExpectExec(`UPDATE enrollments SET status = \$2, withdrawn_at = \$3 WHERE id = \$1`).
		WithArgs("e1", models.EnrollmentStatusWithdrawn, withdrawnAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "e1", models.EnrollmentStatusWithdrawn, &withdrawnAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

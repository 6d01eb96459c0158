package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/registrar-api/internal/models"
	appErrors "github.com/campuskit/registrar-api/pkg/errors"
)

type mockProfessorRepo struct {
	professors map[string]*models.Professor
	emails     map[string]string
	created    []*models.Professor
	updated    []*models.Professor
	deleted    []string
}

func (m *mockProfessorRepo) List(ctx context.Context, filter models.ProfessorFilter) ([]models.ProfessorDetail, int, error) {
	var out []models.ProfessorDetail
	for _, p := range m.professors {
		out = append(out, models.ProfessorDetail{Professor: *p})
	}
	return out, len(out), nil
}

func (m *mockProfessorRepo) FindByID(ctx context.Context, id string) (*models.Professor, error) {
	professor, ok := m.professors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *professor
	return &clone, nil
}

func (m *mockProfessorRepo) FindDetailByID(ctx context.Context, id string) (*models.ProfessorDetail, error) {
	professor, ok := m.professors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.ProfessorDetail{Professor: *professor, TeachingLoad: 2}, nil
}

func (m *mockProfessorRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	id, ok := m.emails[email]
	return ok && id != excludeID, nil
}

func (m *mockProfessorRepo) Create(ctx context.Context, professor *models.Professor) error {
	m.created = append(m.created, professor)
	return nil
}

func (m *mockProfessorRepo) Update(ctx context.Context, professor *models.Professor) error {
	m.updated = append(m.updated, professor)
	return nil
}

func (m *mockProfessorRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.professors[id]; !ok {
		return sql.ErrNoRows
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type mockProfessorCourses struct {
	byProfessor map[string][]models.Course
}

func (m *mockProfessorCourses) ListByProfessor(ctx context.Context, professorID string) ([]models.Course, error) {
	return m.byProfessor[professorID], nil
}

func newProfessorFixture() (*ProfessorService, *mockProfessorRepo, *mockProfessorCourses) {
	repo := &mockProfessorRepo{
		professors: map[string]*models.Professor{
			"p1": {ID: "p1", Name: "Prof. Ada Marsh", Email: "marsh@campus.edu", Department: "CS", HireDate: time.Date(2015, 8, 1, 0, 0, 0, 0, time.UTC)},
		},
		emails: map[string]string{"marsh@campus.edu": "p1"},
	}
	courses := &mockProfessorCourses{byProfessor: map[string][]models.Course{
		"p1": {{ID: "c1", Code: "CS101", Name: "Intro to Programming", Credits: 3}},
	}}
	return NewProfessorService(repo, courses, nil, nil), repo, courses
}

func TestProfessorServiceCreate(t *testing.T) {
	svc, repo, _ := newProfessorFixture()

	professor, err := svc.Create(context.Background(), CreateProfessorRequest{
		Name:       "Prof. Lin Odum",
		Email:      "odum@campus.edu",
		Department: "MATH",
		HireDate:   time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "MATH", professor.Department)
	require.Len(t, repo.created, 1)
}

func TestProfessorServiceCreateDuplicateEmail(t *testing.T) {
	svc, _, _ := newProfessorFixture()

	_, err := svc.Create(context.Background(), CreateProfessorRequest{
		Name:       "Prof. Lin Odum",
		Email:      "marsh@campus.edu",
		Department: "MATH",
		HireDate:   time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestProfessorServiceGet(t *testing.T) {
	svc, _, _ := newProfessorFixture()

	detail, err := svc.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, detail.TeachingLoad)

	_, err = svc.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestProfessorServiceUpdate(t *testing.T) {
	svc, repo, _ := newProfessorFixture()

	professor, err := svc.Update(context.Background(), "p1", UpdateProfessorRequest{
		Name:       "Prof. Ada Marsh",
		Email:      "marsh@campus.edu",
		Department: "EE",
		HireDate:   time.Date(2015, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "EE", professor.Department)
	require.Len(t, repo.updated, 1)
}

func TestProfessorServiceDelete(t *testing.T) {
	svc, repo, _ := newProfessorFixture()

	require.NoError(t, svc.Delete(context.Background(), "p1"))
	assert.Equal(t, []string{"p1"}, repo.deleted)

	err := svc.Delete(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestProfessorServiceCourses(t *testing.T) {
	svc, _, _ := newProfessorFixture()

	courses, err := svc.Courses(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "CS101", courses[0].Code)

	_, err = svc.Courses(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuskit/registrar-api/internal/models"
	appErrors "github.com/campuskit/registrar-api/pkg/errors"
	"github.com/campuskit/registrar-api/pkg/jobs"
	"github.com/campuskit/registrar-api/pkg/storage"
)

func newTranscriptFixture(t *testing.T) (*mockStudentReader, *mockHistoryLister, *TranscriptService) {
	t.Helper()
	students := &mockStudentReader{students: map[string]*models.Student{
		"s1": {ID: "s1", Name: "Dana", Major: "CS", GPA: 3.42, Probation: false},
	}}
	history := &mockHistoryLister{history: map[string][]models.EnrollmentDetail{"s1": {
		gradedRow("CS101", 3, models.GradeA, models.EnrollmentStatusCompleted),
		gradedRow("CS201", 4, models.GradeBPlus, models.EnrollmentStatusActive),
		{Enrollment: models.Enrollment{StudentID: "s1", Status: models.EnrollmentStatusWithdrawn}, CourseCode: "CS150", CourseName: "Discrete Math", Credits: 3},
	}}}

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewTranscriptService(students, history, nil, time.Minute, store, signer, jobs.QueueConfig{Workers: 1, Logger: zap.NewNop()}, zap.NewNop())
	return students, history, svc
}

func TestTranscriptServiceGet(t *testing.T) {
	_, _, svc := newTranscriptFixture(t)

	transcript, err := svc.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Dana", transcript.StudentName)
	assert.InDelta(t, 3.42, transcript.GPA, 1e-9)
	require.Len(t, transcript.Rows, 3)

	assert.Equal(t, "CS101", transcript.Rows[0].CourseCode)
	require.NotNil(t, transcript.Rows[0].Points)
	assert.InDelta(t, 4.0, *transcript.Rows[0].Points, 1e-9)

	// withdrawn rows appear on the transcript without points
	assert.Equal(t, models.EnrollmentStatusWithdrawn, transcript.Rows[2].Status)
	assert.Nil(t, transcript.Rows[2].Points)
}

func TestTranscriptServiceGetStudentNotFound(t *testing.T) {
	_, _, svc := newTranscriptFixture(t)

	_, err := svc.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTranscriptServiceExportLifecycle(t *testing.T) {
	_, _, svc := newTranscriptFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	record, err := svc.RequestExport(ctx, "s1", "csv")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, record.Status)

	require.Eventually(t, func() bool {
		current, err := svc.ExportStatus(ctx, record.ID)
		return err == nil && current.Status == models.ExportStatusReady
	}, 2*time.Second, 10*time.Millisecond)

	current, err := svc.ExportStatus(ctx, record.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, current.DownloadURL)
	assert.NotNil(t, current.ExpiresAt)

	token := current.DownloadURL[len("/api/v1/transcripts/downloads/"):]
	file, name, err := svc.Download(ctx, token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "transcript-s1.csv", name)

	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "CS101")
	assert.Contains(t, string(data), "WITHDRAWN")
}

func TestTranscriptServiceExportUnsupportedFormat(t *testing.T) {
	_, _, svc := newTranscriptFixture(t)

	_, err := svc.RequestExport(context.Background(), "s1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTranscriptServiceDownloadBadToken(t *testing.T) {
	_, _, svc := newTranscriptFixture(t)

	_, _, err := svc.Download(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

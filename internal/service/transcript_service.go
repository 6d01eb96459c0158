package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuskit/registrar-api/internal/models"
	appErrors "github.com/campuskit/registrar-api/pkg/errors"
	"github.com/campuskit/registrar-api/pkg/export"
	"github.com/campuskit/registrar-api/pkg/jobs"
	"github.com/campuskit/registrar-api/pkg/storage"
)

type transcriptStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type transcriptEnrollmentLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type transcriptCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type exportPayload struct {
	ExportID  string
	StudentID string
	Format    string
}

// TranscriptService assembles transcripts and runs asynchronous file
// exports through a worker queue. Export state is kept in memory; a
// restart forgets pending exports, which callers handle by requesting
// a new one.
type TranscriptService struct {
	students    transcriptStudentReader
	enrollments transcriptEnrollmentLister
	cache       transcriptCache
	cacheTTL    time.Duration

	queue  *jobs.Queue
	store  *storage.LocalStorage
	signer *storage.SignedURLSigner
	csv    *export.CSVExporter
	pdf    *export.PDFExporter

	mu      sync.RWMutex
	exports map[string]*models.TranscriptExport

	logger *zap.Logger
}

// NewTranscriptService constructs the transcript service and its
// export queue. Call Start before enqueueing exports.
func NewTranscriptService(students transcriptStudentReader, enrollments transcriptEnrollmentLister, cache transcriptCache, cacheTTL time.Duration, store *storage.LocalStorage, signer *storage.SignedURLSigner, queueCfg jobs.QueueConfig, logger *zap.Logger) *TranscriptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	s := &TranscriptService{
		students:    students,
		enrollments: enrollments,
		cache:       cache,
		cacheTTL:    cacheTTL,
		store:       store,
		signer:      signer,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		exports:     make(map[string]*models.TranscriptExport),
		logger:      logger,
	}
	s.queue = jobs.NewQueue("transcript-exports", s.processExport, queueCfg)
	return s
}

// Start launches the export workers.
func (s *TranscriptService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the export workers.
func (s *TranscriptService) Stop() {
	s.queue.Stop()
}

func transcriptCacheKey(studentID string) string {
	return "transcript:" + studentID
}

// Get builds a student's transcript, cumulative GPA included.
func (s *TranscriptService) Get(ctx context.Context, studentID string) (*models.Transcript, error) {
	if s.cache != nil {
		var cached models.Transcript
		if err := s.cache.Get(ctx, transcriptCacheKey(studentID), &cached); err == nil {
			return &cached, nil
		}
	}
	transcript, err := s.build(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, transcriptCacheKey(studentID), transcript, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache transcript", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return transcript, nil
}

// RequestExport queues an asynchronous transcript export and returns
// its tracking record.
func (s *TranscriptService) RequestExport(ctx context.Context, studentID, format string) (*models.TranscriptExport, error) {
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	record := &models.TranscriptExport{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Format:    format,
		Status:    models.ExportStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.exports[record.ID] = record
	s.mu.Unlock()

	job := jobs.Job{
		ID:      record.ID,
		Type:    "transcript_export",
		Payload: exportPayload{ExportID: record.ID, StudentID: studentID, Format: format},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.markFailed(record.ID)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}
	return s.snapshot(record.ID), nil
}

// ExportStatus reports the state of a previously requested export.
func (s *TranscriptService) ExportStatus(ctx context.Context, exportID string) (*models.TranscriptExport, error) {
	record := s.snapshot(exportID)
	if record == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	return record, nil
}

// Download resolves a signed token into the stored export file. The
// returned name is the suggested download filename.
func (s *TranscriptService) Download(ctx context.Context, token string) (*os.File, string, error) {
	exportID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	record := s.snapshot(exportID)
	if record == nil || record.Status != models.ExportStatusReady || record.File != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return file, fmt.Sprintf("transcript-%s.%s", record.StudentID, record.Format), nil
}

func (s *TranscriptService) build(ctx context.Context, studentID string) (*models.Transcript, error) {
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

	rows := make([]models.TranscriptRow, 0, len(history))
	for _, record := range history {
		row := models.TranscriptRow{
			CourseCode: record.CourseCode,
			CourseName: record.CourseName,
			Credits:    record.Credits,
			Status:     record.Status,
			Grade:      record.Grade,
		}
		if record.Grade != nil {
			if points, graded := record.Grade.Points(); graded {
				p := points
				row.Points = &p
			}
		}
		rows = append(rows, row)
	}
	return &models.Transcript{
		StudentID:   student.ID,
		StudentName: student.Name,
		Major:       student.Major,
		GPA:         student.GPA,
		Probation:   student.Probation,
		Rows:        rows,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (s *TranscriptService) processExport(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(exportPayload)
	if !ok {
		s.markFailed(job.ID)
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	transcript, err := s.build(ctx, payload.StudentID)
	if err != nil {
		s.markFailed(payload.ExportID)
		return fmt.Errorf("build transcript: %w", err)
	}

	table := transcriptTable(transcript)
	var data []byte
	switch payload.Format {
	case "pdf":
		title := fmt.Sprintf("Transcript - %s", transcript.StudentName)
		summary := fmt.Sprintf("Cumulative GPA: %.2f", transcript.GPA)
		data, err = s.pdf.Render(table, title, summary)
	default:
		data, err = s.csv.Render(table)
	}
	if err != nil {
		s.markFailed(payload.ExportID)
		return fmt.Errorf("render %s export: %w", payload.Format, err)
	}

	filename := fmt.Sprintf("transcripts/%s-%s.%s", payload.StudentID, payload.ExportID, payload.Format)
	file, err := s.store.Save(filename, data)
	if err != nil {
		s.markFailed(payload.ExportID)
		return fmt.Errorf("store export: %w", err)
	}
	token, expiresAt, err := s.signer.Generate(payload.ExportID, file)
	if err != nil {
		s.markFailed(payload.ExportID)
		return fmt.Errorf("sign export url: %w", err)
	}

	s.mu.Lock()
	if record, found := s.exports[payload.ExportID]; found {
		record.Status = models.ExportStatusReady
		record.File = file
		record.DownloadURL = "/api/v1/transcripts/downloads/" + token
		record.ExpiresAt = &expiresAt
	}
	s.mu.Unlock()

	s.logger.Info("transcript export ready",
		zap.String("export_id", payload.ExportID),
		zap.String("student_id", payload.StudentID),
		zap.String("format", payload.Format))
	return nil
}

func (s *TranscriptService) markFailed(exportID string) {
	s.mu.Lock()
	if record, found := s.exports[exportID]; found {
		record.Status = models.ExportStatusFailed
	}
	s.mu.Unlock()
}

func (s *TranscriptService) snapshot(exportID string) *models.TranscriptExport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, found := s.exports[exportID]
	if !found {
		return nil
	}
	clone := *record
	return &clone
}

func transcriptTable(t *models.Transcript) export.Table {
	table := export.Table{Headers: []string{"Code", "Course", "Credits", "Status", "Grade", "Points"}}
	for _, row := range t.Rows {
		grade := ""
		if row.Grade != nil {
			grade = string(*row.Grade)
		}
		points := ""
		if row.Points != nil {
			points = strconv.FormatFloat(*row.Points, 'f', 1, 64)
		}
		table.Rows = append(table.Rows, []string{
			row.CourseCode,
			row.CourseName,
			strconv.Itoa(row.Credits),
			string(row.Status),
			grade,
			points,
		})
	}
	return table
}

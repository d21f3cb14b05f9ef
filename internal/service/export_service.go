package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-registration-api/internal/models"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
	"github.com/noah-isme/uni-registration-api/pkg/export"
	"github.com/noah-isme/uni-registration-api/pkg/jobs"
)

type rosterLister interface {
	ListRosterBySection(ctx context.Context, sectionID string) ([]models.SectionRosterRow, error)
}

type exportSectionRepository interface {
	FindSectionByID(ctx context.Context, id string) (*models.SectionDetail, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type rosterRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportStatus tracks an asynchronous export job.
type ExportStatus string

const (
	ExportStatusQueued ExportStatus = "QUEUED"
	ExportStatusDone   ExportStatus = "DONE"
	ExportStatusFailed ExportStatus = "FAILED"
)

// ExportJob is the tracked state of one roster export.
type ExportJob struct {
	ID        string       `json:"id"`
	SectionID string       `json:"section_id"`
	Status    ExportStatus `json:"status"`
	FileName  string       `json:"file_name,omitempty"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ExportService renders section rosters to CSV asynchronously through a
// worker queue. Job state is kept in memory; finished files live on disk.
type ExportService struct {
	registrations rosterLister
	sections      exportSectionRepository
	storage       exportStorage
	csv           rosterRenderer
	queue         *jobs.Queue
	logger        *zap.Logger

	mu   sync.RWMutex
	jobs map[string]*ExportJob
}

// NewExportService constructs ExportService and its queue. Call Start before
// enqueuing exports.
func NewExportService(registrations rosterLister, sections exportSectionRepository, storage exportStorage, csv rosterRenderer, cfg jobs.QueueConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ExportService{
		registrations: registrations,
		sections:      sections,
		storage:       storage,
		csv:           csv,
		logger:        logger,
		jobs:          make(map[string]*ExportJob),
	}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("roster-exports", s.handle, cfg)
	return s
}

// Start launches the export workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the export workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// EnqueueRoster schedules a roster export for the section and returns the
// tracked job.
func (s *ExportService) EnqueueRoster(ctx context.Context, sectionID string) (*ExportJob, error) {
	if sectionID == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingParams, "sectionId is required")
	}
	if _, err := s.sections.FindSectionByID(ctx, sectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSectionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	now := time.Now().UTC()
	job := &ExportJob{
		ID:        uuid.NewString(),
		SectionID: sectionID,
		Status:    ExportStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "roster_csv", Payload: sectionID}); err != nil {
		s.fail(job.ID, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export")
	}
	return job, nil
}

// Job returns the tracked state of an export job.
func (s *ExportService) Job(id string) (*ExportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	copied := *job
	return &copied, nil
}

// OpenFile opens a finished export file for streaming.
func (s *ExportService) OpenFile(id string) (*ExportJob, *os.File, error) {
	job, err := s.Job(id)
	if err != nil {
		return nil, nil, err
	}
	if job.Status != ExportStatusDone {
		return nil, nil, appErrors.Clone(appErrors.ErrConflict, "export is not finished")
	}
	file, err := s.storage.Open(job.FileName)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return job, file, nil
}

func (s *ExportService) handle(ctx context.Context, job jobs.Job) error {
	sectionID, ok := job.Payload.(string)
	if !ok {
		s.fail(job.ID, fmt.Errorf("unexpected payload type %T", job.Payload))
		return nil
	}

	roster, err := s.registrations.ListRosterBySection(ctx, sectionID)
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	data := export.Dataset{Headers: []string{"Student Code", "Student Name", "Registered At"}}
	for _, row := range roster {
		data.Rows = append(data.Rows, map[string]string{
			"Student Code":  row.StudentCode,
			"Student Name":  row.StudentName,
			"Registered At": row.RegisteredAt.Format(time.RFC3339),
		})
	}

	payload, err := s.csv.Render(data)
	if err != nil {
		s.fail(job.ID, err)
		return err
	}

	filename := fmt.Sprintf("roster_%s_%s.csv", sectionID, job.ID)
	if _, err := s.storage.Save(filename, payload); err != nil {
		s.fail(job.ID, err)
		return err
	}

	s.mu.Lock()
	if tracked, ok := s.jobs[job.ID]; ok {
		tracked.Status = ExportStatusDone
		tracked.FileName = filename
		tracked.UpdatedAt = time.Now().UTC()
	}
	s.mu.Unlock()

	s.logger.Info("roster export finished",
		zap.String("job_id", job.ID),
		zap.String("section_id", sectionID),
		zap.Int("rows", len(roster)))
	return nil
}

func (s *ExportService) fail(jobID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tracked, ok := s.jobs[jobID]; ok {
		tracked.Status = ExportStatusFailed
		tracked.Error = err.Error()
		tracked.UpdatedAt = time.Now().UTC()
	}
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-registration-api/internal/models"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
)

type phaseRepository interface {
	ListBySemester(ctx context.Context, semesterID string) ([]models.RegistrationPhase, error)
	ListEnabled(ctx context.Context, semesterID string, now time.Time) ([]models.RegistrationPhase, error)
	SetActive(ctx context.Context, semesterID string, tag models.PhaseTag, startAt, endAt time.Time) error
}

type phaseCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type phaseMetrics interface {
	IncPhaseTransition(tag string)
}

// SetActivePhaseRequest describes the phase transition payload.
type SetActivePhaseRequest struct {
	SemesterID string          `json:"semester_id" validate:"required"`
	Phase      models.PhaseTag `json:"phase" validate:"required"`
}

// PhaseTransitionResult reports the outcome of a phase transition.
type PhaseTransitionResult struct {
	SemesterID string             `json:"semester_id"`
	Phase      models.PhaseTag    `json:"phase"`
	Window     models.PhaseWindow `json:"window"`
}

// PhaseService owns the registration phase state machine: listing seeded
// phases, resolving the single active phase, and transitioning between them.
type PhaseService struct {
	repo      phaseRepository
	cache     phaseCache
	metrics   phaseMetrics
	validator *validator.Validate
	logger    *zap.Logger

	grace    time.Duration
	duration time.Duration
	cacheTTL time.Duration
	now      func() time.Time
}

// PhaseServiceConfig tunes the activation window and cache behaviour.
type PhaseServiceConfig struct {
	Grace    time.Duration
	Duration time.Duration
	CacheTTL time.Duration
}

// NewPhaseService constructs PhaseService.
func NewPhaseService(repo phaseRepository, cache phaseCache, metrics phaseMetrics, validate *validator.Validate, logger *zap.Logger, cfg PhaseServiceConfig) *PhaseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Grace <= 0 {
		cfg.Grace = 5 * time.Minute
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 30 * 24 * time.Hour
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	return &PhaseService{
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		grace:     cfg.Grace,
		duration:  cfg.Duration,
		cacheTTL:  cfg.CacheTTL,
		now:       time.Now,
	}
}

// List returns all phase rows seeded for a semester.
func (s *PhaseService) List(ctx context.Context, semesterID string) ([]models.RegistrationPhase, error) {
	if semesterID == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingParams, "semesterId is required")
	}
	phases, err := s.repo.ListBySemester(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list phases")
	}
	return phases, nil
}

// Current resolves the single active phase for the semester. Callers must
// treat ErrNoActivePhase as "no student action permitted".
func (s *PhaseService) Current(ctx context.Context, semesterID string) (*models.RegistrationPhase, error) {
	cacheKey := phaseCacheKey(semesterID)
	if s.cache != nil {
		var cached models.RegistrationPhase
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	phases, err := s.repo.ListEnabled(ctx, semesterID, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve current phase")
	}
	if len(phases) == 0 {
		return nil, appErrors.ErrNoActivePhase
	}
	// More than one enabled row violates the single-active-phase invariant.
	// Tie-break on most recently created and flag the semester for repair.
	if len(phases) > 1 {
		s.logger.Warn("multiple enabled phases for semester",
			zap.String("semester_id", semesterID),
			zap.Int("count", len(phases)),
			zap.String("chosen", string(phases[0].Tag)))
	}
	phase := phases[0]

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, phase, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache current phase", zap.Error(err))
		}
	}
	return &phase, nil
}

// SetActive transitions the semester to the requested phase: every phase row
// is disabled and exactly one re-enabled with a fresh window, atomically.
func (s *PhaseService) SetActive(ctx context.Context, req SetActivePhaseRequest) (*PhaseTransitionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMissingParams.Code, appErrors.ErrMissingParams.Status, "semester_id and phase are required")
	}
	if !req.Phase.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidPhase, fmt.Sprintf("unrecognised phase %q", req.Phase))
	}

	now := s.now().UTC()
	startAt := now.Add(-s.grace)
	endAt := now.Add(s.duration)

	if err := s.repo.SetActive(ctx, req.SemesterID, req.Phase, startAt, endAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPhaseNotSeeded, fmt.Sprintf("phase %s is not seeded for semester %s", req.Phase, req.SemesterID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transition phase")
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, phaseCacheKey(req.SemesterID)); err != nil {
			s.logger.Warn("failed to invalidate phase cache", zap.Error(err))
		}
	}
	if s.metrics != nil {
		s.metrics.IncPhaseTransition(string(req.Phase))
	}

	s.logger.Info("phase transition",
		zap.String("semester_id", req.SemesterID),
		zap.String("phase", string(req.Phase)),
		zap.Time("start_at", startAt),
		zap.Time("end_at", endAt))

	return &PhaseTransitionResult{
		SemesterID: req.SemesterID,
		Phase:      req.Phase,
		Window:     models.PhaseWindow{StartAt: startAt, EndAt: endAt},
	}, nil
}

func phaseCacheKey(semesterID string) string {
	return "phase:current:" + semesterID
}

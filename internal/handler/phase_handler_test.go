package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-registration-api/internal/models"
	"github.com/noah-isme/uni-registration-api/internal/service"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
)

type phaseRepoMock struct {
	enabled   []models.RegistrationPhase
	activated []models.PhaseTag
}

func (m *phaseRepoMock) ListBySemester(ctx context.Context, semesterID string) ([]models.RegistrationPhase, error) {
	return m.enabled, nil
}

func (m *phaseRepoMock) ListEnabled(ctx context.Context, semesterID string, now time.Time) ([]models.RegistrationPhase, error) {
	return m.enabled, nil
}

func (m *phaseRepoMock) SetActive(ctx context.Context, semesterID string, tag models.PhaseTag, startAt, endAt time.Time) error {
	m.activated = append(m.activated, tag)
	return nil
}

type phaseCacheMock struct{}

func (phaseCacheMock) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (phaseCacheMock) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (phaseCacheMock) Delete(ctx context.Context, key string) error { return nil }

type phaseMetricsMock struct{}

func (phaseMetricsMock) IncPhaseTransition(tag string) {}

func newPhaseTestHandler(repo *phaseRepoMock) *PhaseHandler {
	svc := service.NewPhaseService(repo, phaseCacheMock{}, phaseMetricsMock{}, nil, nil, service.PhaseServiceConfig{})
	return NewPhaseHandler(svc)
}

func TestPhaseHandlerSetActive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &phaseRepoMock{}
	handler := newPhaseTestHandler(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/semesters/sem-1/phases/active", bytes.NewBufferString(`{"phase":"COURSE_REGISTRATION"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "semesterId", Value: "sem-1"}}

	handler.SetActive(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.PhaseTag{models.PhaseCourseRegistration}, repo.activated)
}

func TestPhaseHandlerSetActiveInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPhaseTestHandler(&phaseRepoMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/semesters/sem-1/phases/active", bytes.NewBufferString(`{"phase":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "semesterId", Value: "sem-1"}}

	handler.SetActive(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPhaseHandlerSetActiveUnknownTag(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &phaseRepoMock{}
	handler := newPhaseTestHandler(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/semesters/sem-1/phases/active", bytes.NewBufferString(`{"phase":"EXAM_WEEK"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "semesterId", Value: "sem-1"}}

	handler.SetActive(c)
	require.Equal(t, appErrors.ErrInvalidPhase.Status, w.Code)
	assert.Empty(t, repo.activated)
}

func TestPhaseHandlerCurrentNoActivePhase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPhaseTestHandler(&phaseRepoMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/semesters/sem-1/phases/current", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "semesterId", Value: "sem-1"}}

	handler.Current(c)
	require.Equal(t, appErrors.ErrNoActivePhase.Status, w.Code)
}

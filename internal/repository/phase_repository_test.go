package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-registration-api/internal/models"
)

func newPhaseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPhaseRepositoryListEnabled(t *testing.T) {
	db, mock, cleanup := newPhaseRepoMock(t)
	defer cleanup()
	repo := NewPhaseRepository(db)

	now := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "semester_id", "tag", "enabled", "start_at", "end_at", "created_at", "updated_at"}).
		AddRow("p1", "sem-1", "COURSE_REGISTRATION", true, now.Add(-time.Hour), now.Add(time.Hour), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, semester_id, tag, enabled, start_at, end_at, created_at, updated_at FROM registration_phases WHERE semester_id = $1 AND enabled = TRUE AND start_at <= $2 AND end_at >= $2 ORDER BY created_at DESC")).
		WithArgs("sem-1", now).
		WillReturnRows(rows)

	phases, err := repo.ListEnabled(context.Background(), "sem-1", now)
	require.NoError(t, err)
	require.Len(t, phases, 1)
	assert.Equal(t, models.PhaseCourseRegistration, phases[0].Tag)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPhaseRepositorySetActive(t *testing.T) {
	db, mock, cleanup := newPhaseRepoMock(t)
	defer cleanup()
	repo := NewPhaseRepository(db)

	startAt := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	endAt := startAt.AddDate(0, 0, 14)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT id FROM registration_phases WHERE semester_id = $1 FOR UPDATE")).
		WithArgs("sem-1").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("UPDATE registration_phases SET enabled = FALSE").
		WithArgs("sem-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("UPDATE registration_phases SET enabled = TRUE").
		WithArgs("sem-1", models.PhaseCourseRegistration, startAt, endAt, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SetActive(context.Background(), "sem-1", models.PhaseCourseRegistration, startAt, endAt)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPhaseRepositorySetActiveNotSeeded(t *testing.T) {
	db, mock, cleanup := newPhaseRepoMock(t)
	defer cleanup()
	repo := NewPhaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("SELECT id FROM registration_phases").
		WithArgs("sem-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE registration_phases SET enabled = FALSE").
		WithArgs("sem-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE registration_phases SET enabled = TRUE").
		WithArgs("sem-1", models.PhaseTag("BOGUS"), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetActive(context.Background(), "sem-1", models.PhaseTag("BOGUS"), time.Now(), time.Now().Add(time.Hour))
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPhaseRepositorySeed(t *testing.T) {
	db, mock, cleanup := newPhaseRepoMock(t)
	defer cleanup()
	repo := NewPhaseRepository(db)

	ids := []string{"p1", "p2", "p3", "p4", "p5"}
	for range ids {
		mock.ExpectExec("INSERT INTO registration_phases").
			WillReturnResult(sqlmock.NewResult(1, 1))
	}

	require.NoError(t, repo.Seed(context.Background(), "sem-1", ids))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPhaseRepositorySeedRequiresFiveIDs(t *testing.T) {
	db, _, cleanup := newPhaseRepoMock(t)
	defer cleanup()
	repo := NewPhaseRepository(db)

	err := repo.Seed(context.Background(), "sem-1", []string{"p1", "p2"})
	require.Error(t, err)
}

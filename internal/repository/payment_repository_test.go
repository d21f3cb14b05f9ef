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

func newPaymentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPaymentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("INSERT INTO payment_transactions").
		WithArgs(sqlmock.AnyArg(), "order-1", "st-1", "sem-1", 3500000.0, "vnpay", string(models.PaymentStatusPending), "https://pay.example.com", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	txn := &models.PaymentTransaction{
		OrderID:    "order-1",
		StudentID:  "st-1",
		SemesterID: "sem-1",
		Amount:     3500000,
		Provider:   "vnpay",
		PayURL:     "https://pay.example.com",
	}
	require.NoError(t, repo.Create(context.Background(), txn))
	assert.NotEmpty(t, txn.ID)
	assert.Equal(t, models.PaymentStatusPending, txn.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryFindByOrderID(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "order_id", "student_id", "semester_id", "amount", "provider", "status", "pay_url", "created_at", "updated_at"}).
		AddRow("txn-1", "order-1", "st-1", "sem-1", 3500000.0, "vnpay", "PENDING", "", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, order_id, student_id, semester_id, amount, provider, status, pay_url, created_at, updated_at FROM payment_transactions WHERE order_id = $1")).
		WithArgs("order-1").
		WillReturnRows(rows)

	txn, err := repo.FindByOrderID(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, "txn-1", txn.ID)
	assert.Equal(t, models.PaymentStatusPending, txn.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryFindByOrderIDMissing(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectQuery("SELECT id, order_id").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByOrderID(context.Background(), "ghost")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestPaymentRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE payment_transactions SET status = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("txn-1", string(models.PaymentStatusSuccess), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "txn-1", models.PaymentStatusSuccess))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryAppendCallbackLog(t *testing.T) {
	db, mock, cleanup := newPaymentRepoMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("INSERT INTO payment_callback_logs").
		WithArgs(sqlmock.AnyArg(), "order-1", "vnpay", "00", []byte(`{"vnp_ResponseCode":"00"}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	log := &models.PaymentCallbackLog{
		OrderID:        "order-1",
		Provider:       "vnpay",
		ExternalStatus: "00",
		Payload:        []byte(`{"vnp_ResponseCode":"00"}`),
	}
	require.NoError(t, repo.AppendCallbackLog(context.Background(), log))
	assert.NotEmpty(t, log.ID)
	assert.False(t, log.ReceivedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

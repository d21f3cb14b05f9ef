package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-registration-api/internal/models"
)

// PaymentRepository handles persistence of payment transactions and the
// append-only callback audit log.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create persists a new payment transaction.
func (r *PaymentRepository) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}
	txn.UpdatedAt = now
	if txn.Status == "" {
		txn.Status = models.PaymentStatusPending
	}
	const query = `INSERT INTO payment_transactions (id, order_id, student_id, semester_id, amount, provider, status, pay_url, created_at, updated_at)
        VALUES (:id, :order_id, :student_id, :semester_id, :amount, :provider, :status, :pay_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, txn); err != nil {
		return fmt.Errorf("create payment transaction: %w", err)
	}
	return nil
}

// FindByOrderID returns the transaction with the given external order id.
func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error) {
	const query = `SELECT id, order_id, student_id, semester_id, amount, provider, status, pay_url, created_at, updated_at FROM payment_transactions WHERE order_id = $1`
	var txn models.PaymentTransaction
	if err := r.db.GetContext(ctx, &txn, query, orderID); err != nil {
		return nil, err
	}
	return &txn, nil
}

// UpdateStatus sets the transaction status.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	const query = `UPDATE payment_transactions SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return nil
}

// AppendCallbackLog writes one callback audit row. Callers invoke this before
// any other processing so the raw payload survives every failure mode.
func (r *PaymentRepository) AppendCallbackLog(ctx context.Context, log *models.PaymentCallbackLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.ReceivedAt.IsZero() {
		log.ReceivedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payment_callback_logs (id, order_id, provider, external_status, payload, received_at)
        VALUES (:id, :order_id, :provider, :external_status, :payload, :received_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("append callback log: %w", err)
	}
	return nil
}

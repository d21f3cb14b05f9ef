package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-registration-api/internal/models"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
	"github.com/noah-isme/uni-registration-api/pkg/gateway"
)

type paymentRepository interface {
	Create(ctx context.Context, txn *models.PaymentTransaction) error
	FindByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error)
	UpdateStatus(ctx context.Context, id string, status models.PaymentStatus) error
	AppendCallbackLog(ctx context.Context, log *models.PaymentCallbackLog) error
}

type paymentTuitionRepository interface {
	FindByStudentAndSemester(ctx context.Context, studentID, semesterID string) (*models.TuitionDetail, error)
	MarkPaid(ctx context.Context, studentID, semesterID string, paidAt time.Time) error
}

type paymentGateway interface {
	BuildPayURL(order gateway.PaymentOrder) (string, error)
	VerifyCallback(params map[string]string) (*gateway.CallbackResult, error)
	QueryStatus(ctx context.Context, orderID string) (*gateway.CallbackResult, error)
}

type paymentMetrics interface {
	IncPaymentCallback(outcome string)
}

// InitiatePaymentRequest starts a payment for an unpaid tuition bill.
type InitiatePaymentRequest struct {
	StudentID  string `json:"student_id"`
	SemesterID string `json:"semester_id"`
	IPAddress  string `json:"-"`
}

// CallbackOutcome summarises how an IPN callback was handled.
type CallbackOutcome struct {
	OrderID string               `json:"order_id"`
	Status  models.PaymentStatus `json:"status"`
}

// PaymentService initiates gateway payments for tuition bills and reconciles
// their asynchronous callbacks.
type PaymentService struct {
	payments paymentRepository
	tuition  paymentTuitionRepository
	gateway  paymentGateway
	metrics  paymentMetrics
	provider string
	logger   *zap.Logger
	now      func() time.Time
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(payments paymentRepository, tuition paymentTuitionRepository, gw paymentGateway, metrics paymentMetrics, provider string, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if provider == "" {
		provider = "vnpay"
	}
	return &PaymentService{
		payments: payments,
		tuition:  tuition,
		gateway:  gw,
		metrics:  metrics,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// Initiate creates a pending transaction for the student's unpaid tuition
// bill and returns the hosted payment URL.
func (s *PaymentService) Initiate(ctx context.Context, req InitiatePaymentRequest) (*models.PaymentTransaction, error) {
	if req.StudentID == "" || req.SemesterID == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingParams, "student_id and semester_id are required")
	}

	bill, err := s.tuition.FindByStudentAndSemester(ctx, req.StudentID, req.SemesterID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.ErrTuitionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tuition record")
	}
	if bill.Status == models.TuitionStatusPaid {
		return nil, appErrors.ErrTuitionAlreadyPaid
	}
	if bill.Total <= 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "tuition total must be positive")
	}

	orderID := uuid.NewString()
	payURL, err := s.gateway.BuildPayURL(gateway.PaymentOrder{
		OrderID:   orderID,
		Amount:    bill.Total,
		OrderInfo: fmt.Sprintf("tuition %s %s", req.StudentID, req.SemesterID),
		IPAddress: req.IPAddress,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build payment url")
	}

	txn := &models.PaymentTransaction{
		OrderID:    orderID,
		StudentID:  req.StudentID,
		SemesterID: req.SemesterID,
		Amount:     bill.Total,
		Provider:   s.provider,
		PayURL:     payURL,
	}
	if err := s.payments.Create(ctx, txn); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payment transaction")
	}

	s.logger.Info("payment initiated",
		zap.String("order_id", orderID),
		zap.String("student_id", req.StudentID),
		zap.Float64("amount", bill.Total))
	return txn, nil
}

// ProcessCallback handles one IPN callback. The raw payload is appended to
// the audit log before any validation so every callback survives, including
// forged or malformed ones.
func (s *PaymentService) ProcessCallback(ctx context.Context, params map[string]string) (*CallbackOutcome, error) {
	payload, _ := json.Marshal(params)
	logEntry := &models.PaymentCallbackLog{
		OrderID:        params["vnp_TxnRef"],
		Provider:       s.provider,
		ExternalStatus: params["vnp_ResponseCode"],
		Payload:        payload,
	}
	if err := s.payments.AppendCallbackLog(ctx, logEntry); err != nil {
		s.logger.Error("failed to append payment callback log", zap.Error(err))
	}

	result, err := s.gateway.VerifyCallback(params)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncPaymentCallback("invalid_signature")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "callback verification failed")
	}

	txn, err := s.payments.FindByOrderID(ctx, result.OrderID)
	if err != nil {
		if isNoRows(err) {
			if s.metrics != nil {
				s.metrics.IncPaymentCallback("unknown_order")
			}
			return nil, appErrors.Clone(appErrors.ErrTransactionNotFound, fmt.Sprintf("unknown order %s", result.OrderID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transaction")
	}

	status := models.PaymentStatusFailed
	if result.Success {
		status = models.PaymentStatusSuccess
	}
	if err := s.payments.UpdateStatus(ctx, txn.ID, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update transaction status")
	}

	if result.Success {
		if err := s.tuition.MarkPaid(ctx, txn.StudentID, txn.SemesterID, s.now().UTC()); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark tuition paid")
		}
	}
	if s.metrics != nil {
		s.metrics.IncPaymentCallback(string(status))
	}

	s.logger.Info("payment callback processed",
		zap.String("order_id", result.OrderID),
		zap.String("status", string(status)),
		zap.String("response_code", result.ResponseCode))
	return &CallbackOutcome{OrderID: result.OrderID, Status: status}, nil
}

// QueryStatus polls the gateway for a transaction and reconciles local state
// when the gateway reports success for a still-pending transaction.
func (s *PaymentService) QueryStatus(ctx context.Context, orderID string) (*models.PaymentTransaction, error) {
	if orderID == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingParams, "orderId is required")
	}

	txn, err := s.payments.FindByOrderID(ctx, orderID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.ErrTransactionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transaction")
	}
	if txn.Status != models.PaymentStatusPending {
		return txn, nil
	}

	result, err := s.gateway.QueryStatus(ctx, orderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query gateway")
	}
	if result.Success {
		if err := s.payments.UpdateStatus(ctx, txn.ID, models.PaymentStatusSuccess); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update transaction status")
		}
		if err := s.tuition.MarkPaid(ctx, txn.StudentID, txn.SemesterID, s.now().UTC()); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark tuition paid")
		}
		txn.Status = models.PaymentStatusSuccess
	}
	return txn, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-registration-api/internal/models"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
	"github.com/noah-isme/uni-registration-api/pkg/gateway"
)

type mockPaymentRepo struct {
	txns          map[string]*models.PaymentTransaction
	created       []*models.PaymentTransaction
	callbackLogs  []*models.PaymentCallbackLog
	statusUpdates map[string]models.PaymentStatus
	logErr        error
}

func (m *mockPaymentRepo) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	txn.ID = "txn-1"
	txn.Status = models.PaymentStatusPending
	m.created = append(m.created, txn)
	return nil
}

func (m *mockPaymentRepo) FindByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error) {
	if txn, ok := m.txns[orderID]; ok {
		cp := *txn
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPaymentRepo) UpdateStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	if m.statusUpdates == nil {
		m.statusUpdates = make(map[string]models.PaymentStatus)
	}
	m.statusUpdates[id] = status
	return nil
}

func (m *mockPaymentRepo) AppendCallbackLog(ctx context.Context, log *models.PaymentCallbackLog) error {
	m.callbackLogs = append(m.callbackLogs, log)
	return m.logErr
}

type mockPaymentTuition struct {
	bill       *models.TuitionDetail
	paidCalls  []string
	markPaidAt *time.Time
}

func (m *mockPaymentTuition) FindByStudentAndSemester(ctx context.Context, studentID, semesterID string) (*models.TuitionDetail, error) {
	if m.bill == nil {
		return nil, sql.ErrNoRows
	}
	return m.bill, nil
}

func (m *mockPaymentTuition) MarkPaid(ctx context.Context, studentID, semesterID string, paidAt time.Time) error {
	m.paidCalls = append(m.paidCalls, studentID+":"+semesterID)
	m.markPaidAt = &paidAt
	return nil
}

type mockGateway struct {
	payURL    string
	verify    *gateway.CallbackResult
	verifyErr error
	query     *gateway.CallbackResult
}

func (m *mockGateway) BuildPayURL(order gateway.PaymentOrder) (string, error) {
	return m.payURL, nil
}

func (m *mockGateway) VerifyCallback(params map[string]string) (*gateway.CallbackResult, error) {
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	return m.verify, nil
}

func (m *mockGateway) QueryStatus(ctx context.Context, orderID string) (*gateway.CallbackResult, error) {
	return m.query, nil
}

type mockPaymentMetrics struct {
	outcomes []string
}

func (m *mockPaymentMetrics) IncPaymentCallback(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

func unpaidBill() *models.TuitionDetail {
	return &models.TuitionDetail{TuitionRecord: models.TuitionRecord{
		ID:     "tui-1",
		Total:  3500000,
		Status: models.TuitionStatusUnpaid,
	}}
}

func TestPaymentServiceInitiate(t *testing.T) {
	repo := &mockPaymentRepo{}
	tuition := &mockPaymentTuition{bill: unpaidBill()}
	gw := &mockGateway{payURL: "https://pay.example.com/order"}
	svc := NewPaymentService(repo, tuition, gw, &mockPaymentMetrics{}, "vnpay", zap.NewNop())

	txn, err := svc.Initiate(context.Background(), InitiatePaymentRequest{StudentID: "st-1", SemesterID: "sem-1"})
	require.NoError(t, err)
	assert.Equal(t, 3500000.0, txn.Amount)
	assert.Equal(t, "vnpay", txn.Provider)
	assert.Equal(t, "https://pay.example.com/order", txn.PayURL)
	assert.NotEmpty(t, txn.OrderID)
	assert.Len(t, repo.created, 1)
}

func TestPaymentServiceInitiateAlreadyPaid(t *testing.T) {
	bill := unpaidBill()
	bill.Status = models.TuitionStatusPaid
	svc := NewPaymentService(&mockPaymentRepo{}, &mockPaymentTuition{bill: bill}, &mockGateway{}, &mockPaymentMetrics{}, "vnpay", zap.NewNop())

	_, err := svc.Initiate(context.Background(), InitiatePaymentRequest{StudentID: "st-1", SemesterID: "sem-1"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrTuitionAlreadyPaid.Code, appErr.Code)
}

func TestPaymentServiceCallbackSuccess(t *testing.T) {
	repo := &mockPaymentRepo{txns: map[string]*models.PaymentTransaction{
		"order-1": {ID: "txn-1", OrderID: "order-1", StudentID: "st-1", SemesterID: "sem-1", Status: models.PaymentStatusPending},
	}}
	tuition := &mockPaymentTuition{}
	gw := &mockGateway{verify: &gateway.CallbackResult{OrderID: "order-1", ResponseCode: "00", Success: true}}
	metrics := &mockPaymentMetrics{}
	svc := NewPaymentService(repo, tuition, gw, metrics, "vnpay", zap.NewNop())

	outcome, err := svc.ProcessCallback(context.Background(), map[string]string{
		"vnp_TxnRef":       "order-1",
		"vnp_ResponseCode": "00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, outcome.Status)
	assert.Equal(t, models.PaymentStatusSuccess, repo.statusUpdates["txn-1"])
	assert.Equal(t, []string{"st-1:sem-1"}, tuition.paidCalls)
	assert.Equal(t, []string{string(models.PaymentStatusSuccess)}, metrics.outcomes)
	require.Len(t, repo.callbackLogs, 1)
	assert.Equal(t, "order-1", repo.callbackLogs[0].OrderID)
}

func TestPaymentServiceCallbackInvalidSignatureStillLogged(t *testing.T) {
	repo := &mockPaymentRepo{}
	gw := &mockGateway{verifyErr: assert.AnError}
	metrics := &mockPaymentMetrics{}
	svc := NewPaymentService(repo, &mockPaymentTuition{}, gw, metrics, "vnpay", zap.NewNop())

	_, err := svc.ProcessCallback(context.Background(), map[string]string{
		"vnp_TxnRef":       "order-1",
		"vnp_ResponseCode": "97",
	})
	require.Error(t, err)
	require.Len(t, repo.callbackLogs, 1, "callback must be logged before verification")
	assert.Equal(t, "97", repo.callbackLogs[0].ExternalStatus)
	assert.Equal(t, []string{"invalid_signature"}, metrics.outcomes)
}

func TestPaymentServiceCallbackUnknownOrder(t *testing.T) {
	repo := &mockPaymentRepo{}
	gw := &mockGateway{verify: &gateway.CallbackResult{OrderID: "ghost", Success: true}}
	metrics := &mockPaymentMetrics{}
	svc := NewPaymentService(repo, &mockPaymentTuition{}, gw, metrics, "vnpay", zap.NewNop())

	_, err := svc.ProcessCallback(context.Background(), map[string]string{"vnp_TxnRef": "ghost"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrTransactionNotFound.Code, appErr.Code)
	assert.Equal(t, []string{"unknown_order"}, metrics.outcomes)
	assert.Len(t, repo.callbackLogs, 1)
}

func TestPaymentServiceCallbackFailureDoesNotMarkPaid(t *testing.T) {
	repo := &mockPaymentRepo{txns: map[string]*models.PaymentTransaction{
		"order-1": {ID: "txn-1", OrderID: "order-1", StudentID: "st-1", SemesterID: "sem-1", Status: models.PaymentStatusPending},
	}}
	tuition := &mockPaymentTuition{}
	gw := &mockGateway{verify: &gateway.CallbackResult{OrderID: "order-1", ResponseCode: "24", Success: false}}
	svc := NewPaymentService(repo, tuition, gw, &mockPaymentMetrics{}, "vnpay", zap.NewNop())

	outcome, err := svc.ProcessCallback(context.Background(), map[string]string{"vnp_TxnRef": "order-1"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, outcome.Status)
	assert.Empty(t, tuition.paidCalls)
}

func TestPaymentServiceQueryStatusReconcilesPending(t *testing.T) {
	repo := &mockPaymentRepo{txns: map[string]*models.PaymentTransaction{
		"order-1": {ID: "txn-1", OrderID: "order-1", StudentID: "st-1", SemesterID: "sem-1", Status: models.PaymentStatusPending},
	}}
	tuition := &mockPaymentTuition{}
	gw := &mockGateway{query: &gateway.CallbackResult{OrderID: "order-1", Success: true}}
	svc := NewPaymentService(repo, tuition, gw, &mockPaymentMetrics{}, "vnpay", zap.NewNop())

	txn, err := svc.QueryStatus(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, txn.Status)
	assert.Equal(t, []string{"st-1:sem-1"}, tuition.paidCalls)
}

func TestPaymentServiceQueryStatusSettledSkipsGateway(t *testing.T) {
	repo := &mockPaymentRepo{txns: map[string]*models.PaymentTransaction{
		"order-1": {ID: "txn-1", OrderID: "order-1", Status: models.PaymentStatusSuccess},
	}}
	tuition := &mockPaymentTuition{}
	svc := NewPaymentService(repo, tuition, &mockGateway{}, &mockPaymentMetrics{}, "vnpay", zap.NewNop())

	txn, err := svc.QueryStatus(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, txn.Status)
	assert.Empty(t, tuition.paidCalls)
}

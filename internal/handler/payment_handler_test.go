package handler

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-registration-api/internal/middleware"
	"github.com/noah-isme/uni-registration-api/internal/models"
	"github.com/noah-isme/uni-registration-api/internal/service"
	"github.com/noah-isme/uni-registration-api/pkg/gateway"
)

type paymentRepoMock struct {
	txns          map[string]*models.PaymentTransaction
	created       []*models.PaymentTransaction
	callbackLogs  []*models.PaymentCallbackLog
	statusUpdates map[string]models.PaymentStatus
}

func (m *paymentRepoMock) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	txn.ID = "txn-1"
	m.created = append(m.created, txn)
	return nil
}

func (m *paymentRepoMock) FindByOrderID(ctx context.Context, orderID string) (*models.PaymentTransaction, error) {
	if txn, ok := m.txns[orderID]; ok {
		cp := *txn
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *paymentRepoMock) UpdateStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	if m.statusUpdates == nil {
		m.statusUpdates = make(map[string]models.PaymentStatus)
	}
	m.statusUpdates[id] = status
	return nil
}

func (m *paymentRepoMock) AppendCallbackLog(ctx context.Context, log *models.PaymentCallbackLog) error {
	m.callbackLogs = append(m.callbackLogs, log)
	return nil
}

type paymentTuitionMock struct {
	bill      *models.TuitionDetail
	paidCalls []string
}

func (m *paymentTuitionMock) FindByStudentAndSemester(ctx context.Context, studentID, semesterID string) (*models.TuitionDetail, error) {
	if m.bill == nil {
		return nil, sql.ErrNoRows
	}
	return m.bill, nil
}

func (m *paymentTuitionMock) MarkPaid(ctx context.Context, studentID, semesterID string, paidAt time.Time) error {
	m.paidCalls = append(m.paidCalls, studentID+":"+semesterID)
	return nil
}

type paymentGatewayMock struct {
	payURL    string
	verify    *gateway.CallbackResult
	verifyErr error
}

func (m *paymentGatewayMock) BuildPayURL(order gateway.PaymentOrder) (string, error) {
	return m.payURL, nil
}

func (m *paymentGatewayMock) VerifyCallback(params map[string]string) (*gateway.CallbackResult, error) {
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	return m.verify, nil
}

func (m *paymentGatewayMock) QueryStatus(ctx context.Context, orderID string) (*gateway.CallbackResult, error) {
	return m.verify, nil
}

type paymentMetricsMock struct{}

func (paymentMetricsMock) IncPaymentCallback(outcome string) {}

func newPaymentHandler(repo *paymentRepoMock, tuition *paymentTuitionMock, gw *paymentGatewayMock) *PaymentHandler {
	svc := service.NewPaymentService(repo, tuition, gw, paymentMetricsMock{}, "vnpay", nil)
	return NewPaymentHandler(svc, nil)
}

func TestPaymentHandlerInitiate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &paymentRepoMock{}
	tuition := &paymentTuitionMock{bill: &models.TuitionDetail{TuitionRecord: models.TuitionRecord{
		ID:     "tui-1",
		Total:  3500000,
		Status: models.TuitionStatusUnpaid,
	}}}
	handler := newPaymentHandler(repo, tuition, &paymentGatewayMock{payURL: "https://pay.example.com"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payment", bytes.NewBufferString(`{"student_id":"st-0","semester_id":"sem-1"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent, StudentID: "st-9"})

	handler.Initiate(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "st-9", repo.created[0].StudentID, "student claims override the payload")
}

func TestPaymentHandlerInitiateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPaymentHandler(&paymentRepoMock{}, &paymentTuitionMock{}, &paymentGatewayMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payment", bytes.NewBufferString(`{"student_id":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Initiate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHandlerIPNSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &paymentRepoMock{txns: map[string]*models.PaymentTransaction{
		"order-1": {ID: "txn-1", OrderID: "order-1", StudentID: "st-1", SemesterID: "sem-1", Status: models.PaymentStatusPending},
	}}
	tuition := &paymentTuitionMock{}
	gw := &paymentGatewayMock{verify: &gateway.CallbackResult{OrderID: "order-1", ResponseCode: "00", Success: true}}
	handler := newPaymentHandler(repo, tuition, gw)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/payment/ipn?vnp_TxnRef=order-1&vnp_ResponseCode=00", nil)
	c.Request = req

	handler.IPN(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"RspCode":"00"`)
	assert.Equal(t, []string{"st-1:sem-1"}, tuition.paidCalls)
}

func TestPaymentHandlerIPNRejectedStillAnswers200(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &paymentRepoMock{}
	gw := &paymentGatewayMock{verifyErr: assert.AnError}
	handler := newPaymentHandler(repo, &paymentTuitionMock{}, gw)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/payment/ipn?vnp_TxnRef=order-1&vnp_ResponseCode=97", nil)
	c.Request = req

	handler.IPN(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"RspCode":"99"`)
	require.Len(t, repo.callbackLogs, 1, "payload is logged before verification")
}

func TestPaymentHandlerStatusNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPaymentHandler(&paymentRepoMock{}, &paymentTuitionMock{}, &paymentGatewayMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/payment/ghost", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "orderId", Value: "ghost"}}

	handler.Status(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

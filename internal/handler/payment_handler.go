package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-registration-api/internal/service"
	appErrors "github.com/noah-isme/uni-registration-api/pkg/errors"
	"github.com/noah-isme/uni-registration-api/pkg/response"
)

// PaymentHandler exposes payment endpoints.
type PaymentHandler struct {
	service *service.PaymentService
	logger  *zap.Logger
}

// NewPaymentHandler constructs a payment handler.
func NewPaymentHandler(svc *service.PaymentService, logger *zap.Logger) *PaymentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentHandler{service: svc, logger: logger}
}

// Initiate godoc
// @Summary Initiate a tuition payment
// @Tags Payment
// @Accept json
// @Produce json
// @Param payload body service.InitiatePaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payment [post]
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req service.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.StudentID != "" {
		req.StudentID = claims.StudentID
	}
	req.IPAddress = c.ClientIP()

	txn, err := h.service.Initiate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, txn)
}

// IPN godoc
// @Summary Gateway IPN callback
// @Description Receives the gateway server-to-server callback. Always answers 200 so the gateway stops retrying; failures are resolved from the audit log.
// @Tags Payment
// @Produce json
// @Success 200 {object} map[string]string
// @Router /payment/ipn [get]
func (h *PaymentHandler) IPN(c *gin.Context) {
	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	outcome, err := h.service.ProcessCallback(c.Request.Context(), params)
	if err != nil {
		// The gateway retries on any non-200; the callback log already holds
		// the payload, so acknowledge and move on.
		h.logger.Warn("payment callback rejected", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"RspCode": "99", "Message": "Unknown error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"RspCode": "00", "Message": "Confirm Success", "OrderId": outcome.OrderID})
}

// Status godoc
// @Summary Get payment transaction status
// @Tags Payment
// @Produce json
// @Param orderId path string true "Order ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payment/{orderId} [get]
func (h *PaymentHandler) Status(c *gin.Context) {
	txn, err := h.service.QueryStatus(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, txn, nil)
}

package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/uni-registration-api/pkg/config"
)

// Client talks to a VNPay-style hosted payment page. Requests carry an
// HMAC-SHA512 signature over the sorted query parameters.
type Client struct {
	cfg  config.PaymentConfig
	http *http.Client
	now  func() time.Time
}

// NewClient constructs a gateway client from payment configuration.
func NewClient(cfg config.PaymentConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
		now:  time.Now,
	}
}

// PaymentOrder describes one payment to be initiated.
type PaymentOrder struct {
	OrderID   string
	Amount    float64
	OrderInfo string
	IPAddress string
}

// CallbackResult is the verified outcome of an IPN callback.
type CallbackResult struct {
	OrderID      string
	ResponseCode string
	Amount       float64
	Success      bool
}

// BuildPayURL returns the signed hosted-payment URL for the order.
func (c *Client) BuildPayURL(order PaymentOrder) (string, error) {
	if order.OrderID == "" {
		return "", fmt.Errorf("order id required")
	}
	if order.Amount <= 0 {
		return "", fmt.Errorf("amount must be positive")
	}

	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    c.cfg.MerchantCode,
		"vnp_Amount":     strconv.FormatInt(int64(order.Amount*100), 10),
		"vnp_CurrCode":   c.cfg.Currency,
		"vnp_TxnRef":     order.OrderID,
		"vnp_OrderInfo":  order.OrderInfo,
		"vnp_OrderType":  "250000",
		"vnp_Locale":     c.cfg.Locale,
		"vnp_ReturnUrl":  c.cfg.ReturnURL,
		"vnp_IpAddr":     order.IPAddress,
		"vnp_CreateDate": c.now().Format("20060102150405"),
	}

	query := encodeSorted(params)
	signature := c.sign(query)

	return fmt.Sprintf("%s?%s&vnp_SecureHash=%s", c.cfg.GatewayURL, query, signature), nil
}

// VerifyCallback checks the IPN signature and extracts the outcome.
// Signature mismatch is an error; a non-zero response code is not.
func (c *Client) VerifyCallback(params map[string]string) (*CallbackResult, error) {
	received := params["vnp_SecureHash"]
	if received == "" {
		return nil, fmt.Errorf("callback missing signature")
	}

	unsigned := make(map[string]string, len(params))
	for k, v := range params {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		unsigned[k] = v
	}

	expected := c.sign(encodeSorted(unsigned))
	if !hmac.Equal([]byte(strings.ToLower(received)), []byte(expected)) {
		return nil, fmt.Errorf("callback signature mismatch")
	}

	amount := 0.0
	if raw := params["vnp_Amount"]; raw != "" {
		if cents, err := strconv.ParseInt(raw, 10, 64); err == nil {
			amount = float64(cents) / 100
		}
	}

	code := params["vnp_ResponseCode"]
	return &CallbackResult{
		OrderID:      params["vnp_TxnRef"],
		ResponseCode: code,
		Amount:       amount,
		Success:      code == "00",
	}, nil
}

// QueryStatus polls the gateway for the current state of a transaction.
func (c *Client) QueryStatus(ctx context.Context, orderID string) (*CallbackResult, error) {
	payload := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "querydr",
		"vnp_TmnCode":    c.cfg.MerchantCode,
		"vnp_TxnRef":     orderID,
		"vnp_CreateDate": c.now().Format("20060102150405"),
		"vnp_OrderInfo":  "status query",
		"vnp_IpAddr":     "127.0.0.1",
		"vnp_RequestId":  fmt.Sprintf("%d", c.now().UnixNano()),
		"vnp_TransDate":  c.now().Format("20060102150405"),
	}
	payload["vnp_SecureHash"] = c.sign(encodeSorted(payload))

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal query payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query gateway: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	var result struct {
		TxnRef       string `json:"vnp_TxnRef"`
		ResponseCode string `json:"vnp_ResponseCode"`
		Amount       string `json:"vnp_Amount"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}

	amount := 0.0
	if cents, err := strconv.ParseInt(result.Amount, 10, 64); err == nil {
		amount = float64(cents) / 100
	}

	return &CallbackResult{
		OrderID:      result.TxnRef,
		ResponseCode: result.ResponseCode,
		Amount:       amount,
		Success:      result.ResponseCode == "00",
	}, nil
}

func (c *Client) sign(query string) string {
	mac := hmac.New(sha512.New, []byte(c.cfg.HashSecret))
	_, _ = mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

func encodeSorted(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

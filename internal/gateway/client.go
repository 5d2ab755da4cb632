package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Order is a gateway-side payment intent.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// PaymentInfo is the gateway's authoritative view of a payment.
type PaymentInfo struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	Amount    int64     `json:"amount"`
	Method    string    `json:"method"`
	CreatedAt time.Time `json:"created_at"`
}

// PaymentStatusCaptured is the only status that counts as money moved.
const PaymentStatusCaptured = "captured"

type RefundResult struct {
	ID string `json:"id"`
}

// Client talks to the payment gateway. Amounts are in minor units.
type Client interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*PaymentInfo, error)
	Refund(ctx context.Context, paymentID string, amountMinor int64) (*RefundResult, error)
}

type HTTPClient struct {
	baseURL   string
	clientID  string
	secretKey string
	http      *http.Client
}

func NewHTTPClient(baseURL, clientID, secretKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		clientID:  clientID,
		secretKey: secretKey,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*Order, error) {
	body := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
	}

	var order Order
	if err := c.do(ctx, http.MethodPost, "/v1/orders", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *HTTPClient) FetchPayment(ctx context.Context, paymentID string) (*PaymentInfo, error) {
	var info PaymentInfo
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *HTTPClient) Refund(ctx context.Context, paymentID string, amountMinor int64) (*RefundResult, error) {
	body := map[string]interface{}{
		"amount": amountMinor,
	}

	var result RefundResult
	if err := c.do(ctx, http.MethodPost, "/v1/payments/"+paymentID+"/refund", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}

	for key, value := range c.requestHeaders(path, string(jsonBody)) {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		return json.Unmarshal(respBody, out)
	}
	return nil
}

// requestHeaders signs the request with the gateway's HMAC header
// scheme: the digest covers the body, the signature covers the client
// id, request id, timestamp, target path and digest.
func (c *HTTPClient) requestHeaders(path, jsonBody string) map[string]string {
	requestID := uuid.New().String()
	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05Z")

	hash := sha256.Sum256([]byte(jsonBody))
	digest := base64.StdEncoding.EncodeToString(hash[:])

	component := "Client-Id:" + c.clientID + "\n" +
		"Request-Id:" + requestID + "\n" +
		"Request-Timestamp:" + timestamp + "\n" +
		"Request-Target:" + path + "\n" +
		"Digest:" + digest

	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(component))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return map[string]string{
		"Client-Id":         c.clientID,
		"Request-Id":        requestID,
		"Request-Timestamp": timestamp,
		"Signature":         "HMACSHA256=" + signature,
		"Digest":            digest,
		"Content-Type":      "application/json",
	}
}

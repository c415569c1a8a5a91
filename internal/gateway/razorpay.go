package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"jaladhar/internal/config"

	"github.com/sirupsen/logrus"
)

var ErrUnavailable = errors.New("payment gateway unavailable")

// Order is a gateway payment intent for one phase amount.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// CapturedPayment is a settled payment the gateway reports against an order.
type CapturedPayment struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	Status  string `json:"status"`
}

// Client talks to the Razorpay orders API. It carries no retry logic of its
// own; errors surface to the payment coordinator, which owns retry policy.
type Client struct {
	cfg    config.RazorpayConfig
	http   *http.Client
	logger *logrus.Logger
}

func NewClient(cfg config.RazorpayConfig, logger *logrus.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// CreateOrder opens a gateway order for amount (paise). The receipt is the
// caller's idempotency key per (booking, phase); the gateway dedupes on it.
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error) {
	body, err := json.Marshal(map[string]any{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("receipt", receipt).Error("gateway order creation failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("gateway rejected order: status %d body %s", resp.StatusCode, raw)
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	c.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"amount":   order.Amount,
		"receipt":  receipt,
	}).Info("gateway order created")
	return &order, nil
}

// Sign computes the checkout signature over orderID|paymentID.
func (c *Client) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.KeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the expected signature and compares in
// constant time.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	expected := c.Sign(orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// FetchCapturedPayment asks the gateway whether an order was paid, returning
// the captured payment if one exists and nil otherwise. Used by the
// reconciliation sweep for clients that vanished after paying.
func (c *Client) FetchCapturedPayment(ctx context.Context, orderID string) (*CapturedPayment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/orders/"+orderID+"/payments", nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("gateway payments lookup failed: status %d body %s", resp.StatusCode, raw)
	}

	var payload struct {
		Count int               `json:"count"`
		Items []CapturedPayment `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode payments response: %w", err)
	}
	for i := range payload.Items {
		if payload.Items[i].Status == "captured" {
			return &payload.Items[i], nil
		}
	}
	return nil, nil
}

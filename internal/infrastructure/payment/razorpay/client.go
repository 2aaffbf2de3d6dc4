// Package razorpay adapts the Razorpay Orders API to the payment gateway port.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-fashion/internal/domain/payment"
)

const (
	DefaultBaseURL = "https://api.razorpay.com"
	defaultTimeout = 10 * time.Second
)

// Client talks to Razorpay over plain HTTPS with basic auth.
type Client struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewClient(keyID, keySecret string, opts ...Option) *Client {
	c := &Client{
		keyID:      keyID,
		keySecret:  keySecret,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ payment.Gateway = (*Client)(nil)

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID       string          `json:"id"`
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	Receipt  string          `json:"receipt"`
	Status   string          `json:"status"`
	Notes    json.RawMessage `json:"notes"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *Client) PublicKey() string { return c.keyID }

func (c *Client) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	if req.AmountMinor <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", payment.ErrGateway)
	}
	var resp orderResponse
	body := orderRequest{
		Amount:   req.AmountMinor,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	}
	if err := c.doRequest(ctx, http.MethodPost, "/v1/orders", body, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%w: create order: empty id in response", payment.ErrGateway)
	}
	return resp.toIntent(), nil
}

func (c *Client) FetchIntent(ctx context.Context, intentID string) (*payment.Intent, error) {
	if intentID == "" {
		return nil, fmt.Errorf("%w: intent id is required", payment.ErrGateway)
	}
	var resp orderResponse
	if err := c.doRequest(ctx, http.MethodGet, "/v1/orders/"+intentID, nil, &resp); err != nil {
		return nil, err
	}
	return resp.toIntent(), nil
}

func (c *Client) VerifySignature(intentID, paymentID, signature string) bool {
	return VerifySignature(c.keySecret, intentID, paymentID, signature)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: marshal request: %v", payment.ErrGateway, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", payment.ErrGateway, err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", payment.ErrGateway, method, path, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", payment.ErrGateway, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		if json.Unmarshal(respBytes, &apiErr) == nil && apiErr.Error.Description != "" {
			return fmt.Errorf("%w: razorpay API error (status %d): %s: %s",
				payment.ErrGateway, resp.StatusCode, apiErr.Error.Code, apiErr.Error.Description)
		}
		return fmt.Errorf("%w: razorpay API error (status %d): %s", payment.ErrGateway, resp.StatusCode, string(respBytes))
	}

	if out != nil {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", payment.ErrGateway, err)
		}
	}
	return nil
}

func (r orderResponse) toIntent() *payment.Intent {
	return &payment.Intent{
		ID:          r.ID,
		AmountMinor: r.Amount,
		Currency:    r.Currency,
		Receipt:     r.Receipt,
		Status:      r.Status,
		Notes:       decodeNotes(r.Notes),
	}
}

// Razorpay returns an empty array instead of an object when no notes were set.
func decodeNotes(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var notes map[string]string
	if err := json.Unmarshal(raw, &notes); err != nil {
		return nil
	}
	return notes
}

package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const razorpayBaseURL = "https://api.razorpay.com"

// RazorpayGateway talks to the Razorpay orders API with basic auth. A
// gateway constructed without credentials reports ErrGatewayUnavailable on
// every order, which callers surface as 503.
type RazorpayGateway struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{
		baseURL:   razorpayBaseURL,
		keyID:     keyID,
		keySecret: keySecret,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// WithBaseURL points the gateway at a different endpoint, for tests.
func (g *RazorpayGateway) WithBaseURL(u string) *RazorpayGateway {
	g.baseURL = u
	return g
}

func (g *RazorpayGateway) Configured() bool {
	return g.keyID != "" && g.keySecret != ""
}

type razorpayOrderRequest struct {
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, receipt string, amount decimal.Decimal, currency string) (*Order, error) {
	if !g.Configured() {
		return nil, ErrGatewayUnavailable
	}

	payload := razorpayOrderRequest{
		Amount:   amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Currency: currency,
		Receipt:  receipt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("create order: gateway returned %d: %s", resp.StatusCode, msg)
	}

	var out razorpayOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}

	return &Order{
		ID:       out.ID,
		Amount:   decimal.NewFromInt(out.Amount).Div(decimal.NewFromInt(100)),
		Currency: out.Currency,
		Receipt:  out.Receipt,
	}, nil
}

// VerifySignature checks the HMAC-SHA256 the checkout posts back:
// hex(hmac_sha256(order_id + "|" + payment_id, key_secret)).
func (g *RazorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	if !g.Configured() {
		return false
	}
	mac := hmac.New(sha256.New, []byte(g.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

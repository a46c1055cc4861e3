package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrGatewayUnavailable signals an unconfigured or unreachable payment
	// gateway. Bookings survive it: the invoice stays unapproved and the
	// caller falls back to cash or deferred payment.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// Order is the transient external payment order for one appointment. The
// authoritative record is the invoice and appointment state after
// verification, not the order itself.
type Order struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Receipt  string          `json:"receipt"`
}

// Gateway abstracts the external payment provider.
type Gateway interface {
	// CreateOrder registers a collectible order for the amount.
	CreateOrder(ctx context.Context, receipt string, amount decimal.Decimal, currency string) (*Order, error)

	// VerifySignature checks the checkout callback signature over
	// (orderID, paymentID).
	VerifySignature(orderID, paymentID, signature string) bool
}

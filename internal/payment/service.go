package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicdesk/scheduling/internal/appointment"
	"github.com/clinicdesk/scheduling/internal/billing"
)

const (
	EventOrderCreated    = "PAYMENT_ORDER_CREATED"
	EventPaymentVerified = "PAYMENT_VERIFIED"
	EventCashCollected   = "PAYMENT_CASH_COLLECTED"
)

var (
	ErrVerificationFailed = errors.New("payment verification failed")
	ErrAlreadyPaid        = errors.New("invoice is already paid")
	ErrOrderMismatch      = errors.New("order does not belong to this appointment")
)

// Coordinator drives the post-booking payment flows: at-most-once online
// collection with verify-then-approve, the cash path, and shareable payment
// links for deferred payment.
type Coordinator struct {
	gateway  Gateway
	invoices billing.Repository
	appts    appointment.Repository
	orders   OrderStore
	origin   string
	currency string
	log      *zap.Logger
}

func NewCoordinator(gateway Gateway, invoices billing.Repository, appts appointment.Repository,
	orders OrderStore, origin, currency string, log *zap.Logger) *Coordinator {
	return &Coordinator{
		gateway:  gateway,
		invoices: invoices,
		appts:    appts,
		orders:   orders,
		origin:   origin,
		currency: currency,
		log:      log,
	}
}

// CreateOrder issues (or reuses) the external order for an appointment's
// unapproved invoice. An order already in flight for the appointment is
// returned as-is, so retries and payment links reuse the same order.
func (c *Coordinator) CreateOrder(ctx context.Context, appointmentID uuid.UUID) (*Order, error) {
	inv, err := c.invoices.GetInvoiceByAppointmentID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if inv.Approved() {
		return nil, ErrAlreadyPaid
	}

	if cached, err := c.orders.ByAppointment(ctx, appointmentID); err == nil {
		return cached, nil
	} else if !errors.Is(err, ErrOrderNotFound) {
		return nil, err
	}

	order, err := c.gateway.CreateOrder(ctx, inv.Number, inv.Amount, c.currency)
	if err != nil {
		return nil, err
	}

	if err := c.orders.Save(ctx, appointmentID, order); err != nil {
		return nil, err
	}

	c.logEvent(ctx, appointmentID, EventOrderCreated, map[string]any{
		"order_id": order.ID,
		"amount":   order.Amount.String(),
		"currency": order.Currency,
	})

	return order, nil
}

// VerifyRequest is the triple the external checkout hands back, plus the
// appointment it pays for.
type VerifyRequest struct {
	OrderID       string
	PaymentID     string
	Signature     string
	AppointmentID uuid.UUID
}

// Verify checks the checkout signature and approves the invoice with method
// online. Verification is idempotent: re-verifying an approved invoice
// changes nothing and succeeds. A bad signature changes nothing and fails;
// the caller may retry, choose cash, or defer.
func (c *Coordinator) Verify(ctx context.Context, req VerifyRequest) (*billing.Invoice, error) {
	inv, err := c.invoices.GetInvoiceByAppointmentID(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if inv.Approved() {
		return inv, nil
	}

	if !c.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		return nil, ErrVerificationFailed
	}

	// The order must be the one issued for this appointment, when we still
	// have it. An expired cache entry does not block a valid signature.
	if apptID, _, err := c.orders.ByOrderID(ctx, req.OrderID); err == nil {
		if apptID != req.AppointmentID {
			return nil, ErrOrderMismatch
		}
	} else if !errors.Is(err, ErrOrderNotFound) {
		return nil, err
	}

	approved, err := c.invoices.ApproveInvoice(ctx, inv.ID, billing.MethodOnline)
	if err != nil {
		if errors.Is(err, billing.ErrAlreadyApproved) {
			return approved, nil
		}
		return nil, fmt.Errorf("approve invoice: %w", err)
	}

	c.logEvent(ctx, req.AppointmentID, EventPaymentVerified, map[string]any{
		"order_id":   req.OrderID,
		"payment_id": req.PaymentID,
		"invoice_id": inv.ID.String(),
	})

	return approved, nil
}

// CollectCash approves the invoice with method cash. No gateway call, no
// money movement; the appointment stays scheduled.
func (c *Coordinator) CollectCash(ctx context.Context, appointmentID uuid.UUID) (*billing.Invoice, error) {
	inv, err := c.invoices.GetInvoiceByAppointmentID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	approved, err := c.invoices.ApproveInvoice(ctx, inv.ID, billing.MethodCash)
	if err != nil {
		if errors.Is(err, billing.ErrAlreadyApproved) {
			if approved != nil && approved.PaymentMethod != nil && *approved.PaymentMethod == billing.MethodCash {
				return approved, nil
			}
			return nil, ErrAlreadyPaid
		}
		return nil, fmt.Errorf("approve invoice: %w", err)
	}

	c.logEvent(ctx, appointmentID, EventCashCollected, map[string]any{
		"invoice_id": inv.ID.String(),
	})

	return approved, nil
}

// PaymentLink returns the shareable URL that resumes the online flow for a
// deferred (unpaid) appointment, reissuing the order when none is cached.
func (c *Coordinator) PaymentLink(ctx context.Context, appointmentID uuid.UUID) (string, error) {
	order, err := c.CreateOrder(ctx, appointmentID)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("order_id", order.ID)
	q.Set("appointment_id", appointmentID.String())
	return c.origin + "/payment?" + q.Encode(), nil
}

func (c *Coordinator) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.log.Warn("failed to marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID
	ev := appointment.EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := c.appts.InsertEvent(ctx, ev); err != nil {
		c.log.Warn("failed to insert event log",
			zap.String("event", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err))
	}
}

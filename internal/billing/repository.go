package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrFeeNotFound     = errors.New("doctor fee not found")

	// ErrAlreadyApproved marks an approval attempt on an invoice that was
	// approved earlier. Callers decide whether that is an error or an
	// idempotent no-op.
	ErrAlreadyApproved = errors.New("invoice already approved")
)

// Repository contains all DB interactions for invoices and fees.
type Repository interface {
	GetInvoiceByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetInvoiceByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*Invoice, error)

	// ApproveInvoice performs the unapproved -> approved transition and
	// stamps the payment method. Returns ErrAlreadyApproved when the
	// invoice is no longer unapproved.
	ApproveInvoice(ctx context.Context, id uuid.UUID, method PaymentMethod) (*Invoice, error)

	FeeForDoctor(ctx context.Context, doctorID uuid.UUID) (decimal.Decimal, error)
	UpsertFee(ctx context.Context, fee *DoctorFee) error
}

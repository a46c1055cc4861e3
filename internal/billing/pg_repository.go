package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var method *string

	err := row.Scan(
		&inv.ID,
		&inv.Number,
		&inv.AppointmentID,
		&inv.PatientID,
		&inv.DoctorID,
		&inv.Amount,
		&inv.Status,
		&method,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}

	if method != nil {
		m := PaymentMethod(*method)
		inv.PaymentMethod = &m
	}
	return &inv, nil
}

const invoiceColumns = `id, number, appointment_id, patient_id, doctor_id, amount, status, payment_method, created_at, updated_at`

// InsertInvoiceTx creates the invoice row inside an existing transaction so
// appointment creation and invoice binding commit atomically. The invoice
// number is drawn from a DB sequence.
func InsertInvoiceTx(ctx context.Context, tx pgx.Tx, inv *Invoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO invoices (id, number, appointment_id, patient_id, doctor_id, amount, status, created_at, updated_at)
		VALUES ($1,
		        'INV-' || to_char(now(), 'YYYYMM') || '-' || lpad(nextval('invoice_number_seq')::text, 4, '0'),
		        $2, $3, $4, $5, 'unapproved', now(), now())
		RETURNING number, status, created_at, updated_at
	`, inv.ID, inv.AppointmentID, inv.PatientID, inv.DoctorID, inv.Amount)

	return row.Scan(&inv.Number, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
}

// Interface methods

func (r *PgRepository) GetInvoiceByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE id = $1
	`, id)
	return scanInvoice(row)
}

func (r *PgRepository) GetInvoiceByAppointmentID(ctx context.Context, appointmentID uuid.UUID) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE appointment_id = $1
	`, appointmentID)
	return scanInvoice(row)
}

func (r *PgRepository) ApproveInvoice(ctx context.Context, id uuid.UUID, method PaymentMethod) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE invoices
		SET status = 'approved',
		    payment_method = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'unapproved'
		RETURNING `+invoiceColumns+`
	`, id, method)

	inv, err := scanInvoice(row)
	if err == nil {
		return inv, nil
	}
	if !errors.Is(err, ErrInvoiceNotFound) {
		return nil, err
	}

	// Guarded update matched nothing: either missing or already approved.
	existing, getErr := r.GetInvoiceByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return existing, ErrAlreadyApproved
}

func (r *PgRepository) FeeForDoctor(ctx context.Context, doctorID uuid.UUID) (decimal.Decimal, error) {
	var amount decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT amount
		FROM doctor_fees
		WHERE doctor_id = $1
	`, doctorID).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrFeeNotFound
		}
		return decimal.Zero, err
	}
	return amount, nil
}

func (r *PgRepository) UpsertFee(ctx context.Context, fee *DoctorFee) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO doctor_fees (doctor_id, amount, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (doctor_id)
		DO UPDATE SET amount = EXCLUDED.amount, updated_at = now()
		RETURNING updated_at
	`, fee.DoctorID, fee.Amount)
	return row.Scan(&fee.UpdatedAt)
}

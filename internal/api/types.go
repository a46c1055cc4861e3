package api

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/clinicdesk/scheduling/internal/appointment"
	"github.com/clinicdesk/scheduling/internal/billing"
	"github.com/clinicdesk/scheduling/internal/payment"
	"github.com/clinicdesk/scheduling/internal/schedule"
)

var validate = validator.New()

const dateLayout = "2006-01-02"

// Requests

type CreateWeeklySlotRequest struct {
	DoctorID     string `json:"doctor_id" validate:"required,uuid"`
	DayOfWeek    int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
	SlotDuration int    `json:"slot_duration" validate:"required,gt=0"`
	Active       *bool  `json:"active"`
}

type BreakRequest struct {
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

type CreateExceptionRequest struct {
	DoctorID  string         `json:"doctor_id" validate:"required,uuid"`
	Date      string         `json:"date" validate:"required"`
	Type      string         `json:"type" validate:"required,oneof=unavailable custom_hours"`
	StartTime string         `json:"start_time"`
	EndTime   string         `json:"end_time"`
	Breaks    []BreakRequest `json:"breaks"`
}

type CreateAppointmentRequest struct {
	PatientID   string `json:"patient_id" validate:"required,uuid"`
	DoctorID    string `json:"doctor_id" validate:"required,uuid"`
	Type        string `json:"type" validate:"required"`
	Mode        string `json:"mode" validate:"omitempty,oneof=in_person virtual"`
	Date        string `json:"date" validate:"required"`
	Time        string `json:"time" validate:"required"`
	Duration    int    `json:"duration" validate:"omitempty,gt=0"`
	Priority    string `json:"priority" validate:"omitempty,oneof=normal high"`
	Reason      string `json:"reason" validate:"required"`
	Notes       string `json:"notes"`
	ForceCreate bool   `json:"force_create"`
}

type ConflictCheckRequest struct {
	DoctorID string `json:"doctor_id" validate:"required,uuid"`
	Date     string `json:"date" validate:"required"`
	Time     string `json:"time" validate:"required"`
	Duration int    `json:"duration" validate:"required,gt=0"`
}

type UpdateAppointmentRequest struct {
	Status      *string `json:"status" validate:"omitempty,oneof=scheduled confirmed in_progress completed cancelled no_show"`
	Date        *string `json:"date"`
	Time        *string `json:"time"`
	ForceCreate bool    `json:"force_create"`
}

type UpdateInvoiceRequest struct {
	Status        *string `json:"status" validate:"omitempty,oneof=approved"`
	PaymentMethod *string `json:"payment_method" validate:"omitempty,oneof=online cash"`
}

type CreateOrderRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
	AppointmentID     string `json:"appointment_id" validate:"required,uuid"`
}

// Responses

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type ConflictDetail struct {
	Time        string `json:"time"`
	EndTime     string `json:"end_time"`
	PatientName string `json:"patient_name"`
	Type        string `json:"type"`
	Duration    int    `json:"duration"`
}

func toConflictDetail(c schedule.Conflict) ConflictDetail {
	return ConflictDetail{
		Time:        schedule.FromMinutes(c.StartMinute),
		EndTime:     schedule.FromMinutes(c.EndMinute),
		PatientName: c.PatientName,
		Type:        c.Type,
		Duration:    c.Duration,
	}
}

type ConflictCheckResponse struct {
	HasConflicts bool             `json:"has_conflicts"`
	Conflicts    []ConflictDetail `json:"conflicts"`
}

type ConflictErrorResponse struct {
	Error     string           `json:"error"`
	Details   string           `json:"details"`
	Conflicts []ConflictDetail `json:"conflicts"`
}

type AppointmentResponse struct {
	ID           uuid.UUID `json:"id"`
	PatientID    uuid.UUID `json:"patient_id"`
	DoctorID     uuid.UUID `json:"doctor_id"`
	PatientName  string    `json:"patient_name,omitempty"`
	DoctorName   string    `json:"doctor_name,omitempty"`
	Type         string    `json:"type"`
	Mode         string    `json:"mode"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	TimeDisplay  string    `json:"time_display"`
	Duration     int       `json:"duration"`
	Priority     string    `json:"priority"`
	Reason       string    `json:"reason"`
	Notes        string    `json:"notes,omitempty"`
	Status       string    `json:"status"`
	ForceCreated bool      `json:"force_created,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           a.ID,
		PatientID:    a.PatientID,
		DoctorID:     a.DoctorID,
		Type:         a.Type,
		Mode:         string(a.Mode),
		Date:         a.Date.Format(dateLayout),
		Time:         schedule.FromMinutes(a.StartMinute),
		TimeDisplay:  schedule.Format12h(a.StartMinute),
		Duration:     a.Duration,
		Priority:     string(a.Priority),
		Reason:       a.Reason,
		Notes:        a.Notes,
		Status:       string(a.Status),
		ForceCreated: a.ForceCreated,
		CreatedAt:    a.CreatedAt,
	}
}

func toDetailResponse(d appointment.Detail) AppointmentResponse {
	resp := toAppointmentResponse(&d.Appointment)
	resp.PatientName = d.PatientName
	resp.DoctorName = d.DoctorName
	return resp
}

type WeeklySlotResponse struct {
	ID           uuid.UUID `json:"id"`
	DoctorID     uuid.UUID `json:"doctor_id"`
	DayOfWeek    int       `json:"day_of_week"`
	StartTime    string    `json:"start_time"`
	EndTime      string    `json:"end_time"`
	SlotDuration int       `json:"slot_duration"`
	Active       bool      `json:"active"`
}

func toWeeklySlotResponse(w schedule.WeeklySlot) WeeklySlotResponse {
	return WeeklySlotResponse{
		ID:           w.ID,
		DoctorID:     w.DoctorID,
		DayOfWeek:    w.DayOfWeek,
		StartTime:    schedule.FromMinutes(w.StartMinute),
		EndTime:      schedule.FromMinutes(w.EndMinute),
		SlotDuration: w.SlotDuration,
		Active:       w.Active,
	}
}

type BreakResponse struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type ExceptionResponse struct {
	ID        uuid.UUID       `json:"id"`
	DoctorID  uuid.UUID       `json:"doctor_id"`
	Date      string          `json:"date"`
	Type      string          `json:"type"`
	StartTime string          `json:"start_time,omitempty"`
	EndTime   string          `json:"end_time,omitempty"`
	Breaks    []BreakResponse `json:"breaks,omitempty"`
	Active    bool            `json:"active"`
}

func toExceptionResponse(e schedule.Exception) ExceptionResponse {
	resp := ExceptionResponse{
		ID:       e.ID,
		DoctorID: e.DoctorID,
		Date:     e.Date.Format(dateLayout),
		Type:     string(e.Type),
		Active:   e.Active,
	}
	if e.Type == schedule.ExceptionCustomHours {
		resp.StartTime = schedule.FromMinutes(e.StartMinute)
		resp.EndTime = schedule.FromMinutes(e.EndMinute)
		for _, b := range e.Breaks {
			resp.Breaks = append(resp.Breaks, BreakResponse{
				StartTime: schedule.FromMinutes(b.Start),
				EndTime:   schedule.FromMinutes(b.End),
			})
		}
	}
	return resp
}

type SlotResponse struct {
	Time    string `json:"time"`
	Display string `json:"display"`
}

type DaySlotsResponse struct {
	Date         string                `json:"date"`
	SlotDuration int                   `json:"slot_duration"`
	Slots        []SlotResponse        `json:"slots"`
	Availability []WeeklySlotResponse  `json:"availability"`
	Exceptions   []ExceptionResponse   `json:"exceptions"`
	Appointments []AppointmentResponse `json:"appointments"`
}

type InvoiceResponse struct {
	ID            uuid.UUID `json:"id"`
	Number        string    `json:"number"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	Amount        string    `json:"amount"`
	Status        string    `json:"status"`
	PaymentMethod *string   `json:"payment_method"`
	CreatedAt     time.Time `json:"created_at"`
}

func toInvoiceResponse(inv *billing.Invoice) InvoiceResponse {
	var method *string
	if inv.PaymentMethod != nil {
		m := string(*inv.PaymentMethod)
		method = &m
	}
	return InvoiceResponse{
		ID:            inv.ID,
		Number:        inv.Number,
		AppointmentID: inv.AppointmentID,
		PatientID:     inv.PatientID,
		DoctorID:      inv.DoctorID,
		Amount:        inv.Amount.String(),
		Status:        string(inv.Status),
		PaymentMethod: method,
		CreatedAt:     inv.CreatedAt,
	}
}

type BookingResponse struct {
	Appointment AppointmentResponse `json:"appointment"`
	Invoice     InvoiceResponse     `json:"invoice"`
}

type ListResponse struct {
	Items    []AppointmentResponse `json:"items"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

type FeesResponse struct {
	Fees struct {
		AppointmentFees string `json:"appointment_fees"`
	} `json:"fees"`
}

type OrderResponse struct {
	Order struct {
		ID       string `json:"id"`
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"order"`
}

func toOrderResponse(o *payment.Order) OrderResponse {
	var resp OrderResponse
	resp.Order.ID = o.ID
	resp.Order.Amount = o.Amount.String()
	resp.Order.Currency = o.Currency
	return resp
}

type PaymentLinkResponse struct {
	URL string `json:"url"`
}

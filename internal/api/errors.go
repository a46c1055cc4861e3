package api

import (
	"errors"
	"net/http"

	"github.com/clinicdesk/scheduling/internal/appointment"
	"github.com/clinicdesk/scheduling/internal/billing"
	"github.com/clinicdesk/scheduling/internal/payment"
	redisclient "github.com/clinicdesk/scheduling/internal/redis"
	"github.com/clinicdesk/scheduling/internal/schedule"
)

// handleServiceError maps domain errors onto the wire contract. Conflicts
// carry the structured list plus the legacy prose string in details.
func handleServiceError(w http.ResponseWriter, err error) {
	var vErr *appointment.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusBadRequest, "validation_error", vErr.Error())
		return
	}

	var cErr *appointment.ConflictError
	if errors.As(err, &cErr) {
		writeJSON(w, http.StatusConflict, ConflictErrorResponse{
			Error:     "appointment_conflict",
			Details:   cErr.Error(),
			Conflicts: []ConflictDetail{toConflictDetail(cErr.Conflict)},
		})
		return
	}

	switch {
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, billing.ErrInvoiceNotFound):
		writeError(w, http.StatusNotFound, "invoice_not_found", err.Error())
	case errors.Is(err, schedule.ErrWeeklySlotOverlap):
		writeError(w, http.StatusConflict, "availability_overlap", err.Error())
	case errors.Is(err, appointment.ErrDayBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "day_being_booked", "this day is currently being booked, please retry shortly")
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, billing.ErrAlreadyApproved),
		errors.Is(err, payment.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, "invoice_already_approved", err.Error())
	case errors.Is(err, payment.ErrGatewayUnavailable):
		writeError(w, http.StatusServiceUnavailable, "gateway_unavailable", "online payment is not configured; choose cash or pay later")
	case errors.Is(err, payment.ErrVerificationFailed),
		errors.Is(err, payment.ErrOrderMismatch):
		writeError(w, http.StatusBadRequest, "verification_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

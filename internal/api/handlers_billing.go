package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicdesk/scheduling/internal/billing"
	"github.com/clinicdesk/scheduling/internal/payment"
)

func doctorFeesHandler(repo billing.Repository, fallback string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		amount, err := repo.FeeForDoctor(r.Context(), doctorID)
		if err != nil {
			if !errors.Is(err, billing.ErrFeeNotFound) {
				handleServiceError(w, err)
				return
			}
			var resp FeesResponse
			resp.Fees.AppointmentFees = fallback
			writeJSON(w, http.StatusOK, resp)
			return
		}

		var resp FeesResponse
		resp.Fees.AppointmentFees = amount.String()
		writeJSON(w, http.StatusOK, resp)
	}
}

func getInvoiceHandler(repo billing.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appointmentID, err := uuid.Parse(r.URL.Query().Get("appointment_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
			return
		}

		inv, err := repo.GetInvoiceByAppointmentID(r.Context(), appointmentID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
	}
}

// updateInvoiceHandler accepts the constrained PATCH: the only reachable
// transition is approval with a method. Cash goes through the coordinator;
// online approval must come from payment verification, not this endpoint.
func updateInvoiceHandler(repo billing.Repository, payments *payment.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_invoice_id", "id must be a valid UUID")
			return
		}

		var req UpdateInvoiceRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		if req.Status == nil || req.PaymentMethod == nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "status and payment_method are required")
			return
		}
		if *req.PaymentMethod != string(billing.MethodCash) {
			writeError(w, http.StatusBadRequest, "invalid_payment_method", "online approval happens through payment verification")
			return
		}

		inv, err := repo.GetInvoiceByID(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		approved, err := payments.CollectCash(r.Context(), inv.AppointmentID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toInvoiceResponse(approved))
	}
}

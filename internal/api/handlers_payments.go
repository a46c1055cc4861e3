package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/clinicdesk/scheduling/internal/payment"
)

func createOrderHandler(payments *payment.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateOrderRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		appointmentID, _ := uuid.Parse(req.AppointmentID)

		order, err := payments.CreateOrder(r.Context(), appointmentID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toOrderResponse(order))
	}
}

func verifyPaymentHandler(payments *payment.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VerifyPaymentRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		appointmentID, _ := uuid.Parse(req.AppointmentID)

		inv, err := payments.Verify(r.Context(), payment.VerifyRequest{
			OrderID:       req.RazorpayOrderID,
			PaymentID:     req.RazorpayPaymentID,
			Signature:     req.RazorpaySignature,
			AppointmentID: appointmentID,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
	}
}

func paymentLinkHandler(payments *payment.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appointmentID, err := uuid.Parse(r.URL.Query().Get("appointment_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
			return
		}

		link, err := payments.PaymentLink(r.Context(), appointmentID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, PaymentLinkResponse{URL: link})
	}
}

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicdesk/scheduling/internal/appointment"
	"github.com/clinicdesk/scheduling/internal/schedule"
)

func createAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		patientID, _ := uuid.Parse(req.PatientID)
		doctorID, _ := uuid.Parse(req.DoctorID)

		date, err := parseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}
		start, err := schedule.ToMinutes(req.Time)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
			return
		}

		booking, err := svc.Book(r.Context(), appointment.BookingRequest{
			PatientID:   patientID,
			DoctorID:    doctorID,
			Type:        req.Type,
			Mode:        appointment.Mode(req.Mode),
			Date:        date,
			StartMinute: start,
			Duration:    req.Duration,
			Priority:    appointment.Priority(req.Priority),
			Reason:      req.Reason,
			Notes:       req.Notes,
			Force:       req.ForceCreate,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, BookingResponse{
			Appointment: toAppointmentResponse(booking.Appointment),
			Invoice:     toInvoiceResponse(booking.Invoice),
		})
	}
}

func checkConflictsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConflictCheckRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		doctorID, _ := uuid.Parse(req.DoctorID)

		date, err := parseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}
		start, err := schedule.ToMinutes(req.Time)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
			return
		}

		conflict, err := svc.CheckConflict(r.Context(), doctorID, date, start, req.Duration)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := ConflictCheckResponse{Conflicts: []ConflictDetail{}}
		if conflict != nil {
			resp.HasConflicts = true
			resp.Conflicts = append(resp.Conflicts, toConflictDetail(*conflict))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		query := appointment.ListQuery{
			Status:   appointment.Status(q.Get("status")),
			Type:     q.Get("type"),
			Priority: appointment.Priority(q.Get("priority")),
			Bucket:   appointment.DateBucket(q.Get("date_bucket")),
			Search:   q.Get("search"),
		}
		if v := q.Get("doctor_id"); v != "" {
			doctorID, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			query.DoctorID = &doctorID
		}
		query.Page, _ = strconv.Atoi(q.Get("page"))
		query.PageSize, _ = strconv.Atoi(q.Get("page_size"))

		page, err := svc.List(r.Context(), query)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := ListResponse{
			Items:    []AppointmentResponse{},
			Total:    page.Total,
			Page:     page.Page,
			PageSize: page.PageSize,
		}
		for _, d := range page.Items {
			resp.Items = append(resp.Items, toDetailResponse(d))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		detail, err := svc.Get(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDetailResponse(*detail))
	}
}

// updateAppointmentHandler covers both status transitions and rescheduling,
// matching the generic PATCH contract.
func updateAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req UpdateAppointmentRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		var updated *appointment.Appointment

		switch {
		case req.Date != nil && req.Time != nil:
			date, err := parseDate(*req.Date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
				return
			}
			start, err := schedule.ToMinutes(*req.Time)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
				return
			}
			updated, err = svc.Reschedule(r.Context(), id, date, start, req.ForceCreate)
			if err != nil {
				handleServiceError(w, err)
				return
			}
		case req.Status != nil:
			updated, err = svc.UpdateStatus(r.Context(), id, appointment.Status(*req.Status))
			if err != nil {
				handleServiceError(w, err)
				return
			}
		default:
			writeError(w, http.StatusBadRequest, "invalid_request_body", "provide status, or date and time")
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(updated))
	}
}

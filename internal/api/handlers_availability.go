package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/scheduling/internal/appointment"
	"github.com/clinicdesk/scheduling/internal/schedule"
)

func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD")
	}
	return t, nil
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("could not parse JSON body")
	}
	return validate.Struct(dst)
}

func daySlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(r.URL.Query().Get("doctor_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		date, err := parseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}

		duration := 0
		if d := r.URL.Query().Get("duration"); d != "" {
			if _, err := fmt.Sscanf(d, "%d", &duration); err != nil || duration <= 0 {
				writeError(w, http.StatusBadRequest, "invalid_duration", "duration must be a positive integer")
				return
			}
		}

		slots, err := svc.SlotsForDay(r.Context(), doctorID, date, duration)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := DaySlotsResponse{
			Date:         date.Format(dateLayout),
			SlotDuration: slots.SlotDuration,
			Slots:        []SlotResponse{},
			Availability: []WeeklySlotResponse{},
			Exceptions:   []ExceptionResponse{},
			Appointments: []AppointmentResponse{},
		}
		for _, start := range slots.Starts {
			resp.Slots = append(resp.Slots, SlotResponse{
				Time:    schedule.FromMinutes(start),
				Display: schedule.Format12h(start),
			})
		}
		for _, ws := range slots.Day.Weekly {
			resp.Availability = append(resp.Availability, toWeeklySlotResponse(ws))
		}
		if ex := slots.Day.Exception; ex != nil {
			resp.Exceptions = append(resp.Exceptions, toExceptionResponse(*ex))
		}
		for _, d := range slots.Appointments {
			resp.Appointments = append(resp.Appointments, toDetailResponse(d))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func createWeeklySlotHandler(repo schedule.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateWeeklySlotRequest
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		doctorID, _ := uuid.Parse(req.DoctorID)

		start, err := schedule.ToMinutes(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
			return
		}
		end, err := schedule.ToMinutes(req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
			return
		}

		active := true
		if req.Active != nil {
			active = *req.Active
		}

		slot := &schedule.WeeklySlot{
			DoctorID:     doctorID,
			DayOfWeek:    req.DayOfWeek,
			StartMinute:  start,
			EndMinute:    end,
			SlotDuration: req.SlotDuration,
			Active:       active,
		}
		if err := slot.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		if err := repo.CreateWeekly(r.Context(), slot); err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toWeeklySlotResponse(*slot))
	}
}

func createExceptionHandler(repo schedule.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateExceptionRequest
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

		ex := &schedule.Exception{
			DoctorID: doctorID,
			Date:     date,
			Type:     schedule.ExceptionType(req.Type),
			Active:   true,
		}

		if ex.Type == schedule.ExceptionCustomHours {
			if ex.StartMinute, err = schedule.ToMinutes(req.StartTime); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
				return
			}
			if ex.EndMinute, err = schedule.ToMinutes(req.EndTime); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
				return
			}
			for _, b := range req.Breaks {
				bs, err := schedule.ToMinutes(b.StartTime)
				if err != nil {
					writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
					return
				}
				be, err := schedule.ToMinutes(b.EndTime)
				if err != nil {
					writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
					return
				}
				ex.Breaks = append(ex.Breaks, schedule.Range{Start: bs, End: be})
			}
		}

		if err := ex.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		if err := repo.CreateException(r.Context(), ex); err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toExceptionResponse(*ex))
	}
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/grant-tracker/internal/application"
)

type registrationService interface {
	Register(ctx context.Context, params application.RegisterParams) error
	ListRegistrations(ctx context.Context, principal application.Principal, sessionID string, weekday *time.Weekday) ([]application.RegistrationView, error)
	CopyRegistrations(ctx context.Context, params application.CopyRegistrationsParams) ([]application.CopyResult, error)
	Unregister(ctx context.Context, principal application.Principal, studentSchoolYearID, dayScheduleID string) error
}

type RegistrationHandler struct {
	service   registrationService
	responder responder
}

func NewRegistrationHandler(service registrationService, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{service: service, responder: newResponder(logger)}
}

func (h *RegistrationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := PathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var weekday *time.Weekday
	if raw := strings.TrimSpace(r.URL.Query().Get("weekday")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < int(time.Sunday) || parsed > int(time.Saturday) {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("weekday must be a number between 0 (Sunday) and 6 (Saturday)"))
			return
		}
		day := time.Weekday(parsed)
		weekday = &day
	}

	principal, _ := PrincipalFromContext(r.Context())
	registrations, err := h.service.ListRegistrations(r.Context(), principal, sessionID, weekday)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRegistrationsResponse{
		Registrations: toRegistrationDTOs(registrations),
	})
}

func (h *RegistrationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := PathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	err := h.service.Register(r.Context(), application.RegisterParams{
		Principal:           principal,
		SessionID:           sessionID,
		StudentSchoolYearID: strings.TrimSpace(req.StudentSchoolYearID),
		DayScheduleIDs:      req.DayScheduleIDs,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, nil)
}

func (h *RegistrationHandler) Copy(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := PathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req copyRegistrationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	results, err := h.service.CopyRegistrations(r.Context(), application.CopyRegistrationsParams{
		Principal:            principal,
		FromSessionID:        sessionID,
		ToSessionID:          strings.TrimSpace(req.ToSessionID),
		StudentSchoolYearIDs: req.StudentSchoolYearIDs,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, copyRegistrationsResponse{
		Results: toCopyResultDTOs(results),
	})
}

func (h *RegistrationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	studentSchoolYearID := strings.TrimSpace(query.Get("studentSchoolYearId"))
	dayScheduleID := strings.TrimSpace(query.Get("dayScheduleId"))
	if studentSchoolYearID == "" || dayScheduleID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("studentSchoolYearId and dayScheduleId query parameters are required"))
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.Unregister(r.Context(), principal, studentSchoolYearID, dayScheduleID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type registerRequest struct {
	StudentSchoolYearID string   `json:"student_school_year_id"`
	DayScheduleIDs      []string `json:"day_schedule_ids"`
}

type copyRegistrationsRequest struct {
	ToSessionID string `json:"to_session_id"`
	// StudentSchoolYearIDs narrows the copy to the named students; empty
	// copies the whole roster.
	StudentSchoolYearIDs []string `json:"student_school_year_ids"`
}

type listRegistrationsResponse struct {
	Registrations []registrationDTO `json:"registrations"`
}

type registrationDTO struct {
	StudentSchoolYearID string        `json:"student_school_year_id"`
	StudentName         string        `json:"student_name"`
	DayScheduleID       string        `json:"day_schedule_id"`
	Weekday             int           `json:"weekday"`
	Intervals           []intervalDTO `json:"intervals"`
}

func toRegistrationDTOs(registrations []application.RegistrationView) []registrationDTO {
	if len(registrations) == 0 {
		return nil
	}
	out := make([]registrationDTO, 0, len(registrations))
	for _, registration := range registrations {
		dto := registrationDTO{
			StudentSchoolYearID: registration.StudentSchoolYearID,
			StudentName:         registration.StudentName,
			DayScheduleID:       registration.DayScheduleID,
			Weekday:             int(registration.Weekday),
		}
		for _, interval := range registration.Intervals {
			dto.Intervals = append(dto.Intervals, intervalDTO{
				ID:        interval.ID,
				StartTime: interval.Start.String(),
				EndTime:   interval.End.String(),
			})
		}
		out = append(out, dto)
	}
	return out
}

type copyRegistrationsResponse struct {
	Results []copyResultDTO `json:"results"`
}

type copyResultDTO struct {
	StudentSchoolYearID string   `json:"student_school_year_id"`
	StudentName         string   `json:"student_name"`
	Copied              bool     `json:"copied"`
	Conflicts           []string `json:"conflicts,omitempty"`
}

func toCopyResultDTOs(results []application.CopyResult) []copyResultDTO {
	if len(results) == 0 {
		return nil
	}
	out := make([]copyResultDTO, 0, len(results))
	for _, result := range results {
		out = append(out, copyResultDTO{
			StudentSchoolYearID: result.StudentSchoolYearID,
			StudentName:         result.StudentName,
			Copied:              result.Copied,
			Conflicts:           result.Conflicts,
		})
	}
	return out
}

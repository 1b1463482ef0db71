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
	"github.com/example/grant-tracker/internal/schedule"
)

type attendanceService interface {
	OpenDates(ctx context.Context, principal application.Principal, sessionID string, weekday time.Weekday) ([]schedule.Date, error)
	MissingAttendance(ctx context.Context, principal application.Principal, organizationYearID string) ([]application.MissingAttendanceView, error)
	SubmitAttendance(ctx context.Context, params application.SubmitAttendanceParams) (application.AttendanceView, error)
	GetAttendance(ctx context.Context, principal application.Principal, recordID string) (application.AttendanceView, error)
	ListAttendance(ctx context.Context, principal application.Principal, sessionID string) ([]application.AttendanceView, error)
	EditAttendance(ctx context.Context, params application.EditAttendanceParams) (application.AttendanceView, error)
	DeleteAttendance(ctx context.Context, principal application.Principal, recordID string) error
}

var errInvalidRecordID = errors.New("an attendance record id is required")

type AttendanceHandler struct {
	service   attendanceService
	responder responder
}

func NewAttendanceHandler(service attendanceService, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{service: service, responder: newResponder(logger)}
}

func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := PathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	records, err := h.service.ListAttendance(r.Context(), principal, sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAttendanceResponse{
		Records: toAttendanceDTOs(records),
	})
}

func (h *AttendanceHandler) OpenDates(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := PathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("weekday"))
	parsed, err := strconv.Atoi(raw)
	if raw == "" || err != nil || parsed < int(time.Sunday) || parsed > int(time.Saturday) {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("a weekday query parameter between 0 (Sunday) and 6 (Saturday) is required"))
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	dates, err := h.service.OpenDates(r.Context(), principal, sessionID, time.Weekday(parsed))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, openDatesResponse{Dates: formatDates(dates)})
}

func (h *AttendanceHandler) Missing(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	organizationYearID, ok := PathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(organizationYearID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidOrganizationYearID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	missing, err := h.service.MissingAttendance(r.Context(), principal, organizationYearID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, missingAttendanceResponse{
		Missing: toMissingAttendanceDTOs(missing),
	})
}

func (h *AttendanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := PathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req attendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	record, err := h.service.SubmitAttendance(r.Context(), application.SubmitAttendanceParams{
		Principal: principal,
		SessionID: sessionID,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toAttendanceDTO(record))
}

func (h *AttendanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	recordID, ok := PathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(recordID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRecordID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	record, err := h.service.GetAttendance(r.Context(), principal, recordID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAttendanceDTO(record))
}

func (h *AttendanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	recordID, ok := PathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(recordID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRecordID)
		return
	}

	var req attendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	record, err := h.service.EditAttendance(r.Context(), application.EditAttendanceParams{
		Principal: principal,
		RecordID:  recordID,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAttendanceDTO(record))
}

func (h *AttendanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	recordID, ok := PathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(recordID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRecordID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteAttendance(r.Context(), principal, recordID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type attendanceRequest struct {
	InstanceDate string                     `json:"instance_date"`
	Students     []studentAttendanceRequest `json:"students"`
}

type studentAttendanceRequest struct {
	StudentSchoolYearID string `json:"student_school_year_id"`
	TimesPresent        int    `json:"times_present"`
}

func (r attendanceRequest) toInput() application.AttendanceInput {
	input := application.AttendanceInput{InstanceDate: parseDate(r.InstanceDate)}
	for _, student := range r.Students {
		input.Students = append(input.Students, application.StudentAttendanceInput{
			StudentSchoolYearID: strings.TrimSpace(student.StudentSchoolYearID),
			TimesPresent:        student.TimesPresent,
		})
	}
	return input
}

type listAttendanceResponse struct {
	Records []attendanceDTO `json:"records"`
}

type attendanceDTO struct {
	ID           string                 `json:"id"`
	SessionID    string                 `json:"session_id"`
	InstanceDate string                 `json:"instance_date"`
	Students     []studentAttendanceDTO `json:"students"`
}

type studentAttendanceDTO struct {
	StudentSchoolYearID string `json:"student_school_year_id"`
	TimesPresent        int    `json:"times_present"`
}

func toAttendanceDTO(record application.AttendanceView) attendanceDTO {
	dto := attendanceDTO{
		ID:           record.ID,
		SessionID:    record.SessionID,
		InstanceDate: record.InstanceDate.String(),
	}
	for _, student := range record.Students {
		dto.Students = append(dto.Students, studentAttendanceDTO{
			StudentSchoolYearID: student.StudentSchoolYearID,
			TimesPresent:        student.TimesPresent,
		})
	}
	return dto
}

func toAttendanceDTOs(records []application.AttendanceView) []attendanceDTO {
	if len(records) == 0 {
		return nil
	}
	out := make([]attendanceDTO, 0, len(records))
	for _, record := range records {
		out = append(out, toAttendanceDTO(record))
	}
	return out
}

type openDatesResponse struct {
	Dates []string `json:"dates"`
}

func formatDates(dates []schedule.Date) []string {
	if len(dates) == 0 {
		return nil
	}
	out := make([]string, 0, len(dates))
	for _, date := range dates {
		out = append(out, date.String())
	}
	return out
}

type missingAttendanceResponse struct {
	Missing []missingAttendanceDTO `json:"missing"`
}

type missingAttendanceDTO struct {
	SessionID    string `json:"session_id"`
	SessionName  string `json:"session_name"`
	InstanceDate string `json:"instance_date"`
}

func toMissingAttendanceDTOs(missing []application.MissingAttendanceView) []missingAttendanceDTO {
	if len(missing) == 0 {
		return nil
	}
	out := make([]missingAttendanceDTO, 0, len(missing))
	for _, item := range missing {
		out = append(out, missingAttendanceDTO{
			SessionID:    item.SessionID,
			SessionName:  item.SessionName,
			InstanceDate: item.InstanceDate.String(),
		})
	}
	return out
}

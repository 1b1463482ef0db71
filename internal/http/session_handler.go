package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/grant-tracker/internal/application"
	"github.com/example/grant-tracker/internal/schedule"
)

var errInvalidSessionID = errors.New("a session id is required")

type sessionService interface {
	CreateSession(ctx context.Context, params application.CreateSessionParams) (application.SessionView, error)
	GetSession(ctx context.Context, principal application.Principal, sessionID string) (application.SessionView, error)
	ListSessions(ctx context.Context, principal application.Principal, organizationYearID string) ([]application.SessionView, error)
	UpdateSession(ctx context.Context, params application.UpdateSessionParams) (application.SessionView, error)
	DeleteSession(ctx context.Context, principal application.Principal, sessionID string) error
}

type SessionHandler struct {
	service   sessionService
	responder responder
}

func NewSessionHandler(service sessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{service: service, responder: newResponder(logger)}
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	organizationYearID := strings.TrimSpace(r.URL.Query().Get("organizationYearId"))
	if organizationYearID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("an organizationYearId query parameter is required"))
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	sessions, err := h.service.ListSessions(r.Context(), principal, organizationYearID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSessionsResponse{Sessions: toSessionDTOs(sessions)})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	session, err := h.service.GetSession(r.Context(), principal, sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(session))
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	session, err := h.service.CreateSession(r.Context(), application.CreateSessionParams{
		Principal:          principal,
		OrganizationYearID: strings.TrimSpace(req.OrganizationYearID),
		Input:              req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toSessionDTO(session))
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := PathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	session, err := h.service.UpdateSession(r.Context(), application.UpdateSessionParams{
		Principal: principal,
		SessionID: sessionID,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(session))
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.service.DeleteSession(r.Context(), principal, sessionID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type sessionRequest struct {
	OrganizationYearID string           `json:"organization_year_id"`
	Name               string           `json:"name"`
	FirstSessionDate   string           `json:"first_session_date"`
	LastSessionDate    string           `json:"last_session_date"`
	Recurring          bool             `json:"recurring"`
	Days               []daySlotRequest `json:"days"`
}

type daySlotRequest struct {
	Weekday   int               `json:"weekday"`
	Intervals []intervalRequest `json:"intervals"`
}

type intervalRequest struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (r sessionRequest) toInput() application.SessionInput {
	input := application.SessionInput{
		Name:             strings.TrimSpace(r.Name),
		FirstSessionDate: parseDate(r.FirstSessionDate),
		LastSessionDate:  parseDate(r.LastSessionDate),
		Recurring:        r.Recurring,
	}
	for _, day := range r.Days {
		dayInput := application.DayScheduleInput{Weekday: time.Weekday(day.Weekday)}
		for _, interval := range day.Intervals {
			dayInput.Intervals = append(dayInput.Intervals, application.IntervalInput{
				Start: parseTimeOfDay(interval.StartTime),
				End:   parseTimeOfDay(interval.EndTime),
			})
		}
		input.Days = append(input.Days, dayInput)
	}
	return input
}

// parseDate is lenient: malformed values become the zero date and are
// rejected by service validation with a field error.
func parseDate(value string) schedule.Date {
	date, err := schedule.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return schedule.Date{}
	}
	return date
}

func parseTimeOfDay(value string) schedule.TimeOfDay {
	t, err := schedule.ParseTimeOfDay(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return t
}

type listSessionsResponse struct {
	Sessions []sessionDTO `json:"sessions"`
}

type sessionDTO struct {
	ID                 string           `json:"id"`
	OrganizationYearID string           `json:"organization_year_id"`
	Name               string           `json:"name"`
	FirstSessionDate   string           `json:"first_session_date"`
	LastSessionDate    string           `json:"last_session_date"`
	Recurring          bool             `json:"recurring"`
	Days               []dayScheduleDTO `json:"days"`
}

type dayScheduleDTO struct {
	ID        string        `json:"id"`
	Weekday   int           `json:"weekday"`
	Intervals []intervalDTO `json:"intervals"`
}

type intervalDTO struct {
	ID        string `json:"id,omitempty"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func toSessionDTO(session application.SessionView) sessionDTO {
	dto := sessionDTO{
		ID:                 session.ID,
		OrganizationYearID: session.OrganizationYearID,
		Name:               session.Name,
		FirstSessionDate:   session.FirstSessionDate.String(),
		LastSessionDate:    session.LastSessionDate.String(),
		Recurring:          session.Recurring,
	}
	for _, day := range session.Days {
		dayDTO := dayScheduleDTO{ID: day.ID, Weekday: int(day.Weekday)}
		for _, interval := range day.Intervals {
			dayDTO.Intervals = append(dayDTO.Intervals, intervalDTO{
				ID:        interval.ID,
				StartTime: interval.Start.String(),
				EndTime:   interval.End.String(),
			})
		}
		dto.Days = append(dto.Days, dayDTO)
	}
	return dto
}

func toSessionDTOs(sessions []application.SessionView) []sessionDTO {
	if len(sessions) == 0 {
		return nil
	}
	out := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionDTO(session))
	}
	return out
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/grant-tracker/internal/application"
)

type organizationService interface {
	ListOrganizations(ctx context.Context, principal application.Principal) ([]application.OrganizationView, error)
	ListOrganizationYears(ctx context.Context, principal application.Principal, organizationID string) ([]application.OrganizationYearView, error)
	ListStudents(ctx context.Context, principal application.Principal, organizationYearID string) ([]application.StudentView, error)
	EnrollStudent(ctx context.Context, principal application.Principal, organizationYearID string, input application.StudentInput) (application.StudentView, error)
	ListBlackoutDates(ctx context.Context, principal application.Principal, organizationID string) ([]application.BlackoutView, error)
	AddBlackoutDate(ctx context.Context, principal application.Principal, organizationID string, input application.BlackoutInput) (application.BlackoutView, error)
	RemoveBlackoutDate(ctx context.Context, principal application.Principal, organizationID, blackoutID string) error
	ListSessionBlackoutDates(ctx context.Context, principal application.Principal, sessionID string) ([]application.BlackoutView, error)
	AddSessionBlackoutDate(ctx context.Context, principal application.Principal, sessionID string, input application.BlackoutInput) (application.BlackoutView, error)
	RemoveSessionBlackoutDate(ctx context.Context, principal application.Principal, sessionID, blackoutID string) error
}

var (
	errInvalidOrganizationID     = errors.New("an organization id is required")
	errInvalidOrganizationYearID = errors.New("an organization year id is required")
	errInvalidBlackoutID         = errors.New("a blackout date id is required")
)

type OrganizationHandler struct {
	service   organizationService
	responder responder
}

func NewOrganizationHandler(service organizationService, logger *slog.Logger) *OrganizationHandler {
	return &OrganizationHandler{service: service, responder: newResponder(logger)}
}

func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	organizations, err := h.service.ListOrganizations(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listOrganizationsResponse{
		Organizations: toOrganizationDTOs(organizations),
	})
}

func (h *OrganizationHandler) ListYears(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	organizationID, ok := PathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(organizationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidOrganizationID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	years, err := h.service.ListOrganizationYears(r.Context(), principal, organizationID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listOrganizationYearsResponse{
		Years: toOrganizationYearDTOs(years),
	})
}

func (h *OrganizationHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
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
	students, err := h.service.ListStudents(r.Context(), principal, organizationYearID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listStudentsResponse{
		Students: toStudentDTOs(students),
	})
}

func (h *OrganizationHandler) EnrollStudent(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	organizationYearID, ok := PathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(organizationYearID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidOrganizationYearID)
		return
	}

	var req studentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	student, err := h.service.EnrollStudent(r.Context(), principal, organizationYearID, application.StudentInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		MatricNumber: req.MatricNumber,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toStudentDTO(student))
}

func (h *OrganizationHandler) ListBlackoutDates(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	organizationID, ok := PathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(organizationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidOrganizationID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	blackouts, err := h.service.ListBlackoutDates(r.Context(), principal, organizationID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBlackoutDatesResponse{
		BlackoutDates: toBlackoutDTOs(blackouts),
	})
}

func (h *OrganizationHandler) AddBlackoutDate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	organizationID, ok := PathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(organizationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidOrganizationID)
		return
	}

	var req blackoutDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	blackout, err := h.service.AddBlackoutDate(r.Context(), principal, organizationID, application.BlackoutInput{
		Date: parseDate(req.Date),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toBlackoutDTO(blackout))
}

func (h *OrganizationHandler) RemoveBlackoutDate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	organizationID, ok := PathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(organizationID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidOrganizationID)
		return
	}
	blackoutID, ok := SubPathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(blackoutID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBlackoutID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.RemoveBlackoutDate(r.Context(), principal, organizationID, blackoutID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *OrganizationHandler) ListSessionBlackoutDates(w http.ResponseWriter, r *http.Request) {
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
	blackouts, err := h.service.ListSessionBlackoutDates(r.Context(), principal, sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBlackoutDatesResponse{
		BlackoutDates: toBlackoutDTOs(blackouts),
	})
}

func (h *OrganizationHandler) AddSessionBlackoutDate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := PathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req blackoutDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	blackout, err := h.service.AddSessionBlackoutDate(r.Context(), principal, sessionID, application.BlackoutInput{
		Date: parseDate(req.Date),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toBlackoutDTO(blackout))
}

func (h *OrganizationHandler) RemoveSessionBlackoutDate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := PathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}
	blackoutID, ok := SubPathIDFromContext(r.Context())
	if !ok || strings.TrimSpace(blackoutID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBlackoutID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.RemoveSessionBlackoutDate(r.Context(), principal, sessionID, blackoutID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type studentRequest struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	MatricNumber string `json:"matric_number"`
}

type blackoutDateRequest struct {
	Date string `json:"date"`
}

type listOrganizationsResponse struct {
	Organizations []organizationDTO `json:"organizations"`
}

type organizationDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toOrganizationDTOs(organizations []application.OrganizationView) []organizationDTO {
	if len(organizations) == 0 {
		return nil
	}
	out := make([]organizationDTO, 0, len(organizations))
	for _, organization := range organizations {
		out = append(out, organizationDTO{ID: organization.ID, Name: organization.Name})
	}
	return out
}

type listOrganizationYearsResponse struct {
	Years []organizationYearDTO `json:"years"`
}

type organizationYearDTO struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Label          string `json:"label"`
}

func toOrganizationYearDTOs(years []application.OrganizationYearView) []organizationYearDTO {
	if len(years) == 0 {
		return nil
	}
	out := make([]organizationYearDTO, 0, len(years))
	for _, year := range years {
		out = append(out, organizationYearDTO{
			ID:             year.ID,
			OrganizationID: year.OrganizationID,
			Label:          year.Label,
		})
	}
	return out
}

type listStudentsResponse struct {
	Students []studentDTO `json:"students"`
}

type studentDTO struct {
	ID           string `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	MatricNumber string `json:"matric_number"`
}

func toStudentDTO(student application.StudentView) studentDTO {
	return studentDTO{
		ID:           student.ID,
		FirstName:    student.FirstName,
		LastName:     student.LastName,
		MatricNumber: student.MatricNumber,
	}
}

func toStudentDTOs(students []application.StudentView) []studentDTO {
	if len(students) == 0 {
		return nil
	}
	out := make([]studentDTO, 0, len(students))
	for _, student := range students {
		out = append(out, toStudentDTO(student))
	}
	return out
}

type listBlackoutDatesResponse struct {
	BlackoutDates []blackoutDateDTO `json:"blackout_dates"`
}

type blackoutDateDTO struct {
	ID   string `json:"id"`
	Date string `json:"date"`
}

func toBlackoutDTO(blackout application.BlackoutView) blackoutDateDTO {
	return blackoutDateDTO{ID: blackout.ID, Date: blackout.Date.String()}
}

func toBlackoutDTOs(blackouts []application.BlackoutView) []blackoutDateDTO {
	if len(blackouts) == 0 {
		return nil
	}
	out := make([]blackoutDateDTO, 0, len(blackouts))
	for _, blackout := range blackouts {
		out = append(out, toBlackoutDTO(blackout))
	}
	return out
}

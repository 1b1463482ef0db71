package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/grant-tracker/internal/application"
)

type userService interface {
	CreateUser(ctx context.Context, params application.CreateUserParams) (application.User, error)
}

type UserHandler struct {
	service   userService
	responder responder
	logger    *slog.Logger
}

func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode user request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)

	user, err := h.service.CreateUser(r.Context(), application.CreateUserParams{
		Principal:       principal,
		Email:           strings.TrimSpace(req.Email),
		DisplayName:     strings.TrimSpace(req.DisplayName),
		Password:        req.Password,
		IsAdmin:         req.IsAdmin,
		OrganizationIDs: req.OrganizationIDs,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "user creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("user_id", user.ID).InfoContext(r.Context(), "user created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, userResponse{User: toUserDTO(user)})
}

type userRequest struct {
	Email           string   `json:"email"`
	DisplayName     string   `json:"display_name"`
	Password        string   `json:"password"`
	IsAdmin         bool     `json:"is_admin"`
	OrganizationIDs []string `json:"organization_ids"`
}

type userResponse struct {
	User userDTO `json:"user"`
}

type userDTO struct {
	ID              string   `json:"id"`
	Email           string   `json:"email"`
	DisplayName     string   `json:"display_name"`
	IsAdmin         bool     `json:"is_admin"`
	OrganizationIDs []string `json:"organization_ids,omitempty"`
}

func toUserDTO(user application.User) userDTO {
	return userDTO{
		ID:              user.ID,
		Email:           user.Email,
		DisplayName:     user.DisplayName,
		IsAdmin:         user.IsAdmin,
		OrganizationIDs: user.OrganizationIDs,
	}
}

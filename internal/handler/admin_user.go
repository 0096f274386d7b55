package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cardhaven/bankcards/internal/domain"
	"github.com/cardhaven/bankcards/internal/logging"
)

type adminUserService interface {
	Create(ctx context.Context, name, email, password string) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, int, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role domain.UserRole) (*domain.User, error)
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*domain.User, error)
	ResetPassword(ctx context.Context, id uuid.UUID, newPassword string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type AdminUserHandler struct {
	users adminUserService
}

func NewAdminUserHandler(users adminUserService) *AdminUserHandler {
	return &AdminUserHandler{users: users}
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r createUserRequest) Validate() []FieldError {
	var errs []FieldError

	if r.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "required"})
	}

	if r.Email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "required"})
	} else if !strings.Contains(r.Email, "@") {
		errs = append(errs, FieldError{Field: "email", Message: "must be a valid email address"})
	}

	if len(r.Password) < 8 {
		errs = append(errs, FieldError{Field: "password", Message: "must be at least 8 characters"})
	}

	return errs
}

func (h *AdminUserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	user, err := h.users.Create(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		logging.FromContext(r.Context()).Warn("user creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toUserDTO(user))
}

type userListResponse struct {
	Users []userDTO `json:"users"`
	Page  pageMeta  `json:"page"`
}

func (h *AdminUserHandler) List(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	users, total, err := h.users.List(r.Context(), page.Limit, page.Offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]userDTO, 0, len(users))
	for i := range users {
		dtos = append(dtos, toUserDTO(&users[i]))
	}

	RespondSuccess(w, http.StatusOK, userListResponse{
		Users: dtos,
		Page:  pageMeta{Total: total, Limit: page.Limit, Offset: page.Offset},
	})
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (h *AdminUserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	userID, appErr := idFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	role := domain.UserRole(req.Role)
	if !role.IsValid() {
		RespondValidationError(w, []FieldError{{Field: "role", Message: "must be USER or ADMIN"}})
		return
	}

	user, err := h.users.UpdateRole(r.Context(), userID, role)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toUserDTO(user))
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *AdminUserHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	userID, appErr := idFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req setEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if req.Enabled == nil {
		RespondValidationError(w, []FieldError{{Field: "enabled", Message: "required"}})
		return
	}

	user, err := h.users.SetEnabled(r.Context(), userID, *req.Enabled)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toUserDTO(user))
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (h *AdminUserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	userID, appErr := idFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if len(req.Password) < 8 {
		RespondValidationError(w, []FieldError{{Field: "password", Message: "must be at least 8 characters"}})
		return
	}

	if err := h.users.ResetPassword(r.Context(), userID, req.Password); err != nil {
		RespondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminUserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, appErr := idFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if err := h.users.Delete(r.Context(), userID); err != nil {
		logging.FromContext(r.Context()).Warn("user deletion failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

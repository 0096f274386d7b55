package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cardhaven/bankcards/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Error:   nil,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Data:    nil,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

func RespondDomainError(w http.ResponseWriter, err error) {
	var appErr *AppError

	switch {
	case errors.Is(err, domain.ErrCardNotFound):
		appErr = ErrCardNotFound
	case errors.Is(err, domain.ErrUserNotFound):
		appErr = ErrUserNotFound
	case errors.Is(err, domain.ErrRequestNotFound):
		appErr = ErrRequestNotFound
	case errors.Is(err, domain.ErrNotFound):
		appErr = ErrResourceNotFound
	case errors.Is(err, domain.ErrCardAccessDenied):
		appErr = ErrCardAccessDenied
	case errors.Is(err, domain.ErrInvalidPan):
		appErr = ErrInvalidCardNumber
	case errors.Is(err, domain.ErrInvalidLast4):
		appErr = ErrInvalidLast4
	case errors.Is(err, domain.ErrInvalidAmount):
		appErr = ErrInvalidAmount
	case errors.Is(err, domain.ErrAmountPrecision):
		appErr = ErrAmountPrecision
	case errors.Is(err, domain.ErrInsufficientFunds):
		appErr = ErrInsufficientFunds
	case errors.Is(err, domain.ErrSameCard):
		appErr = ErrSameCard
	case errors.Is(err, domain.ErrCannotActivateExpired):
		appErr = ErrActivateExpired
	case errors.Is(err, domain.ErrCardBlocked):
		appErr = ErrCardBlocked
	case errors.Is(err, domain.ErrCardExpired):
		appErr = ErrCardExpired
	case errors.Is(err, domain.ErrDuplicateCardNumber):
		appErr = ErrDuplicateCardNumber
	case errors.Is(err, domain.ErrDuplicateBlockRequest):
		appErr = ErrDuplicateBlockRequest
	case errors.Is(err, domain.ErrRequestNotWaiting):
		appErr = ErrRequestNotWaiting
	case errors.Is(err, domain.ErrEmailExists):
		appErr = ErrEmailExists
	case errors.Is(err, domain.ErrUserHasCards):
		appErr = ErrUserHasCards
	case errors.Is(err, domain.ErrUserDisabled):
		appErr = ErrUserDisabled
	case errors.Is(err, domain.ErrInvalidCredentials):
		appErr = ErrInvalidCredentials
	default:
		slog.Error("unhandled domain error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr, nil)
}

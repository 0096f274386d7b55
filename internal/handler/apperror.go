package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrUserDisabled       = &AppError{http.StatusUnauthorized, "USER_DISABLED", "User account is disabled"}
	ErrForbidden          = &AppError{http.StatusForbidden, "FORBIDDEN", "Insufficient permissions"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrCardNotFound    = &AppError{http.StatusNotFound, "CARD_NOT_FOUND", "Card not found"}
	ErrUserNotFound    = &AppError{http.StatusNotFound, "USER_NOT_FOUND", "User not found"}
	ErrRequestNotFound = &AppError{http.StatusNotFound, "BLOCK_REQUEST_NOT_FOUND", "Block request not found"}

	ErrCardAccessDenied = &AppError{http.StatusForbidden, "CARD_ACCESS_DENIED", "Card belongs to another user"}

	ErrInvalidCardNumber = &AppError{http.StatusBadRequest, "INVALID_CARD_NUMBER", "Card number must be 13 to 19 digits"}
	ErrInvalidLast4      = &AppError{http.StatusBadRequest, "INVALID_LAST4", "Last4 filter must be exactly 4 digits"}
	ErrInvalidAmount     = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrAmountPrecision   = &AppError{http.StatusBadRequest, "AMOUNT_PRECISION", "Amount must have at most two decimal places"}

	ErrInsufficientFunds = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"}
	ErrSameCard          = &AppError{http.StatusUnprocessableEntity, "SAME_CARD_TRANSFER", "Cannot transfer to the same card"}
	ErrCardBlocked       = &AppError{http.StatusUnprocessableEntity, "CARD_BLOCKED", "Card is blocked"}
	ErrCardExpired       = &AppError{http.StatusUnprocessableEntity, "CARD_EXPIRED", "Card is expired"}
	ErrActivateExpired   = &AppError{http.StatusUnprocessableEntity, "CANNOT_ACTIVATE_EXPIRED", "Cannot activate an expired card"}

	ErrDuplicateCardNumber   = &AppError{http.StatusConflict, "DUPLICATE_CARD_NUMBER", "Card number already registered"}
	ErrDuplicateBlockRequest = &AppError{http.StatusConflict, "DUPLICATE_BLOCK_REQUEST", "A pending block request already exists for this card"}
	ErrRequestNotWaiting     = &AppError{http.StatusConflict, "BLOCK_REQUEST_RESOLVED", "Block request has already been resolved"}
	ErrEmailExists           = &AppError{http.StatusConflict, "EMAIL_ALREADY_EXISTS", "Email is already registered"}
	ErrUserHasCards          = &AppError{http.StatusConflict, "USER_HAS_CARDS", "User still owns cards"}
)

package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrCardNotFound    = errors.New("card not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrRequestNotFound = errors.New("block request not found")

	ErrCardAccessDenied = errors.New("card does not belong to user")

	ErrSameCard        = errors.New("source and destination cards must differ")
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrAmountPrecision = errors.New("amount must have at most 2 decimal places")
	ErrInvalidPan      = errors.New("invalid card number")
	ErrInvalidLast4    = errors.New("last4 must be exactly 4 digits")

	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrCardBlocked           = errors.New("card is blocked")
	ErrCardExpired           = errors.New("card is expired")
	ErrCannotActivateExpired = errors.New("cannot activate an expired card")
	ErrDuplicateCardNumber   = errors.New("card with this number already exists")
	ErrDuplicateBlockRequest = errors.New("a waiting block request already exists for this card")
	ErrRequestNotWaiting     = errors.New("block request is not in waiting status")

	ErrEmailExists        = errors.New("user with this email already exists")
	ErrUserDisabled       = errors.New("user is disabled")
	ErrUserHasCards       = errors.New("user still has cards")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

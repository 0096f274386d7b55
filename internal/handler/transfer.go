package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardhaven/bankcards/internal/auth"
	"github.com/cardhaven/bankcards/internal/domain"
	"github.com/cardhaven/bankcards/internal/logging"
	"github.com/cardhaven/bankcards/internal/service/transfer"
)

type transferService interface {
	Transfer(ctx context.Context, req transfer.Request) (*transfer.Result, error)
	History(ctx context.Context, ownerID, cardID uuid.UUID, limit, offset int) ([]domain.TransferRecord, int, error)
}

type TransferHandler struct {
	transfers transferService
}

func NewTransferHandler(transfers transferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

type createTransferRequest struct {
	FromCardID string          `json:"from_card_id"`
	ToCardID   string          `json:"to_card_id"`
	Amount     decimal.Decimal `json:"amount"`
}

func (r createTransferRequest) Validate() []FieldError {
	var errs []FieldError

	if r.FromCardID == "" {
		errs = append(errs, FieldError{Field: "from_card_id", Message: "required"})
	} else if _, err := uuid.Parse(r.FromCardID); err != nil {
		errs = append(errs, FieldError{Field: "from_card_id", Message: "must be a valid UUID"})
	}

	if r.ToCardID == "" {
		errs = append(errs, FieldError{Field: "to_card_id", Message: "required"})
	} else if _, err := uuid.Parse(r.ToCardID); err != nil {
		errs = append(errs, FieldError{Field: "to_card_id", Message: "must be a valid UUID"})
	}

	if r.Amount.IsZero() {
		errs = append(errs, FieldError{Field: "amount", Message: "required"})
	}

	return errs
}

type transferDTO struct {
	ID         uuid.UUID       `json:"id"`
	FromCardID uuid.UUID       `json:"from_card_id"`
	ToCardID   uuid.UUID       `json:"to_card_id"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}

func toTransferDTO(rec *domain.TransferRecord) transferDTO {
	return transferDTO{
		ID:         rec.ID,
		FromCardID: rec.FromCardID,
		ToCardID:   rec.ToCardID,
		Amount:     rec.Amount,
		CreatedAt:  rec.CreatedAt,
	}
}

type transferResponse struct {
	Transfer    transferDTO     `json:"transfer"`
	FromBalance decimal.Decimal `json:"from_balance"`
	ToBalance   decimal.Decimal `json:"to_balance"`
}

func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	fromID, _ := uuid.Parse(req.FromCardID)
	toID, _ := uuid.Parse(req.ToCardID)

	result, err := h.transfers.Transfer(r.Context(), transfer.Request{
		OwnerID:    userID,
		FromCardID: fromID,
		ToCardID:   toID,
		Amount:     req.Amount,
	})
	if err != nil {
		log.Warn("transfer failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, transferResponse{
		Transfer:    toTransferDTO(result.Record),
		FromBalance: result.FromBalance,
		ToBalance:   result.ToBalance,
	})
}

type transferListResponse struct {
	Transfers []transferDTO `json:"transfers"`
	Page      pageMeta      `json:"page"`
}

func (h *TransferHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	cardID, appErr := idFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	page := pageFromQuery(r)
	records, total, err := h.transfers.History(r.Context(), userID, cardID, page.Limit, page.Offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]transferDTO, 0, len(records))
	for i := range records {
		dtos = append(dtos, toTransferDTO(&records[i]))
	}

	RespondSuccess(w, http.StatusOK, transferListResponse{
		Transfers: dtos,
		Page:      pageMeta{Total: total, Limit: page.Limit, Offset: page.Offset},
	})
}

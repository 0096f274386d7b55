package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/cardhaven/bankcards/internal/auth"
	"github.com/cardhaven/bankcards/internal/domain"
	"github.com/cardhaven/bankcards/internal/logging"
)

type blockRequestService interface {
	Create(ctx context.Context, userID, cardID uuid.UUID, reason *string) (*domain.CardBlockRequest, error)
	Approve(ctx context.Context, requestID uuid.UUID) error
	Reject(ctx context.Context, requestID uuid.UUID) error
	List(ctx context.Context, status *domain.BlockRequestStatus, limit, offset int) ([]domain.CardBlockRequest, int, error)
}

type BlockRequestHandler struct {
	requests blockRequestService
}

func NewBlockRequestHandler(requests blockRequestService) *BlockRequestHandler {
	return &BlockRequestHandler{requests: requests}
}

type createBlockRequest struct {
	CardID string  `json:"card_id"`
	Reason *string `json:"reason"`
}

const maxReasonLength = 500

func (r createBlockRequest) Validate() []FieldError {
	var errs []FieldError
	if r.CardID == "" {
		errs = append(errs, FieldError{Field: "card_id", Message: "required"})
	} else if _, err := uuid.Parse(r.CardID); err != nil {
		errs = append(errs, FieldError{Field: "card_id", Message: "must be a valid UUID"})
	}
	if r.Reason != nil && utf8.RuneCountInString(*r.Reason) > maxReasonLength {
		errs = append(errs, FieldError{Field: "reason", Message: "must be at most 500 characters"})
	}
	return errs
}

type blockRequestDTO struct {
	ID          uuid.UUID `json:"id"`
	CardID      uuid.UUID `json:"card_id"`
	InitiatorID uuid.UUID `json:"initiator_id"`
	Status      string    `json:"status"`
	Reason      *string   `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

func toBlockRequestDTO(req *domain.CardBlockRequest) blockRequestDTO {
	return blockRequestDTO{
		ID:          req.ID,
		CardID:      req.CardID,
		InitiatorID: req.InitiatorID,
		Status:      string(req.Status),
		Reason:      req.Reason,
		CreatedAt:   req.CreatedAt,
	}
}

// Create opens a block request on one of the caller's own cards.
func (h *BlockRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req createBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	cardID, _ := uuid.Parse(req.CardID)
	created, err := h.requests.Create(r.Context(), userID, cardID, req.Reason)
	if err != nil {
		logging.FromContext(r.Context()).Warn("block request creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toBlockRequestDTO(created))
}

type blockRequestListResponse struct {
	Requests []blockRequestDTO `json:"requests"`
	Page     pageMeta          `json:"page"`
}

func (h *BlockRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *domain.BlockRequestStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.BlockRequestStatus(raw)
		if !s.IsValid() {
			RespondValidationError(w, []FieldError{{Field: "status", Message: "must be WAITING, APPROVED or REJECTED"}})
			return
		}
		status = &s
	}

	page := pageFromQuery(r)
	requests, total, err := h.requests.List(r.Context(), status, page.Limit, page.Offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]blockRequestDTO, 0, len(requests))
	for i := range requests {
		dtos = append(dtos, toBlockRequestDTO(&requests[i]))
	}

	RespondSuccess(w, http.StatusOK, blockRequestListResponse{
		Requests: dtos,
		Page:     pageMeta{Total: total, Limit: page.Limit, Offset: page.Offset},
	})
}

func (h *BlockRequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.requests.Approve, domain.BlockRequestStatusApproved)
}

func (h *BlockRequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.requests.Reject, domain.BlockRequestStatusRejected)
}

func (h *BlockRequestHandler) resolve(w http.ResponseWriter, r *http.Request, apply func(context.Context, uuid.UUID) error, outcome domain.BlockRequestStatus) {
	requestID, appErr := idFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if err := apply(r.Context(), requestID); err != nil {
		logging.FromContext(r.Context()).Warn("block request resolution failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, map[string]string{
		"request_id": requestID.String(),
		"status":     string(outcome),
	})
}

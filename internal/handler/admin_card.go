package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardhaven/bankcards/internal/domain"
	"github.com/cardhaven/bankcards/internal/logging"
	"github.com/cardhaven/bankcards/internal/repository"
)

type adminCardService interface {
	Create(ctx context.Context, ownerID uuid.UUID, cardNumber string, expiration *time.Time) (*domain.Card, error)
	AdminGet(ctx context.Context, cardID uuid.UUID) (*domain.Card, error)
	Search(ctx context.Context, f repository.CardFilter, limit, offset int) ([]domain.Card, int, error)
	Block(ctx context.Context, cardID uuid.UUID) (*domain.Card, error)
	Activate(ctx context.Context, cardID uuid.UUID) (*domain.Card, error)
	Delete(ctx context.Context, cardID uuid.UUID) error
	UpdateExpiration(ctx context.Context, cardID uuid.UUID, exp time.Time) (*domain.Card, error)
}

type AdminCardHandler struct {
	cards adminCardService
}

func NewAdminCardHandler(cards adminCardService) *AdminCardHandler {
	return &AdminCardHandler{cards: cards}
}

type adminCardDTO struct {
	ID             uuid.UUID       `json:"id"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	MaskedNumber   string          `json:"masked_number"`
	ExpirationDate *string         `json:"expiration_date"`
	Status         string          `json:"status"`
	Balance        decimal.Decimal `json:"balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

func toAdminCardDTO(c *domain.Card, now time.Time) adminCardDTO {
	dto := adminCardDTO{
		ID:           c.ID,
		OwnerID:      c.OwnerID,
		MaskedNumber: c.PanMasked,
		Status:       string(domain.EffectiveStatus(c, now)),
		Balance:      c.Balance,
		CreatedAt:    c.CreatedAt,
	}
	if c.ExpirationDate != nil {
		d := c.ExpirationDate.Format("2006-01-02")
		dto.ExpirationDate = &d
	}
	return dto
}

type createCardRequest struct {
	OwnerID        string `json:"owner_id"`
	CardNumber     string `json:"card_number"`
	ExpirationDate string `json:"expiration_date"`
}

func (r createCardRequest) Validate() []FieldError {
	var errs []FieldError

	if r.OwnerID == "" {
		errs = append(errs, FieldError{Field: "owner_id", Message: "required"})
	} else if _, err := uuid.Parse(r.OwnerID); err != nil {
		errs = append(errs, FieldError{Field: "owner_id", Message: "must be a valid UUID"})
	}

	if r.CardNumber == "" {
		errs = append(errs, FieldError{Field: "card_number", Message: "required"})
	}

	if r.ExpirationDate != "" {
		if _, err := time.Parse("2006-01-02", r.ExpirationDate); err != nil {
			errs = append(errs, FieldError{Field: "expiration_date", Message: "must be YYYY-MM-DD"})
		}
	}

	return errs
}

func (h *AdminCardHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req createCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	ownerID, _ := uuid.Parse(req.OwnerID)
	var expiration *time.Time
	if req.ExpirationDate != "" {
		d, _ := time.Parse("2006-01-02", req.ExpirationDate)
		expiration = &d
	}

	card, err := h.cards.Create(r.Context(), ownerID, req.CardNumber, expiration)
	if err != nil {
		log.Warn("card creation failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toAdminCardDTO(card, time.Now().UTC()))
}

type adminCardListResponse struct {
	Cards []adminCardDTO `json:"cards"`
	Page  pageMeta       `json:"page"`
}

// Search lists cards across all owners, filterable by owner, status and last4.
func (h *AdminCardHandler) Search(w http.ResponseWriter, r *http.Request) {
	var filter repository.CardFilter

	if raw := r.URL.Query().Get("owner_id"); raw != "" {
		ownerID, err := uuid.Parse(raw)
		if err != nil {
			RespondValidationError(w, []FieldError{{Field: "owner_id", Message: "must be a valid UUID"}})
			return
		}
		filter.OwnerID = &ownerID
	}

	status, appErr := cardStatusFilter(r.URL.Query().Get("status"))
	if appErr != nil {
		RespondValidationError(w, []FieldError{{Field: "status", Message: "must be ACTIVE, BLOCKED or EXPIRED"}})
		return
	}
	filter.Status = status

	last4, err := last4Filter(r.URL.Query().Get("last4"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	filter.Last4 = last4

	page := pageFromQuery(r)
	cards, total, err := h.cards.Search(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	now := time.Now().UTC()
	dtos := make([]adminCardDTO, 0, len(cards))
	for i := range cards {
		dtos = append(dtos, toAdminCardDTO(&cards[i], now))
	}

	RespondSuccess(w, http.StatusOK, adminCardListResponse{
		Cards: dtos,
		Page:  pageMeta{Total: total, Limit: page.Limit, Offset: page.Offset},
	})
}

func (h *AdminCardHandler) Get(w http.ResponseWriter, r *http.Request) {
	cardID, appErr := idFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	card, err := h.cards.AdminGet(r.Context(), cardID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAdminCardDTO(card, time.Now().UTC()))
}

func (h *AdminCardHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.cards.Block)
}

func (h *AdminCardHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.cards.Activate)
}

func (h *AdminCardHandler) mutate(w http.ResponseWriter, r *http.Request, apply func(context.Context, uuid.UUID) (*domain.Card, error)) {
	cardID, appErr := idFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	card, err := apply(r.Context(), cardID)
	if err != nil {
		logging.FromContext(r.Context()).Warn("card status change failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAdminCardDTO(card, time.Now().UTC()))
}

type updateExpirationRequest struct {
	ExpirationDate string `json:"expiration_date"`
}

func (h *AdminCardHandler) UpdateExpiration(w http.ResponseWriter, r *http.Request) {
	cardID, appErr := idFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req updateExpirationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	exp, err := time.Parse("2006-01-02", req.ExpirationDate)
	if err != nil {
		RespondValidationError(w, []FieldError{{Field: "expiration_date", Message: "must be YYYY-MM-DD"}})
		return
	}

	card, err := h.cards.UpdateExpiration(r.Context(), cardID, exp)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toAdminCardDTO(card, time.Now().UTC()))
}

func (h *AdminCardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	cardID, appErr := idFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	if err := h.cards.Delete(r.Context(), cardID); err != nil {
		logging.FromContext(r.Context()).Warn("card deletion failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

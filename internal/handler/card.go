package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardhaven/bankcards/internal/auth"
	"github.com/cardhaven/bankcards/internal/domain"
	"github.com/cardhaven/bankcards/internal/logging"
	"github.com/cardhaven/bankcards/internal/repository"
)

type cardService interface {
	GetForOwner(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error)
	Search(ctx context.Context, f repository.CardFilter, limit, offset int) ([]domain.Card, int, error)
}

type CardHandler struct {
	cards cardService
}

func NewCardHandler(cards cardService) *CardHandler {
	return &CardHandler{cards: cards}
}

type cardDTO struct {
	ID             uuid.UUID       `json:"id"`
	MaskedNumber   string          `json:"masked_number"`
	ExpirationDate *string         `json:"expiration_date"`
	Status         string          `json:"status"`
	Balance        decimal.Decimal `json:"balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

// toCardDTO reports the effective status, never the raw stored one.
func toCardDTO(c *domain.Card, now time.Time) cardDTO {
	dto := cardDTO{
		ID:           c.ID,
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

type cardListResponse struct {
	Cards []cardDTO `json:"cards"`
	Page  pageMeta  `json:"page"`
}

func cardStatusFilter(raw string) (*domain.CardStatus, *AppError) {
	if raw == "" {
		return nil, nil
	}
	status := domain.CardStatus(raw)
	if !status.IsValid() {
		return nil, ErrValidationFailed
	}
	return &status, nil
}

func last4Filter(raw string) (*string, error) {
	if raw == "" {
		return nil, nil
	}
	if len(raw) != 4 {
		return nil, domain.ErrInvalidLast4
	}
	for _, ch := range raw {
		if ch < '0' || ch > '9' {
			return nil, domain.ErrInvalidLast4
		}
	}
	return &raw, nil
}

// List returns the caller's own cards, filterable by status and last4.
func (h *CardHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	status, appErr := cardStatusFilter(r.URL.Query().Get("status"))
	if appErr != nil {
		RespondValidationError(w, []FieldError{{Field: "status", Message: "must be ACTIVE, BLOCKED or EXPIRED"}})
		return
	}
	last4, err := last4Filter(r.URL.Query().Get("last4"))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	page := pageFromQuery(r)
	cards, total, err := h.cards.Search(r.Context(), repository.CardFilter{
		OwnerID: &userID,
		Status:  status,
		Last4:   last4,
	}, page.Limit, page.Offset)
	if err != nil {
		logging.FromContext(r.Context()).Warn("card listing failed", "error", err)
		RespondDomainError(w, err)
		return
	}

	now := time.Now().UTC()
	dtos := make([]cardDTO, 0, len(cards))
	for i := range cards {
		dtos = append(dtos, toCardDTO(&cards[i], now))
	}

	RespondSuccess(w, http.StatusOK, cardListResponse{
		Cards: dtos,
		Page:  pageMeta{Total: total, Limit: page.Limit, Offset: page.Offset},
	})
}

func (h *CardHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	card, err := h.cards.GetForOwner(r.Context(), userID, cardID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toCardDTO(card, time.Now().UTC()))
}

type balanceResponse struct {
	CardID  uuid.UUID       `json:"card_id"`
	Balance decimal.Decimal `json:"balance"`
}

func (h *CardHandler) Balance(w http.ResponseWriter, r *http.Request) {
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

	card, err := h.cards.GetForOwner(r.Context(), userID, cardID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, balanceResponse{CardID: card.ID, Balance: card.Balance})
}

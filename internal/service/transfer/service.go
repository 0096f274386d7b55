package transfer

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardhaven/bankcards/internal/domain"
	"github.com/cardhaven/bankcards/internal/logging"
)

type cardRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Card, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, balance decimal.Decimal) error
}

type transferRepo interface {
	Create(ctx context.Context, tx *sql.Tx, rec *domain.TransferRecord) error
	ListByCard(ctx context.Context, cardID uuid.UUID, limit, offset int) ([]domain.TransferRecord, int, error)
}

type Service struct {
	cards     cardRepo
	transfers transferRepo
	db        *sql.DB
}

func NewService(cards cardRepo, transfers transferRepo, db *sql.DB) *Service {
	return &Service{cards: cards, transfers: transfers, db: db}
}

type Request struct {
	OwnerID    uuid.UUID
	FromCardID uuid.UUID
	ToCardID   uuid.UUID
	Amount     decimal.Decimal
}

type Result struct {
	Record      *domain.TransferRecord
	FromBalance decimal.Decimal
	ToBalance   decimal.Decimal
}

// Transfer moves funds between two cards of the same owner as one atomic
// unit: both balance mutations and the ledger record commit together or not
// at all. Failures are never retried here; the caller decides.
func (s *Service) Transfer(ctx context.Context, req Request) (*Result, error) {
	log := logging.FromContext(ctx)

	if err := validateRequest(req); err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Transfer: begin tx: %w", err)
	}
	defer tx.Rollback()

	locked, err := s.lockCardsInOrder(ctx, tx, req.OwnerID, req.FromCardID, req.ToCardID)
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	from, to := locked[req.FromCardID], locked[req.ToCardID]

	now := time.Now().UTC()
	if err := verifyTransferable(from, now); err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}
	if err := verifyTransferable(to, now); err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	if from.Balance.LessThan(req.Amount) {
		return nil, fmt.Errorf("Transfer: %w", domain.ErrInsufficientFunds)
	}

	fromAfter := from.Balance.Sub(req.Amount)
	toAfter := to.Balance.Add(req.Amount)

	rec := &domain.TransferRecord{
		ID:         uuid.New(),
		FromCardID: from.ID,
		ToCardID:   to.ID,
		Amount:     req.Amount,
		CreatedAt:  now,
	}

	if err := s.cards.UpdateBalance(ctx, tx, from.ID, fromAfter); err != nil {
		return nil, fmt.Errorf("Transfer: debit: %w", err)
	}
	if err := s.cards.UpdateBalance(ctx, tx, to.ID, toAfter); err != nil {
		return nil, fmt.Errorf("Transfer: credit: %w", err)
	}
	if err := s.transfers.Create(ctx, tx, rec); err != nil {
		return nil, fmt.Errorf("Transfer: record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Transfer: commit: %w", err)
	}

	log.Info("transfer completed",
		"transfer_id", rec.ID,
		"from_card", from.ID,
		"to_card", to.ID,
		"amount", req.Amount,
	)

	return &Result{Record: rec, FromBalance: fromAfter, ToBalance: toAfter}, nil
}

// History lists the ledger records touching one of the owner's cards.
func (s *Service) History(ctx context.Context, ownerID, cardID uuid.UUID, limit, offset int) ([]domain.TransferRecord, int, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, 0, fmt.Errorf("History: %w", err)
	}
	if card.OwnerID != ownerID {
		return nil, 0, fmt.Errorf("History: %w", domain.ErrCardNotFound)
	}

	records, total, err := s.transfers.ListByCard(ctx, cardID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("History: %w", err)
	}
	return records, total, nil
}

func validateRequest(req Request) error {
	if req.FromCardID == req.ToCardID {
		return fmt.Errorf("validateRequest: %w", domain.ErrSameCard)
	}
	if !req.Amount.IsPositive() {
		return fmt.Errorf("validateRequest: %w", domain.ErrInvalidAmount)
	}
	if req.Amount.Exponent() < -2 {
		return fmt.Errorf("validateRequest: %w", domain.ErrAmountPrecision)
	}
	return nil
}

func verifyTransferable(c *domain.Card, now time.Time) error {
	switch domain.EffectiveStatus(c, now) {
	case domain.CardStatusActive:
		return nil
	case domain.CardStatusExpired:
		return fmt.Errorf("card %s: %w", c.ID, domain.ErrCardExpired)
	default:
		return fmt.Errorf("card %s: %w", c.ID, domain.ErrCardBlocked)
	}
}

// lockCardsInOrder acquires the exclusive row locks in ascending UUID order
// regardless of transfer direction, so any two transfers over overlapping
// cards take their locks in the same global order and cannot deadlock. Each
// acquisition doubles as the ownership check: a missing, deleted or foreign
// card fails before the next lock is attempted.
func (s *Service) lockCardsInOrder(ctx context.Context, tx *sql.Tx, ownerID uuid.UUID, ids ...uuid.UUID) (map[uuid.UUID]*domain.Card, error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	result := make(map[uuid.UUID]*domain.Card, len(ids))
	for _, id := range sorted {
		card, err := s.cards.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lockCardsInOrder: card %s: %w", id, err)
		}
		if card.OwnerID != ownerID {
			return nil, fmt.Errorf("lockCardsInOrder: card %s: %w", id, domain.ErrCardAccessDenied)
		}
		result[id] = card
	}
	return result, nil
}

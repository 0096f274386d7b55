package blockreq

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cardhaven/bankcards/internal/domain"
	"github.com/cardhaven/bankcards/internal/logging"
)

type cardRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Card, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.CardStatus) error
}

type requestRepo interface {
	Create(ctx context.Context, req *domain.CardBlockRequest) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.CardBlockRequest, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.BlockRequestStatus) error
	ExistsWaitingForCard(ctx context.Context, cardID uuid.UUID) (bool, error)
	ListByStatus(ctx context.Context, status *domain.BlockRequestStatus, limit, offset int) ([]domain.CardBlockRequest, int, error)
}

type Service struct {
	cards    cardRepo
	requests requestRepo
	db       *sql.DB
}

func NewService(cards cardRepo, requests requestRepo, db *sql.DB) *Service {
	return &Service{cards: cards, requests: requests, db: db}
}

// Create opens a WAITING block request for a card the caller owns. Only one
// WAITING request may exist per card; the partial unique index in the schema
// backs this check against concurrent creates.
func (s *Service) Create(ctx context.Context, userID, cardID uuid.UUID, reason *string) (*domain.CardBlockRequest, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	if card.OwnerID != userID {
		return nil, fmt.Errorf("Create: card %s: %w", cardID, domain.ErrCardAccessDenied)
	}

	switch domain.EffectiveStatus(card, time.Now().UTC()) {
	case domain.CardStatusActive:
	case domain.CardStatusExpired:
		return nil, fmt.Errorf("Create: card %s: %w", cardID, domain.ErrCardExpired)
	default:
		return nil, fmt.Errorf("Create: card %s: %w", cardID, domain.ErrCardBlocked)
	}

	exists, err := s.requests.ExistsWaitingForCard(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("Create: card %s: %w", cardID, domain.ErrDuplicateBlockRequest)
	}

	req := &domain.CardBlockRequest{
		ID:          uuid.New(),
		CardID:      cardID,
		InitiatorID: userID,
		Status:      domain.BlockRequestStatusWaiting,
		Reason:      reason,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	logging.FromContext(ctx).Info("block request created", "request_id", req.ID, "card_id", cardID)
	return req, nil
}

// Approve flips the card to BLOCKED and the request to APPROVED in one
// commit. The card row is locked with the same exclusive primitive transfers
// use, so an approval and a concurrent transfer on that card serialize.
func (s *Service) Approve(ctx context.Context, requestID uuid.UUID) error {
	err := s.resolve(ctx, requestID, func(ctx context.Context, tx *sql.Tx, req *domain.CardBlockRequest) error {
		card, err := s.cards.GetForUpdate(ctx, tx, req.CardID)
		if err != nil {
			return err
		}
		if err := s.cards.UpdateStatus(ctx, tx, card.ID, domain.CardStatusBlocked); err != nil {
			return err
		}
		return s.requests.UpdateStatus(ctx, tx, req.ID, domain.BlockRequestStatusApproved)
	})
	if err != nil {
		return fmt.Errorf("Approve: %w", err)
	}

	logging.FromContext(ctx).Info("block request approved", "request_id", requestID)
	return nil
}

// Reject finalizes the request without touching the card.
func (s *Service) Reject(ctx context.Context, requestID uuid.UUID) error {
	err := s.resolve(ctx, requestID, func(ctx context.Context, tx *sql.Tx, req *domain.CardBlockRequest) error {
		return s.requests.UpdateStatus(ctx, tx, req.ID, domain.BlockRequestStatusRejected)
	})
	if err != nil {
		return fmt.Errorf("Reject: %w", err)
	}

	logging.FromContext(ctx).Info("block request rejected", "request_id", requestID)
	return nil
}

func (s *Service) List(ctx context.Context, status *domain.BlockRequestStatus, limit, offset int) ([]domain.CardBlockRequest, int, error) {
	requests, total, err := s.requests.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	return requests, total, nil
}

// resolve locks the request row, requires it to still be WAITING and applies
// the terminal transition inside one transaction.
func (s *Service) resolve(ctx context.Context, requestID uuid.UUID, apply func(context.Context, *sql.Tx, *domain.CardBlockRequest) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	req, err := s.requests.GetForUpdate(ctx, tx, requestID)
	if err != nil {
		return err
	}
	if req.Status != domain.BlockRequestStatusWaiting {
		return fmt.Errorf("request %s: %w", req.ID, domain.ErrRequestNotWaiting)
	}

	if err := apply(ctx, tx, req); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

package card

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardhaven/bankcards/internal/domain"
	"github.com/cardhaven/bankcards/internal/logging"
	"github.com/cardhaven/bankcards/internal/pan"
	"github.com/cardhaven/bankcards/internal/repository"
)

type cardRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Card, error)
	Create(ctx context.Context, card *domain.Card) error
	UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.CardStatus) error
	UpdateExpiration(ctx context.Context, id uuid.UUID, exp time.Time) error
	SoftDelete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
	Search(ctx context.Context, f repository.CardFilter, today time.Time, limit, offset int) ([]domain.Card, int, error)
}

type userRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type Service struct {
	cards cardRepo
	users userRepo
	vault *pan.Vault
	db    *sql.DB
}

func NewService(cards cardRepo, users userRepo, vault *pan.Vault, db *sql.DB) *Service {
	return &Service{cards: cards, users: users, vault: vault, db: db}
}

// Create issues a new card for an existing user. The PAN is normalized,
// deduplicated by peppered hash and stored only in encrypted and masked
// forms. New cards start ACTIVE with a zero balance.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, cardNumber string, expiration *time.Time) (*domain.Card, error) {
	log := logging.FromContext(ctx)

	owner, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	normalized, err := pan.Normalize(cardNumber)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	encrypted, err := s.vault.Encrypt(normalized)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	card := &domain.Card{
		ID:             uuid.New(),
		OwnerID:        owner.ID,
		PanHash:        s.vault.DedupHash(normalized),
		PanEncrypted:   encrypted,
		PanMasked:      pan.Mask(normalized),
		ExpirationDate: expiration,
		Balance:        decimal.Zero,
		Status:         domain.CardStatusActive,
		Deleted:        false,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.cards.Create(ctx, card); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	log.Info("card created", "card_id", card.ID, "owner_id", owner.ID, "masked", card.PanMasked)
	return card, nil
}

// GetForOwner hides foreign cards behind a not-found instead of revealing
// their existence.
func (s *Service) GetForOwner(ctx context.Context, ownerID, cardID uuid.UUID) (*domain.Card, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("GetForOwner: %w", err)
	}
	if card.OwnerID != ownerID {
		return nil, fmt.Errorf("GetForOwner: %w", domain.ErrCardNotFound)
	}
	return card, nil
}

func (s *Service) AdminGet(ctx context.Context, cardID uuid.UUID) (*domain.Card, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("AdminGet: %w", err)
	}
	return card, nil
}

func (s *Service) Search(ctx context.Context, f repository.CardFilter, limit, offset int) ([]domain.Card, int, error) {
	cards, total, err := s.cards.Search(ctx, f, time.Now().UTC(), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("Search: %w", err)
	}
	return cards, total, nil
}

// Block is unconditional and idempotent. The row is locked so that a block
// and a concurrent transfer on the same card serialize.
func (s *Service) Block(ctx context.Context, cardID uuid.UUID) (*domain.Card, error) {
	card, err := s.mutateStatus(ctx, cardID, func(c *domain.Card, _ time.Time) (domain.CardStatus, error) {
		return domain.CardStatusBlocked, nil
	})
	if err != nil {
		return nil, fmt.Errorf("Block: %w", err)
	}
	return card, nil
}

// Activate refuses to resurrect an expired card.
func (s *Service) Activate(ctx context.Context, cardID uuid.UUID) (*domain.Card, error) {
	card, err := s.mutateStatus(ctx, cardID, func(c *domain.Card, now time.Time) (domain.CardStatus, error) {
		if domain.IsExpired(c.ExpirationDate, now) {
			return "", domain.ErrCannotActivateExpired
		}
		return domain.CardStatusActive, nil
	})
	if err != nil {
		return nil, fmt.Errorf("Activate: %w", err)
	}
	return card, nil
}

// Delete tombstones the card. The flag is terminal: every lookup used by
// transfers, block requests and listings filters deleted rows out.
func (s *Service) Delete(ctx context.Context, cardID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Delete: begin tx: %w", err)
	}
	defer tx.Rollback()

	card, err := s.cards.GetForUpdate(ctx, tx, cardID)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := s.cards.SoftDelete(ctx, tx, card.ID); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Delete: commit: %w", err)
	}

	logging.FromContext(ctx).Info("card deleted", "card_id", card.ID)
	return nil
}

func (s *Service) UpdateExpiration(ctx context.Context, cardID uuid.UUID, exp time.Time) (*domain.Card, error) {
	if err := s.cards.UpdateExpiration(ctx, cardID, exp); err != nil {
		return nil, fmt.Errorf("UpdateExpiration: %w", err)
	}
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("UpdateExpiration: %w", err)
	}
	return card, nil
}

func (s *Service) mutateStatus(ctx context.Context, cardID uuid.UUID, decide func(*domain.Card, time.Time) (domain.CardStatus, error)) (*domain.Card, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	card, err := s.cards.GetForUpdate(ctx, tx, cardID)
	if err != nil {
		return nil, err
	}

	status, err := decide(card, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("card %s: %w", card.ID, err)
	}

	if err := s.cards.UpdateStatus(ctx, tx, card.ID, status); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	card.Status = status
	return card, nil
}

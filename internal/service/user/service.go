package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cardhaven/bankcards/internal/auth"
	"github.com/cardhaven/bankcards/internal/domain"
	"github.com/cardhaven/bankcards/internal/logging"
)

type userRepo interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, limit, offset int) ([]domain.User, int, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role domain.UserRole) error
	UpdateEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type cardChecker interface {
	ExistsByOwner(ctx context.Context, ownerID uuid.UUID, includeDeleted bool) (bool, error)
}

type Service struct {
	users userRepo
	cards cardChecker
}

func NewService(users userRepo, cards cardChecker) *Service {
	return &Service{users: users, cards: cards}
}

func (s *Service) Create(ctx context.Context, name, email, password string) (*domain.User, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	u := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        normalized,
		PasswordHash: hash,
		Role:         domain.UserRoleUser,
		Enabled:      true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}

	logging.FromContext(ctx).Info("user created", "user_id", u.ID)
	return u, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, fmt.Errorf("GetByEmail: %w", err)
	}

	u, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("GetByEmail: %w", err)
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.User, int, error) {
	users, total, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("List: %w", err)
	}
	return users, total, nil
}

func (s *Service) UpdateRole(ctx context.Context, id uuid.UUID, role domain.UserRole) (*domain.User, error) {
	if err := s.users.UpdateRole(ctx, id, role); err != nil {
		return nil, fmt.Errorf("UpdateRole: %w", err)
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("UpdateRole: %w", err)
	}
	return u, nil
}

func (s *Service) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*domain.User, error) {
	if err := s.users.UpdateEnabled(ctx, id, enabled); err != nil {
		return nil, fmt.Errorf("SetEnabled: %w", err)
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("SetEnabled: %w", err)
	}
	return u, nil
}

func (s *Service) ResetPassword(ctx context.Context, id uuid.UUID, newPassword string) error {
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("ResetPassword: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return fmt.Errorf("ResetPassword: %w", err)
	}
	return nil
}

// Delete refuses while the user still owns cards, deleted ones included:
// the ledger keeps non-owning references to them.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	hasCards, err := s.cards.ExistsByOwner(ctx, id, true)
	if err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	if hasCards {
		return fmt.Errorf("Delete: %w", domain.ErrUserHasCards)
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}

	logging.FromContext(ctx).Info("user deleted", "user_id", id)
	return nil
}

func NormalizeEmail(email string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return "", fmt.Errorf("NormalizeEmail: %w", domain.ErrInvalidCredentials)
	}
	return e, nil
}

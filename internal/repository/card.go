package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/cardhaven/bankcards/internal/domain"
)

const cardColumns = `id, owner_id, pan_hash, pan_encrypted, pan_masked,
	expiration_date, balance, status, deleted, created_at`

type CardRepository struct {
	db *sql.DB
}

func NewCardRepository(db *sql.DB) *CardRepository {
	return &CardRepository{db: db}
}

func (r *CardRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1 AND deleted = false`, id,
	)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrCardNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return c, nil
}

// GetForUpdate acquires the exclusive row lock used by the transfer engine
// and the block-approval path. Soft-deleted cards are invisible here as on
// every other read path.
func (r *CardRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Card, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1 AND deleted = false FOR UPDATE`, id,
	)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrCardNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return c, nil
}

func (r *CardRepository) Create(ctx context.Context, card *domain.Card) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cards (
			id, owner_id, pan_hash, pan_encrypted, pan_masked,
			expiration_date, balance, status, deleted, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		card.ID, card.OwnerID, card.PanHash, card.PanEncrypted, card.PanMasked,
		card.ExpirationDate, card.Balance, card.Status, card.Deleted, card.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateCardNumber)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *CardRepository) UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, balance decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE cards SET balance = $1 WHERE id = $2`, balance, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateBalance: %w", err)
	}
	return requireRow(res, "UpdateBalance")
}

func (r *CardRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.CardStatus) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE cards SET status = $1 WHERE id = $2`, status, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}
	return requireRow(res, "UpdateStatus")
}

func (r *CardRepository) UpdateExpiration(ctx context.Context, id uuid.UUID, exp time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cards SET expiration_date = $1 WHERE id = $2 AND deleted = false`, exp, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateExpiration: %w", err)
	}
	return requireRow(res, "UpdateExpiration")
}

func (r *CardRepository) SoftDelete(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE cards SET deleted = true, status = $1 WHERE id = $2`,
		domain.CardStatusBlocked, id,
	)
	if err != nil {
		return fmt.Errorf("SoftDelete: %w", err)
	}
	return requireRow(res, "SoftDelete")
}

type CardFilter struct {
	OwnerID *uuid.UUID
	Status  *domain.CardStatus
	Last4   *string
}

// Search filters non-deleted cards. The status filter is expressed over the
// persisted status plus the expiration date, so EXPIRED is queryable even
// though it is never stored.
func (r *CardRepository) Search(ctx context.Context, f CardFilter, today time.Time, limit, offset int) ([]domain.Card, int, error) {
	// Expiration compares at date granularity, like EffectiveStatus: a card
	// expiring today is valid through the whole day. The cutoff must be
	// midnight or the DATE column promotes to it and a mid-day timestamp
	// misclassifies today's expirations.
	y, m, d := today.Date()
	today = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	where := `deleted = false`
	args := []any{}

	if f.OwnerID != nil {
		args = append(args, *f.OwnerID)
		where += fmt.Sprintf(` AND owner_id = $%d`, len(args))
	}
	if f.Status != nil {
		switch *f.Status {
		case domain.CardStatusActive:
			args = append(args, today)
			where += fmt.Sprintf(` AND status = 'ACTIVE' AND (expiration_date IS NULL OR expiration_date >= $%d)`, len(args))
		case domain.CardStatusExpired:
			args = append(args, today)
			where += fmt.Sprintf(` AND status <> 'BLOCKED' AND expiration_date IS NOT NULL AND expiration_date < $%d`, len(args))
		case domain.CardStatusBlocked:
			where += ` AND status = 'BLOCKED'`
		}
	}
	if f.Last4 != nil {
		args = append(args, "%"+*f.Last4)
		where += fmt.Sprintf(` AND pan_masked LIKE $%d`, len(args))
	}

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cards WHERE `+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("Search: count: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM cards WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			cardColumns, where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("Search: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("Search: scan: %w", err)
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("Search: rows: %w", err)
	}
	return cards, total, nil
}

func (r *CardRepository) ExistsByOwner(ctx context.Context, ownerID uuid.UUID, includeDeleted bool) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM cards WHERE owner_id = $1 AND deleted = false)`
	if includeDeleted {
		query = `SELECT EXISTS (SELECT 1 FROM cards WHERE owner_id = $1)`
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("ExistsByOwner: %w", err)
	}
	return exists, nil
}

func requireRow(res sql.Result, op string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrCardNotFound)
	}
	return nil
}

func scanCard(s scanner) (*domain.Card, error) {
	var c domain.Card
	err := s.Scan(
		&c.ID, &c.OwnerID, &c.PanHash, &c.PanEncrypted, &c.PanMasked,
		&c.ExpirationDate, &c.Balance, &c.Status, &c.Deleted, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/cardhaven/bankcards/internal/domain"
)

const transferColumns = `id, from_card_id, to_card_id, amount, created_at`

type TransferRepository struct {
	db *sql.DB
}

func NewTransferRepository(db *sql.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// Create appends a record to the ledger. Must run inside the transfer
// transaction so the record commits with the balance mutations.
func (r *TransferRepository) Create(ctx context.Context, tx *sql.Tx, rec *domain.TransferRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transfer_records (id, from_card_id, to_card_id, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.FromCardID, rec.ToCardID, rec.Amount, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *TransferRepository) ListByCard(ctx context.Context, cardID uuid.UUID, limit, offset int) ([]domain.TransferRecord, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transfer_records WHERE from_card_id = $1 OR to_card_id = $1`, cardID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByCard: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transferColumns+` FROM transfer_records
		WHERE from_card_id = $1 OR to_card_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		cardID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByCard: %w", err)
	}
	defer rows.Close()

	var records []domain.TransferRecord
	for rows.Next() {
		rec, err := scanTransferRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListByCard: scan: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListByCard: rows: %w", err)
	}
	return records, total, nil
}

func scanTransferRecord(s scanner) (*domain.TransferRecord, error) {
	var rec domain.TransferRecord
	err := s.Scan(&rec.ID, &rec.FromCardID, &rec.ToCardID, &rec.Amount, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/cardhaven/bankcards/internal/domain"
)

const blockRequestColumns = `id, card_id, initiator_id, status, reason, created_at`

type BlockRequestRepository struct {
	db *sql.DB
}

func NewBlockRequestRepository(db *sql.DB) *BlockRequestRepository {
	return &BlockRequestRepository{db: db}
}

func (r *BlockRequestRepository) Create(ctx context.Context, req *domain.CardBlockRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO card_block_requests (id, card_id, initiator_id, status, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		req.ID, req.CardID, req.InitiatorID, req.Status, req.Reason, req.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("Create: %w", domain.ErrDuplicateBlockRequest)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *BlockRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CardBlockRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+blockRequestColumns+` FROM card_block_requests WHERE id = $1`, id,
	)
	req, err := scanBlockRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrRequestNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return req, nil
}

// GetForUpdate locks the request row so that concurrent approve/reject calls
// on the same request serialize.
func (r *BlockRequestRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.CardBlockRequest, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+blockRequestColumns+` FROM card_block_requests WHERE id = $1 FOR UPDATE`, id,
	)
	req, err := scanBlockRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrRequestNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return req, nil
}

func (r *BlockRequestRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID, status domain.BlockRequestStatus) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE card_block_requests SET status = $1 WHERE id = $2`, status, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateStatus: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateStatus: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("UpdateStatus: %w", domain.ErrRequestNotFound)
	}
	return nil
}

func (r *BlockRequestRepository) ExistsWaitingForCard(ctx context.Context, cardID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM card_block_requests WHERE card_id = $1 AND status = $2
		)`,
		cardID, domain.BlockRequestStatusWaiting,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ExistsWaitingForCard: %w", err)
	}
	return exists, nil
}

func (r *BlockRequestRepository) ListByStatus(ctx context.Context, status *domain.BlockRequestStatus, limit, offset int) ([]domain.CardBlockRequest, int, error) {
	where := `TRUE`
	args := []any{}
	if status != nil {
		args = append(args, *status)
		where = `status = $1`
	}

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM card_block_requests WHERE `+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByStatus: count: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM card_block_requests WHERE %s
		ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			blockRequestColumns, where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByStatus: %w", err)
	}
	defer rows.Close()

	var requests []domain.CardBlockRequest
	for rows.Next() {
		req, err := scanBlockRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ListByStatus: scan: %w", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListByStatus: rows: %w", err)
	}
	return requests, total, nil
}

func scanBlockRequest(s scanner) (*domain.CardBlockRequest, error) {
	var req domain.CardBlockRequest
	err := s.Scan(&req.ID, &req.CardID, &req.InitiatorID, &req.Status, &req.Reason, &req.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferRecord is an append-only ledger entry for a completed transfer.
// Records are never updated or deleted.
type TransferRecord struct {
	ID         uuid.UUID
	FromCardID uuid.UUID
	ToCardID   uuid.UUID
	Amount     decimal.Decimal
	CreatedAt  time.Time
}

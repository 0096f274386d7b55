package domain

import (
	"time"

	"github.com/google/uuid"
)

type BlockRequestStatus string

const (
	BlockRequestStatusWaiting  BlockRequestStatus = "WAITING"
	BlockRequestStatusApproved BlockRequestStatus = "APPROVED"
	BlockRequestStatusRejected BlockRequestStatus = "REJECTED"
)

func (s BlockRequestStatus) IsValid() bool {
	switch s {
	case BlockRequestStatusWaiting, BlockRequestStatusApproved, BlockRequestStatusRejected:
		return true
	}
	return false
}

// CardBlockRequest is a user-initiated request to freeze a card, resolved by
// an operator. WAITING is the only non-terminal state.
type CardBlockRequest struct {
	ID          uuid.UUID
	CardID      uuid.UUID
	InitiatorID uuid.UUID
	Status      BlockRequestStatus
	Reason      *string
	CreatedAt   time.Time
}

package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/cardhaven/bankcards/internal/domain"
)

func SeedTestUser(t *testing.T, db *sql.DB, email, name string, role domain.UserRole) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Enabled:      true,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, name, email, password_hash, role, enabled, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.Enabled, u.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test user %s: %v", email, err)
	}
	return u
}

type CardOpts struct {
	Balance        decimal.Decimal
	Status         domain.CardStatus
	ExpirationDate *time.Time
	Deleted        bool
	Last4          string
}

// SeedTestCard inserts a card with a synthetic vault payload; the PAN columns
// only need to be unique, not decryptable, for repository and service tests.
func SeedTestCard(t *testing.T, db *sql.DB, ownerID uuid.UUID, opts CardOpts) *domain.Card {
	t.Helper()

	if opts.Status == "" {
		opts.Status = domain.CardStatusActive
	}
	if opts.Last4 == "" {
		opts.Last4 = "0000"
	}

	id := uuid.New()
	c := &domain.Card{
		ID:             id,
		OwnerID:        ownerID,
		PanHash:        "hash-" + id.String(),
		PanEncrypted:   "enc-" + id.String(),
		PanMasked:      "**** **** **** " + opts.Last4,
		ExpirationDate: opts.ExpirationDate,
		Balance:        opts.Balance,
		Status:         opts.Status,
		Deleted:        opts.Deleted,
		CreatedAt:      time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO cards (id, owner_id, pan_hash, pan_encrypted, pan_masked,
		                    expiration_date, balance, status, deleted, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.OwnerID, c.PanHash, c.PanEncrypted, c.PanMasked,
		c.ExpirationDate, c.Balance, c.Status, c.Deleted, c.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed test card for %s: %v", ownerID, err)
	}
	return c
}

func GetCardBalance(t *testing.T, db *sql.DB, cardID uuid.UUID) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(`SELECT balance FROM cards WHERE id = $1`, cardID).Scan(&balance)
	if err != nil {
		t.Fatalf("get card balance %s: %v", cardID, err)
	}
	return balance
}

func GetCardStatus(t *testing.T, db *sql.DB, cardID uuid.UUID) domain.CardStatus {
	t.Helper()

	var status domain.CardStatus
	err := db.QueryRow(`SELECT status FROM cards WHERE id = $1`, cardID).Scan(&status)
	if err != nil {
		t.Fatalf("get card status %s: %v", cardID, err)
	}
	return status
}

func CountTransferRecords(t *testing.T, db *sql.DB, cardID uuid.UUID) int {
	t.Helper()

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM transfer_records WHERE from_card_id = $1 OR to_card_id = $1`,
		cardID,
	).Scan(&count)
	if err != nil {
		t.Fatalf("count transfer records for card %s: %v", cardID, err)
	}
	return count
}

func GetBlockRequestStatus(t *testing.T, db *sql.DB, requestID uuid.UUID) domain.BlockRequestStatus {
	t.Helper()

	var status domain.BlockRequestStatus
	err := db.QueryRow(`SELECT status FROM card_block_requests WHERE id = $1`, requestID).Scan(&status)
	if err != nil {
		t.Fatalf("get block request status %s: %v", requestID, err)
	}
	return status
}

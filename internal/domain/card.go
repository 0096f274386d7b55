package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	// CardStatusExpired is derived at read time and never persisted.
	CardStatusExpired CardStatus = "EXPIRED"
)

func (s CardStatus) IsValid() bool {
	switch s {
	case CardStatusActive, CardStatusBlocked, CardStatusExpired:
		return true
	}
	return false
}

type Card struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	PanHash        string
	PanEncrypted   string
	PanMasked      string
	ExpirationDate *time.Time
	Balance        decimal.Decimal
	Status         CardStatus
	Deleted        bool
	CreatedAt      time.Time
}

// EffectiveStatus overlays expiration onto the persisted status. An expired
// card reads as EXPIRED unless it is BLOCKED; BLOCKED always wins. All read
// paths and transferability checks must go through this function so that
// expiration is never special-cased elsewhere or cached on the entity.
func EffectiveStatus(c *Card, today time.Time) CardStatus {
	if c.Status != CardStatusBlocked && IsExpired(c.ExpirationDate, today) {
		return CardStatusExpired
	}
	return c.Status
}

// IsExpired compares at date granularity. A card with no expiration date
// never expires.
func IsExpired(exp *time.Time, today time.Time) bool {
	if exp == nil {
		return false
	}
	return dateOf(*exp).Before(dateOf(today))
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

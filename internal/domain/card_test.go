package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveStatus(t *testing.T) {
	today := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	yesterday := time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC)
	tomorrow := time.Date(2026, 6, 16, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		status     CardStatus
		expiration *time.Time
		want       CardStatus
	}{
		{
			name:       "active with future expiration",
			status:     CardStatusActive,
			expiration: &tomorrow,
			want:       CardStatusActive,
		},
		{
			name:       "active with no expiration",
			status:     CardStatusActive,
			expiration: nil,
			want:       CardStatusActive,
		},
		{
			name:       "active past expiration reads expired",
			status:     CardStatusActive,
			expiration: &yesterday,
			want:       CardStatusExpired,
		},
		{
			name:       "blocked past expiration stays blocked",
			status:     CardStatusBlocked,
			expiration: &yesterday,
			want:       CardStatusBlocked,
		},
		{
			name:       "blocked with future expiration stays blocked",
			status:     CardStatusBlocked,
			expiration: &tomorrow,
			want:       CardStatusBlocked,
		},
		{
			name:       "expiring today is still active",
			status:     CardStatusActive,
			expiration: &today,
			want:       CardStatusActive,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := &Card{Status: tc.status, ExpirationDate: tc.expiration}
			assert.Equal(t, tc.want, EffectiveStatus(c, today))
		})
	}
}

func TestIsExpired_DateGranularity(t *testing.T) {
	// Expiration is compared by calendar date, not instant: a card expiring
	// today is valid until midnight.
	expiration := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	endOfDay := time.Date(2026, 6, 15, 23, 59, 59, 0, time.UTC)
	assert.False(t, IsExpired(&expiration, endOfDay))

	nextMorning := time.Date(2026, 6, 16, 0, 0, 1, 0, time.UTC)
	assert.True(t, IsExpired(&expiration, nextMorning))

	assert.False(t, IsExpired(nil, nextMorning))
}

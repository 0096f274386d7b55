package card_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardhaven/bankcards/internal/domain"
	"github.com/cardhaven/bankcards/internal/pan"
	"github.com/cardhaven/bankcards/internal/repository"
	"github.com/cardhaven/bankcards/internal/service/card"
	"github.com/cardhaven/bankcards/internal/testutil"
)

func setupCardService(t *testing.T, db *sql.DB) *card.Service {
	t.Helper()

	vault, err := pan.NewVault("test-pepper", "test-password", "test-salt")
	require.NoError(t, err)

	return card.NewService(
		repository.NewCardRepository(db),
		repository.NewUserRepository(db),
		vault,
		db,
	)
}

func TestCardCreate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDB(t)
	svc := setupCardService(t, db)
	ctx := context.Background()

	owner := testutil.SeedTestUser(t, db, "owner@test.com", "Owner", domain.UserRoleUser)

	created, err := svc.Create(ctx, owner.ID, "4000 1234 1234 1234", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.CardStatusActive, created.Status)
	assert.True(t, created.Balance.IsZero())
	assert.Equal(t, "**** **** **** 1234", created.PanMasked)
	assert.NotContains(t, created.PanHash, "4000")
	assert.NotContains(t, created.PanEncrypted, "4000123412341234")

	// Same PAN with different formatting collides on the dedup hash.
	_, err = svc.Create(ctx, owner.ID, "4000-1234-1234-1234", nil)
	require.ErrorIs(t, err, domain.ErrDuplicateCardNumber)

	_, err = svc.Create(ctx, owner.ID, "1234", nil)
	require.ErrorIs(t, err, domain.ErrInvalidPan)

	fake := testutil.SeedTestUser(t, db, "gone@test.com", "Gone", domain.UserRoleUser)
	_, err = db.Exec(`DELETE FROM users WHERE id = $1`, fake.ID)
	require.NoError(t, err)
	_, err = svc.Create(ctx, fake.ID, "4000123412349999", nil)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestCardStatusMutations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDB(t)
	svc := setupCardService(t, db)
	ctx := context.Background()

	owner := testutil.SeedTestUser(t, db, "owner@test.com", "Owner", domain.UserRoleUser)
	c := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{Balance: decimal.Zero})

	blocked, err := svc.Block(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CardStatusBlocked, blocked.Status)

	// Blocking again is a no-op, not an error.
	_, err = svc.Block(ctx, c.ID)
	require.NoError(t, err)

	activated, err := svc.Activate(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CardStatusActive, activated.Status)

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	expired := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{
		Balance:        decimal.Zero,
		Status:         domain.CardStatusBlocked,
		ExpirationDate: &yesterday,
	})
	_, err = svc.Activate(ctx, expired.ID)
	require.ErrorIs(t, err, domain.ErrCannotActivateExpired)
	assert.Equal(t, domain.CardStatusBlocked, testutil.GetCardStatus(t, db, expired.ID))
}

func TestCardDelete_Invisibility(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDB(t)
	svc := setupCardService(t, db)
	ctx := context.Background()

	owner := testutil.SeedTestUser(t, db, "owner@test.com", "Owner", domain.UserRoleUser)
	c := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{Balance: decimal.Zero})

	require.NoError(t, svc.Delete(ctx, c.ID))

	_, err := svc.AdminGet(ctx, c.ID)
	require.ErrorIs(t, err, domain.ErrCardNotFound)

	cards, total, err := svc.Search(ctx, repository.CardFilter{OwnerID: &owner.ID}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, cards)

	err = svc.Delete(ctx, c.ID)
	require.ErrorIs(t, err, domain.ErrCardNotFound)
}

func TestCardSearch_Filters(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDB(t)
	svc := setupCardService(t, db)
	ctx := context.Background()

	owner := testutil.SeedTestUser(t, db, "owner@test.com", "Owner", domain.UserRoleUser)
	other := testutil.SeedTestUser(t, db, "other@test.com", "Other", domain.UserRoleUser)
	yesterday := time.Now().UTC().AddDate(0, 0, -1)

	active := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{Balance: decimal.Zero, Last4: "1111"})
	blocked := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{
		Balance: decimal.Zero, Status: domain.CardStatusBlocked, Last4: "2222",
	})
	expired := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{
		Balance: decimal.Zero, ExpirationDate: &yesterday, Last4: "3333",
	})
	testutil.SeedTestCard(t, db, other.ID, testutil.CardOpts{Balance: decimal.Zero, Last4: "4444"})

	today := time.Now().UTC()
	expiringToday := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{
		Balance: decimal.Zero, ExpirationDate: &today, Last4: "5555",
	})

	byStatus := func(s domain.CardStatus) []domain.Card {
		cards, _, err := svc.Search(ctx, repository.CardFilter{OwnerID: &owner.ID, Status: &s}, 10, 0)
		require.NoError(t, err)
		return cards
	}

	ids := func(cards []domain.Card) []uuid.UUID {
		out := make([]uuid.UUID, 0, len(cards))
		for _, c := range cards {
			out = append(out, c.ID)
		}
		return out
	}

	// A card expiring today is still ACTIVE for the whole day, matching
	// EffectiveStatus.
	got := byStatus(domain.CardStatusActive)
	require.Len(t, got, 2)
	assert.Contains(t, ids(got), active.ID)
	assert.Contains(t, ids(got), expiringToday.ID)

	got = byStatus(domain.CardStatusBlocked)
	require.Len(t, got, 1)
	assert.Equal(t, blocked.ID, got[0].ID)

	// EXPIRED is derived, not stored, yet still queryable.
	got = byStatus(domain.CardStatusExpired)
	require.Len(t, got, 1)
	assert.Equal(t, expired.ID, got[0].ID)

	last4 := "2222"
	cards, total, err := svc.Search(ctx, repository.CardFilter{OwnerID: &owner.ID, Last4: &last4}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, cards, 1)
	assert.Equal(t, blocked.ID, cards[0].ID)

	// No owner filter sees everyone.
	_, total, err = svc.Search(ctx, repository.CardFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
}

func TestGetForOwner_HidesForeignCards(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDB(t)
	svc := setupCardService(t, db)
	ctx := context.Background()

	owner := testutil.SeedTestUser(t, db, "owner@test.com", "Owner", domain.UserRoleUser)
	other := testutil.SeedTestUser(t, db, "other@test.com", "Other", domain.UserRoleUser)
	c := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{Balance: decimal.Zero})

	got, err := svc.GetForOwner(ctx, owner.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = svc.GetForOwner(ctx, other.ID, c.ID)
	require.ErrorIs(t, err, domain.ErrCardNotFound)
}

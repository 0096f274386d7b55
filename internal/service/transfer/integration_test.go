package transfer_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardhaven/bankcards/internal/domain"
	"github.com/cardhaven/bankcards/internal/repository"
	"github.com/cardhaven/bankcards/internal/service/transfer"
	"github.com/cardhaven/bankcards/internal/testutil"
)

func setupTransferService(t *testing.T, db *sql.DB) *transfer.Service {
	t.Helper()
	return transfer.NewService(
		repository.NewCardRepository(db),
		repository.NewTransferRepository(db),
		db,
	)
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTransfer_HappyPath(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDB(t)
	svc := setupTransferService(t, db)
	ctx := context.Background()

	owner := testutil.SeedTestUser(t, db, "owner@test.com", "Owner", domain.UserRoleUser)
	from := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{Balance: money("100.00")})
	to := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{Balance: money("10.00")})

	result, err := svc.Transfer(ctx, transfer.Request{
		OwnerID:    owner.ID,
		FromCardID: from.ID,
		ToCardID:   to.ID,
		Amount:     money("25.50"),
	})
	require.NoError(t, err)

	assert.True(t, result.FromBalance.Equal(money("74.50")), "got %s", result.FromBalance)
	assert.True(t, result.ToBalance.Equal(money("35.50")), "got %s", result.ToBalance)

	assert.True(t, testutil.GetCardBalance(t, db, from.ID).Equal(money("74.50")))
	assert.True(t, testutil.GetCardBalance(t, db, to.ID).Equal(money("35.50")))
	assert.Equal(t, 1, testutil.CountTransferRecords(t, db, from.ID))

	records, total, err := svc.History(ctx, owner.ID, from.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, result.Record.ID, records[0].ID)
	assert.True(t, records[0].Amount.Equal(money("25.50")))
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDB(t)
	svc := setupTransferService(t, db)

	owner := testutil.SeedTestUser(t, db, "owner@test.com", "Owner", domain.UserRoleUser)
	from := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{Balance: money("10.00")})
	to := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{Balance: money("0.00")})

	_, err := svc.Transfer(context.Background(), transfer.Request{
		OwnerID:    owner.ID,
		FromCardID: from.ID,
		ToCardID:   to.ID,
		Amount:     money("10.01"),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// Nothing moved, nothing recorded.
	assert.True(t, testutil.GetCardBalance(t, db, from.ID).Equal(money("10.00")))
	assert.True(t, testutil.GetCardBalance(t, db, to.ID).Equal(money("0.00")))
	assert.Equal(t, 0, testutil.CountTransferRecords(t, db, from.ID))
}

func TestTransfer_ExactBalance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDB(t)
	svc := setupTransferService(t, db)

	owner := testutil.SeedTestUser(t, db, "owner@test.com", "Owner", domain.UserRoleUser)
	from := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{Balance: money("10.00")})
	to := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{Balance: money("0.00")})

	_, err := svc.Transfer(context.Background(), transfer.Request{
		OwnerID:    owner.ID,
		FromCardID: from.ID,
		ToCardID:   to.ID,
		Amount:     money("10.00"),
	})
	require.NoError(t, err)

	assert.True(t, testutil.GetCardBalance(t, db, from.ID).Equal(money("0.00")))
	assert.True(t, testutil.GetCardBalance(t, db, to.ID).Equal(money("10.00")))
}

func TestTransfer_ForeignCard(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDB(t)
	svc := setupTransferService(t, db)

	owner := testutil.SeedTestUser(t, db, "owner@test.com", "Owner", domain.UserRoleUser)
	other := testutil.SeedTestUser(t, db, "other@test.com", "Other", domain.UserRoleUser)
	mine := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{Balance: money("100.00")})
	theirs := testutil.SeedTestCard(t, db, other.ID, testutil.CardOpts{Balance: money("100.00")})

	_, err := svc.Transfer(context.Background(), transfer.Request{
		OwnerID:    owner.ID,
		FromCardID: mine.ID,
		ToCardID:   theirs.ID,
		Amount:     money("10.00"),
	})
	require.ErrorIs(t, err, domain.ErrCardAccessDenied)

	assert.True(t, testutil.GetCardBalance(t, db, mine.ID).Equal(money("100.00")))
	assert.True(t, testutil.GetCardBalance(t, db, theirs.ID).Equal(money("100.00")))
}

func TestTransfer_StatusConflicts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDB(t)
	svc := setupTransferService(t, db)
	ctx := context.Background()

	owner := testutil.SeedTestUser(t, db, "owner@test.com", "Owner", domain.UserRoleUser)
	yesterday := time.Now().UTC().AddDate(0, 0, -1)

	active := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{Balance: money("100.00")})
	blocked := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{
		Balance: money("100.00"),
		Status:  domain.CardStatusBlocked,
	})
	expired := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{
		Balance:        money("100.00"),
		ExpirationDate: &yesterday,
	})
	deleted := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{
		Balance: money("100.00"),
		Deleted: true,
	})

	_, err := svc.Transfer(ctx, transfer.Request{
		OwnerID: owner.ID, FromCardID: blocked.ID, ToCardID: active.ID, Amount: money("10.00"),
	})
	require.ErrorIs(t, err, domain.ErrCardBlocked)

	_, err = svc.Transfer(ctx, transfer.Request{
		OwnerID: owner.ID, FromCardID: active.ID, ToCardID: expired.ID, Amount: money("10.00"),
	})
	require.ErrorIs(t, err, domain.ErrCardExpired)

	// Soft-deleted cards are invisible to transfers.
	_, err = svc.Transfer(ctx, transfer.Request{
		OwnerID: owner.ID, FromCardID: active.ID, ToCardID: deleted.ID, Amount: money("10.00"),
	})
	require.ErrorIs(t, err, domain.ErrCardNotFound)

	assert.True(t, testutil.GetCardBalance(t, db, active.ID).Equal(money("100.00")))
}

// Two transfers over the same pair in opposite directions must both finish:
// the ordered locking means neither can hold one row while waiting on the
// other.
func TestTransfer_ConcurrentOppositeDirections(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDB(t)
	svc := setupTransferService(t, db)

	owner := testutil.SeedTestUser(t, db, "owner@test.com", "Owner", domain.UserRoleUser)
	a := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{Balance: money("100.00")})
	b := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{Balance: money("100.00")})

	const rounds = 10
	var wg sync.WaitGroup
	errs := make(chan error, rounds*2)

	for range rounds {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(context.Background(), transfer.Request{
				OwnerID: owner.ID, FromCardID: a.ID, ToCardID: b.ID, Amount: money("1.00"),
			})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(context.Background(), transfer.Request{
				OwnerID: owner.ID, FromCardID: b.ID, ToCardID: a.ID, Amount: money("1.00"),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// Equal and opposite flows: balances end where they started.
	assert.True(t, testutil.GetCardBalance(t, db, a.ID).Equal(money("100.00")))
	assert.True(t, testutil.GetCardBalance(t, db, b.ID).Equal(money("100.00")))
	assert.Equal(t, rounds*2, testutil.CountTransferRecords(t, db, a.ID))
}

// Two concurrent transfers that together overdraw the source must admit
// exactly one winner.
func TestTransfer_ConcurrentOverdraft(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDB(t)
	svc := setupTransferService(t, db)

	owner := testutil.SeedTestUser(t, db, "owner@test.com", "Owner", domain.UserRoleUser)
	from := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{Balance: money("100.00")})
	to := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{Balance: money("0.00")})

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(context.Background(), transfer.Request{
				OwnerID: owner.ID, FromCardID: from.ID, ToCardID: to.ID, Amount: money("60.00"),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, failed int
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.True(t, errors.Is(err, domain.ErrInsufficientFunds), "unexpected error: %v", err)
			failed++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)

	assert.True(t, testutil.GetCardBalance(t, db, from.ID).Equal(money("40.00")))
	assert.True(t, testutil.GetCardBalance(t, db, to.ID).Equal(money("60.00")))
	assert.Equal(t, 1, testutil.CountTransferRecords(t, db, to.ID))
}

func TestHistory_ForeignCardHidden(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.SetupTestDB(t)
	svc := setupTransferService(t, db)

	owner := testutil.SeedTestUser(t, db, "owner@test.com", "Owner", domain.UserRoleUser)
	other := testutil.SeedTestUser(t, db, "other@test.com", "Other", domain.UserRoleUser)
	card := testutil.SeedTestCard(t, db, owner.ID, testutil.CardOpts{Balance: money("100.00")})

	_, _, err := svc.History(context.Background(), other.ID, card.ID, 10, 0)
	require.ErrorIs(t, err, domain.ErrCardNotFound)
}

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/remesas/provider/currencies"
	"github.com/sig-0/remesas/storage"
	"github.com/sig-0/remesas/storage/types"
)

var _ storage.Storage = (*Storage)(nil)

func newTransaction(id, userID string, createdAt time.Time) *types.Transaction {
	return &types.Transaction{
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
		ID:           id,
		UserID:       userID,
		FromCurrency: currencies.CLP,
		ToCurrency:   currencies.VES,
		Status:       types.StatusPending,
		AmountSend:   10000,
		RateApplied:  0.03513,
		Recipient: &types.Recipient{
			PaymentMethod: types.PaymentMethodPagoMovil,
			FullName:      "Maria Perez",
			NationalID:    "V-12345678",
			Bank:          "Banesco",
			PhoneNumber:   "04141234567",
		},
	}
}

func TestStorage_Transactions(t *testing.T) {
	t.Parallel()

	t.Run("save and fetch", func(t *testing.T) {
		t.Parallel()

		var (
			s   = NewStorage()
			ctx = context.Background()
			tx  = newTransaction("tx-1", "user-1", time.Now())
		)

		require.NoError(t, s.SaveTransaction(ctx, tx))
		assert.ErrorIs(t, s.SaveTransaction(ctx, tx), storage.ErrDuplicate)

		fetched, err := s.Transaction(ctx, "tx-1")
		require.NoError(t, err)

		assert.Equal(t, tx.ID, fetched.ID)
		assert.Equal(t, tx.Recipient, fetched.Recipient)

		// Stored copies are detached from the caller
		fetched.Recipient.FullName = "changed"

		again, err := s.Transaction(ctx, "tx-1")
		require.NoError(t, err)
		assert.Equal(t, "Maria Perez", again.Recipient.FullName)

		_, err = s.Transaction(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("conditional update", func(t *testing.T) {
		t.Parallel()

		var (
			s   = NewStorage()
			ctx = context.Background()
			tx  = newTransaction("tx-1", "user-1", time.Now())
		)

		require.NoError(t, s.SaveTransaction(ctx, tx))

		updated := *tx
		updated.Status = types.StatusProcessing

		require.NoError(t, s.UpdateTransaction(ctx, &updated, types.StatusPending))

		// The stored status is no longer pending
		assert.ErrorIs(
			t,
			s.UpdateTransaction(ctx, &updated, types.StatusPending),
			storage.ErrStatusConflict,
		)

		missing := *tx
		missing.ID = "missing"

		assert.ErrorIs(t, s.UpdateTransaction(ctx, &missing, types.StatusPending), storage.ErrNotFound)

		fetched, err := s.Transaction(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StatusProcessing, fetched.Status)
	})

	t.Run("query", func(t *testing.T) {
		t.Parallel()

		var (
			s   = NewStorage()
			ctx = context.Background()
			now = time.Now()
		)

		require.NoError(t, s.SaveTransaction(ctx, newTransaction("a", "user-1", now.Add(-2*time.Minute))))
		require.NoError(t, s.SaveTransaction(ctx, newTransaction("b", "user-2", now.Add(-time.Minute))))
		require.NoError(t, s.SaveTransaction(ctx, newTransaction("c", "user-1", now)))

		all, err := s.Transactions(ctx, nil)
		require.NoError(t, err)

		require.Len(t, all.Results, 3)
		assert.Equal(t, int64(3), all.Total)
		assert.Equal(t, "c", all.Results[0].ID)
		assert.Equal(t, "a", all.Results[2].ID)

		user := "user-1"

		own, err := s.Transactions(ctx, &types.TransactionQuery{UserID: &user})
		require.NoError(t, err)

		require.Len(t, own.Results, 2)
		assert.Equal(t, "c", own.Results[0].ID)

		paged, err := s.Transactions(ctx, &types.TransactionQuery{Limit: 1, Offset: 1})
		require.NoError(t, err)

		require.Len(t, paged.Results, 1)
		assert.Equal(t, "b", paged.Results[0].ID)
		assert.Equal(t, int64(3), paged.Total)

		beyond, err := s.Transactions(ctx, &types.TransactionQuery{Offset: 10})
		require.NoError(t, err)

		assert.Empty(t, beyond.Results)

		status := types.StatusCompleted

		none, err := s.Transactions(ctx, &types.TransactionQuery{Status: &status})
		require.NoError(t, err)

		assert.Empty(t, none.Results)
		assert.Zero(t, none.Total)
	})
}

func TestStorage_Accounts(t *testing.T) {
	t.Parallel()

	var (
		s   = NewStorage()
		ctx = context.Background()
		now = time.Now()
	)

	require.NoError(t, s.SaveAccount(ctx, &types.AdminAccount{
		CreatedAt: now,
		ID:        "second",
		BankName:  "Banco Estado",
	}))
	require.NoError(t, s.SaveAccount(ctx, &types.AdminAccount{
		CreatedAt: now.Add(-time.Hour),
		ID:        "first",
		BankName:  "Banco de Chile",
	}))

	accounts, err := s.Accounts(ctx)
	require.NoError(t, err)

	require.Len(t, accounts, 2)
	assert.Equal(t, "first", accounts[0].ID)

	require.NoError(t, s.DeleteAccount(ctx, "first"))
	assert.ErrorIs(t, s.DeleteAccount(ctx, "first"), storage.ErrNotFound)

	accounts, err = s.Accounts(ctx)
	require.NoError(t, err)

	require.Len(t, accounts, 1)
	assert.Equal(t, "second", accounts[0].ID)
}

func TestStorage_Margins(t *testing.T) {
	t.Parallel()

	t.Run("empty store", func(t *testing.T) {
		t.Parallel()

		_, err := NewStorage().Margins(context.Background())

		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("watchers receive the latest margins", func(t *testing.T) {
		t.Parallel()

		var (
			s = NewStorage()

			first  = types.DefaultMarginConfig()
			second = types.DefaultMarginConfig()
		)

		second.DiscountCLPVES = 0.08

		ctx, cancel := context.WithCancel(context.Background())

		updates, err := s.WatchMargins(ctx)
		require.NoError(t, err)

		require.NoError(t, s.SaveMargins(context.Background(), first))
		require.NoError(t, s.SaveMargins(context.Background(), second))

		// The unconsumed update was replaced
		select {
		case m := <-updates:
			assert.Equal(t, second, m)
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for margin update")
		}

		stored, err := s.Margins(context.Background())
		require.NoError(t, err)
		assert.Equal(t, second, stored)

		cancel()

		select {
		case _, more := <-updates:
			assert.False(t, more)
		case <-time.After(5 * time.Second):
			t.Fatal("subscription was not closed")
		}
	})
}

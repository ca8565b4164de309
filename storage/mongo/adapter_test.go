package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/sig-0/remesas/provider/currencies"
	"github.com/sig-0/remesas/storage"
	"github.com/sig-0/remesas/storage/types"
)

var _ storage.Storage = (*Storage)(nil)

func newTestStorage(mt *mtest.T) *Storage {
	return &Storage{
		transactions: mt.Coll,
		accounts:     mt.Coll,
		config:       mt.Coll,
	}
}

func namespace(mt *mtest.T) string {
	return mt.DB.Name() + "." + mt.Coll.Name()
}

func transactionDoc(id, userID string, status types.Status, createdAt time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "user_id", Value: userID},
		{Key: "from_currency", Value: "CLP"},
		{Key: "to_currency", Value: "VES"},
		{Key: "status", Value: string(status)},
		{Key: "amount_send", Value: 10000.0},
		{Key: "amount_receive", Value: 351.3},
		{Key: "rate_applied", Value: 0.03513},
		{Key: "snapshot_version", Value: int64(3)},
		{Key: "created_at", Value: createdAt},
		{Key: "updated_at", Value: createdAt},
	}
}

func TestStorage_SaveTransaction(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	tx := &types.Transaction{
		ID:           "tx-1",
		UserID:       "user-1",
		FromCurrency: currencies.CLP,
		ToCurrency:   currencies.VES,
		Status:       types.StatusPending,
		AmountSend:   10000,
	}

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(t, newTestStorage(mt).SaveTransaction(context.Background(), tx))
	})

	mt.Run("duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := newTestStorage(mt).SaveTransaction(context.Background(), tx)

		assert.ErrorIs(t, err, storage.ErrDuplicate)
	})

	mt.Run("command error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    91,
			Name:    "ShutdownInProgress",
			Message: "mock insert failure",
		}))

		err := newTestStorage(mt).SaveTransaction(context.Background(), tx)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unable to save transaction")
	})
}

func TestStorage_Transaction(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		now := time.Now().UTC().Truncate(time.Millisecond)

		mt.AddMockResponses(mtest.CreateCursorResponse(
			0,
			namespace(mt),
			mtest.FirstBatch,
			transactionDoc("tx-1", "user-1", types.StatusPending, now),
		))

		tx, err := newTestStorage(mt).Transaction(context.Background(), "tx-1")
		require.NoError(t, err)

		assert.Equal(t, "tx-1", tx.ID)
		assert.Equal(t, currencies.CLP, tx.FromCurrency)
		assert.Equal(t, types.StatusPending, tx.Status)
		assert.Equal(t, uint64(3), tx.SnapshotVersion)
		assert.True(t, now.Equal(tx.CreatedAt))
		assert.Nil(t, tx.Recipient)
	})

	mt.Run("not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		_, err := newTestStorage(mt).Transaction(context.Background(), "missing")

		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestStorage_UpdateTransaction(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	tx := &types.Transaction{
		ID:     "tx-1",
		Status: types.StatusProcessing,
	}

	mt.Run("matched", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		require.NoError(t, newTestStorage(mt).UpdateTransaction(context.Background(), tx, types.StatusPending))
	})

	mt.Run("status changed", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(
				bson.E{Key: "n", Value: 0},
				bson.E{Key: "nModified", Value: 0},
			),
			mtest.CreateCursorResponse(
				0,
				namespace(mt),
				mtest.FirstBatch,
				transactionDoc("tx-1", "user-1", types.StatusCancelled, time.Now()),
			),
		)

		err := newTestStorage(mt).UpdateTransaction(context.Background(), tx, types.StatusPending)

		assert.ErrorIs(t, err, storage.ErrStatusConflict)
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(
				bson.E{Key: "n", Value: 0},
				bson.E{Key: "nModified", Value: 0},
			),
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch),
		)

		err := newTestStorage(mt).UpdateTransaction(context.Background(), tx, types.StatusPending)

		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestStorage_Transactions(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("page", func(mt *mtest.T) {
		now := time.Now().UTC()

		mt.AddMockResponses(
			mtest.CreateCursorResponse(
				0,
				namespace(mt),
				mtest.FirstBatch,
				bson.D{{Key: "n", Value: int32(2)}},
			),
			mtest.CreateCursorResponse(
				0,
				namespace(mt),
				mtest.FirstBatch,
				transactionDoc("tx-2", "user-1", types.StatusPending, now),
				transactionDoc("tx-1", "user-1", types.StatusCompleted, now.Add(-time.Hour)),
			),
		)

		user := "user-1"

		page, err := newTestStorage(mt).Transactions(
			context.Background(),
			&types.TransactionQuery{UserID: &user},
		)
		require.NoError(t, err)

		assert.Equal(t, int64(2), page.Total)
		require.Len(t, page.Results, 2)
		assert.Equal(t, "tx-2", page.Results[0].ID)
		assert.Equal(t, types.StatusCompleted, page.Results[1].Status)
	})

	mt.Run("count error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Name:    "Unauthorized",
			Message: "mock count failure",
		}))

		_, err := newTestStorage(mt).Transactions(context.Background(), nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "unable to count transactions")
	})
}

func TestStorage_Accounts(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("list", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(
			0,
			namespace(mt),
			mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "acc-1"},
				{Key: "bank_name", Value: "Banco de Chile"},
				{Key: "account_holder", Value: "Remesas SpA"},
				{Key: "national_id", Value: "76.123.456-7"},
				{Key: "account_type", Value: "Cuenta Corriente"},
				{Key: "account_number", Value: "0012345678"},
			},
		))

		accounts, err := newTestStorage(mt).Accounts(context.Background())
		require.NoError(t, err)

		require.Len(t, accounts, 1)
		assert.Equal(t, "acc-1", accounts[0].ID)
		assert.Equal(t, "Banco de Chile", accounts[0].BankName)
	})

	mt.Run("save", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
		))

		require.NoError(t, newTestStorage(mt).SaveAccount(context.Background(), &types.AdminAccount{ID: "acc-1"}))
	})

	mt.Run("delete missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := newTestStorage(mt).DeleteAccount(context.Background(), "missing")

		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	mt.Run("delete", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		require.NoError(t, newTestStorage(mt).DeleteAccount(context.Background(), "acc-1"))
	})
}

func TestStorage_Margins(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("stored", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(
			0,
			namespace(mt),
			mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: marginsDocumentID},
				{Key: "discount_wld_clp", Value: 0.14},
				{Key: "discount_clp_ves", Value: 0.08},
				{Key: "margin_usdt_clp", Value: 0.004},
				{Key: "updated_by", Value: "admin"},
			},
		))

		m, err := newTestStorage(mt).Margins(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 0.08, m.DiscountCLPVES)
		assert.Equal(t, "admin", m.UpdatedBy)
	})

	mt.Run("empty", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		_, err := newTestStorage(mt).Margins(context.Background())

		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	mt.Run("save", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		require.NoError(t, newTestStorage(mt).SaveMargins(context.Background(), types.DefaultMarginConfig()))
	})
}

func TestConnect_Validation(t *testing.T) {
	t.Parallel()

	_, _, err := Connect(context.Background(), "", "remesas", time.Second)
	assert.ErrorIs(t, err, errMissingURI)

	_, _, err = Connect(context.Background(), "mongodb://localhost:27017", "", time.Second)
	assert.ErrorIs(t, err, errMissingDatabase)
}

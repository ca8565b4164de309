package mock

import (
	"context"

	"github.com/sig-0/remesas/storage/types"
)

type (
	SaveTransactionDelegate   func(context.Context, *types.Transaction) error
	UpdateTransactionDelegate func(context.Context, *types.Transaction, types.Status) error
	TransactionDelegate       func(context.Context, string) (*types.Transaction, error)
	TransactionsDelegate      func(context.Context, *types.TransactionQuery) (*types.Page[*types.Transaction], error)
	SaveAccountDelegate       func(context.Context, *types.AdminAccount) error
	DeleteAccountDelegate     func(context.Context, string) error
	AccountsDelegate          func(context.Context) ([]*types.AdminAccount, error)
	MarginsDelegate           func(context.Context) (types.MarginConfig, error)
	SaveMarginsDelegate       func(context.Context, types.MarginConfig) error
	WatchMarginsDelegate      func(context.Context) (<-chan types.MarginConfig, error)
)

type Storage struct {
	SaveTransactionFn   SaveTransactionDelegate
	UpdateTransactionFn UpdateTransactionDelegate
	TransactionFn       TransactionDelegate
	TransactionsFn      TransactionsDelegate
	SaveAccountFn       SaveAccountDelegate
	DeleteAccountFn     DeleteAccountDelegate
	AccountsFn          AccountsDelegate
	MarginsFn           MarginsDelegate
	SaveMarginsFn       SaveMarginsDelegate
	WatchMarginsFn      WatchMarginsDelegate
}

func (m *Storage) SaveTransaction(ctx context.Context, tx *types.Transaction) error {
	if m.SaveTransactionFn != nil {
		return m.SaveTransactionFn(ctx, tx)
	}

	return nil
}

func (m *Storage) UpdateTransaction(ctx context.Context, tx *types.Transaction, from types.Status) error {
	if m.UpdateTransactionFn != nil {
		return m.UpdateTransactionFn(ctx, tx, from)
	}

	return nil
}

func (m *Storage) Transaction(ctx context.Context, id string) (*types.Transaction, error) {
	if m.TransactionFn != nil {
		return m.TransactionFn(ctx, id)
	}

	return nil, nil
}

func (m *Storage) Transactions(
	ctx context.Context,
	query *types.TransactionQuery,
) (*types.Page[*types.Transaction], error) {
	if m.TransactionsFn != nil {
		return m.TransactionsFn(ctx, query)
	}

	return nil, nil
}

func (m *Storage) SaveAccount(ctx context.Context, acc *types.AdminAccount) error {
	if m.SaveAccountFn != nil {
		return m.SaveAccountFn(ctx, acc)
	}

	return nil
}

func (m *Storage) DeleteAccount(ctx context.Context, id string) error {
	if m.DeleteAccountFn != nil {
		return m.DeleteAccountFn(ctx, id)
	}

	return nil
}

func (m *Storage) Accounts(ctx context.Context) ([]*types.AdminAccount, error) {
	if m.AccountsFn != nil {
		return m.AccountsFn(ctx)
	}

	return nil, nil
}

func (m *Storage) Margins(ctx context.Context) (types.MarginConfig, error) {
	if m.MarginsFn != nil {
		return m.MarginsFn(ctx)
	}

	return types.MarginConfig{}, nil
}

func (m *Storage) SaveMargins(ctx context.Context, c types.MarginConfig) error {
	if m.SaveMarginsFn != nil {
		return m.SaveMarginsFn(ctx, c)
	}

	return nil
}

func (m *Storage) WatchMargins(ctx context.Context) (<-chan types.MarginConfig, error) {
	if m.WatchMarginsFn != nil {
		return m.WatchMarginsFn(ctx)
	}

	return nil, nil
}

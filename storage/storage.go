package storage

import (
	"context"
	"errors"

	"github.com/sig-0/remesas/storage/types"
)

var (
	// ErrNotFound is returned when the requested document does not exist
	ErrNotFound = errors.New("not found")

	// ErrStatusConflict is returned when a transaction changed status
	// since it was read
	ErrStatusConflict = errors.New("transaction status changed concurrently")

	// ErrDuplicate is returned when a document with the same ID exists
	ErrDuplicate = errors.New("duplicate document")
)

// Storage is an abstraction over the settlement documents.
// Every operation touches a single document
type Storage interface {
	// SaveTransaction inserts a new transaction
	SaveTransaction(context.Context, *types.Transaction) error

	// UpdateTransaction replaces the transaction with the same ID,
	// only if its stored status is still the given status
	UpdateTransaction(ctx context.Context, tx *types.Transaction, from types.Status) error

	// Transaction fetches a single transaction by ID
	Transaction(ctx context.Context, id string) (*types.Transaction, error)

	// Transactions lists transactions matching the query, newest first
	Transactions(context.Context, *types.TransactionQuery) (*types.Page[*types.Transaction], error)

	// SaveAccount inserts or replaces an admin account
	SaveAccount(context.Context, *types.AdminAccount) error

	// DeleteAccount deletes an admin account by ID
	DeleteAccount(ctx context.Context, id string) error

	// Accounts lists all admin accounts, oldest first
	Accounts(context.Context) ([]*types.AdminAccount, error)

	// Margins fetches the stored margin configuration.
	// ErrNotFound is returned if none was ever saved
	Margins(context.Context) (types.MarginConfig, error)

	// SaveMargins stores the margin configuration, and notifies watchers
	SaveMargins(context.Context, types.MarginConfig) error

	// WatchMargins subscribes to margin configuration changes.
	// The channel is closed once the context is done
	WatchMargins(context.Context) (<-chan types.MarginConfig, error)
}

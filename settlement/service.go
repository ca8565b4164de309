package settlement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sig-0/remesas/provider/currencies"
	"github.com/sig-0/remesas/rates"
	"github.com/sig-0/remesas/storage"
	"github.com/sig-0/remesas/storage/types"
)

// RateBook is the owner of the current rate snapshot
type RateBook interface {
	// Current returns the latest rate snapshot, if any
	Current() *rates.Snapshot

	// Margins returns the margin configuration in effect
	Margins() types.MarginConfig

	// SetMargins applies a new margin configuration
	SetMargins(types.MarginConfig) error
}

// Service is the admin-mediated manual settlement workflow
type Service struct {
	store  storage.Storage
	book   RateBook
	logger *slog.Logger
	admins map[string]struct{}
	now    func() time.Time

	marginsMux sync.Mutex
}

// NewService creates a new settlement service
func NewService(store storage.Storage, book RateBook, opts ...Option) *Service {
	s := &Service{
		store:  store,
		book:   book,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		admins: make(map[string]struct{}),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// IsAdmin returns true if the identity is in the admin allow-list
func (s *Service) IsAdmin(id string) bool {
	if id == "" {
		return false
	}

	_, ok := s.admins[id]

	return ok
}

func (s *Service) requireAdmin(id string) error {
	if !s.IsAdmin(id) {
		return ErrNotAuthorized
	}

	return nil
}

// CreateRequest is a user's intent to convert an amount
type CreateRequest struct {
	Recipient  *types.Recipient `json:"recipient,omitempty"`
	From       types.Currency   `json:"from"`
	To         types.Currency   `json:"to"`
	AmountSend float64          `json:"amount_send"`
}

// CreateTransaction records a pending transaction at the current rates.
// The receive amount is rounded up to 2 decimal places
func (s *Service) CreateTransaction(
	ctx context.Context,
	userID string,
	req CreateRequest,
) (*types.Transaction, error) {
	if userID == "" {
		return nil, ErrNotAuthorized
	}

	verr := newValidationError()

	if !currencies.IsSupported(req.From) {
		verr.add("from", "unsupported currency")
	}

	if !currencies.IsSupported(req.To) {
		verr.add("to", "unsupported currency")
	}

	if req.From == req.To {
		verr.add("to", "must differ from the source currency")
	}

	if req.To == currencies.VES {
		validateRecipient(req.Recipient, verr)
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}

	snap := s.book.Current()
	if snap == nil {
		return nil, ErrRatesUnavailable
	}

	conv, err := snap.Matrix.Quote(req.From, req.To, req.AmountSend)
	if err != nil {
		return nil, err
	}

	var (
		now = s.now().UTC()
		tx  = &types.Transaction{
			CreatedAt:       now,
			UpdatedAt:       now,
			Recipient:       req.Recipient,
			ID:              xid.New().String(),
			UserID:          userID,
			FromCurrency:    req.From,
			ToCurrency:      req.To,
			Status:          types.StatusPending,
			AmountSend:      conv.Amount,
			AmountReceive:   conv.Receive,
			RateApplied:     conv.Rate,
			SnapshotVersion: snap.Version,
		}
	)

	if err = s.store.SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("unable to save transaction: %w", err)
	}

	s.logger.Info(
		"transaction created",
		"id", tx.ID,
		"from", tx.FromCurrency,
		"to", tx.ToCurrency,
		"amount_send", tx.AmountSend,
		"amount_receive", tx.AmountReceive,
		"snapshot_version", tx.SnapshotVersion,
	)

	return tx, nil
}

// Transaction fetches a single transaction, visible to its owner and admins
func (s *Service) Transaction(ctx context.Context, callerID, txID string) (*types.Transaction, error) {
	tx, err := s.store.Transaction(ctx, txID)
	if err != nil {
		return nil, err
	}

	if tx.UserID != callerID && !s.IsAdmin(callerID) {
		// Do not disclose the existence of other users' transactions
		return nil, ErrNotFound
	}

	return tx, nil
}

// Transactions lists the user's own transactions, newest first
func (s *Service) Transactions(
	ctx context.Context,
	userID string,
	limit, offset uint,
) (*types.Page[*types.Transaction], error) {
	if userID == "" {
		return nil, ErrNotAuthorized
	}

	return s.store.Transactions(ctx, &types.TransactionQuery{
		UserID: &userID,
		Limit:  limit,
		Offset: offset,
	})
}

// AllTransactions lists every transaction matching the query [ADMIN]
func (s *Service) AllTransactions(
	ctx context.Context,
	adminID string,
	query *types.TransactionQuery,
) (*types.Page[*types.Transaction], error) {
	if err := s.requireAdmin(adminID); err != nil {
		return nil, err
	}

	return s.store.Transactions(ctx, query)
}

// AttachUserReceipt attaches the user's payment receipt to their pending
// transaction, moving it to processing
func (s *Service) AttachUserReceipt(
	ctx context.Context,
	userID, txID, receiptURL string,
) (*types.Transaction, error) {
	if err := validateReceiptURL(receiptURL); err != nil {
		return nil, err
	}

	tx, err := s.store.Transaction(ctx, txID)
	if err != nil {
		return nil, err
	}

	if tx.UserID != userID {
		return nil, ErrNotAuthorized
	}

	if tx.Status != types.StatusPending {
		return nil, fmt.Errorf(
			"%w: receipts are only accepted for pending transactions, got %s",
			ErrInvalidTransition,
			tx.Status,
		)
	}

	updated := *tx
	updated.UserReceiptURL = receiptURL
	updated.Status = types.StatusProcessing
	updated.UpdatedAt = s.now().UTC()

	if err = s.store.UpdateTransaction(ctx, &updated, tx.Status); err != nil {
		return nil, wrapUpdateError(err)
	}

	s.logger.Info(
		"user receipt attached",
		"id", tx.ID,
	)

	return &updated, nil
}

// allowedTransitions are the status changes an admin can make
var allowedTransitions = map[types.Status][]types.Status{
	types.StatusPending: {
		types.StatusProcessing,
		types.StatusCompleted,
		types.StatusCancelled,
	},
	types.StatusProcessing: {
		types.StatusCompleted,
		types.StatusCancelled,
	},
}

// CanTransition returns true if an admin may move a transaction between the statuses
func CanTransition(from, to types.Status) bool {
	if from.Terminal() {
		return false
	}

	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}

	return false
}

// UpdateStatus changes the status of a transaction [ADMIN].
// Completing a transaction requires an admin receipt, either given
// with this change or attached earlier
func (s *Service) UpdateStatus(
	ctx context.Context,
	adminID, txID string,
	status types.Status,
	adminReceiptURL string,
) (*types.Transaction, error) {
	if err := s.requireAdmin(adminID); err != nil {
		return nil, err
	}

	if !status.Valid() {
		verr := newValidationError()
		verr.add("status", "unknown status")

		return nil, verr
	}

	if adminReceiptURL != "" {
		if err := validateReceiptURL(adminReceiptURL); err != nil {
			return nil, err
		}
	}

	tx, err := s.store.Transaction(ctx, txID)
	if err != nil {
		return nil, err
	}

	if !CanTransition(tx.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, tx.Status, status)
	}

	updated := *tx
	updated.Status = status
	updated.UpdatedAt = s.now().UTC()

	if adminReceiptURL != "" {
		updated.AdminReceiptURL = adminReceiptURL
	}

	if status == types.StatusCompleted && updated.AdminReceiptURL == "" {
		return nil, ErrReceiptRequired
	}

	if err = s.store.UpdateTransaction(ctx, &updated, tx.Status); err != nil {
		return nil, wrapUpdateError(err)
	}

	s.logger.Info(
		"transaction status updated",
		"id", tx.ID,
		"from", tx.Status,
		"to", status,
		"admin", adminID,
	)

	return &updated, nil
}

// wrapUpdateError maps a concurrent status change to an invalid transition
func wrapUpdateError(err error) error {
	if errors.Is(err, storage.ErrStatusConflict) {
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}

	if errors.Is(err, storage.ErrNotFound) {
		return err
	}

	return fmt.Errorf("unable to update transaction: %w", err)
}

package sql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sig-0/remesas/storage"
	"github.com/sig-0/remesas/storage/types"
)

// uniqueViolation is the postgres error code of a unique constraint violation
const uniqueViolation = "23505"

// marginPlaces is the number of decimal places stored for margin fractions
const marginPlaces = 6

type Storage struct {
	pool *pgxpool.Pool
}

func NewStorage(pool *pgxpool.Pool) *Storage {
	return &Storage{
		pool: pool,
	}
}

func (s *Storage) SaveTransaction(ctx context.Context, tx *types.Transaction) error {
	recipient, err := encodeRecipient(tx.Recipient)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(
		ctx,
		saveTransaction,
		tx.ID,
		tx.UserID,
		tx.FromCurrency.String(),
		tx.ToCurrency.String(),
		tx.Status.String(),
		tx.AmountSend,
		tx.AmountReceive,
		tx.RateApplied,
		int64(tx.SnapshotVersion), //nolint:gosec // versions stay far below the int64 range
		recipient,
		tx.UserReceiptURL,
		tx.AdminReceiptURL,
		timeToTimestampz(tx.CreatedAt),
		timeToTimestampz(tx.UpdatedAt),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return storage.ErrDuplicate
		}

		return fmt.Errorf("unable to save transaction: %w", err)
	}

	return nil
}

func (s *Storage) UpdateTransaction(ctx context.Context, tx *types.Transaction, from types.Status) error {
	recipient, err := encodeRecipient(tx.Recipient)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(
		ctx,
		updateTransaction,
		tx.ID,
		tx.Status.String(),
		recipient,
		tx.UserReceiptURL,
		tx.AdminReceiptURL,
		timeToTimestampz(tx.UpdatedAt),
		from.String(),
	)
	if err != nil {
		return fmt.Errorf("unable to update transaction: %w", err)
	}

	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing was updated, the transaction is either missing
	// or no longer in the expected status
	var exists bool
	if err = s.pool.QueryRow(ctx, transactionExists, tx.ID).Scan(&exists); err != nil {
		return fmt.Errorf("unable to check transaction: %w", err)
	}

	if !exists {
		return storage.ErrNotFound
	}

	return storage.ErrStatusConflict
}

func (s *Storage) Transaction(ctx context.Context, id string) (*types.Transaction, error) {
	tx, err := scanTransaction(s.pool.QueryRow(ctx, transactionByID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("unable to fetch transaction: %w", err)
	}

	return tx, nil
}

func (s *Storage) Transactions(
	ctx context.Context,
	query *types.TransactionQuery,
) (*types.Page[*types.Transaction], error) {
	var (
		userID, status *string
		offset         uint
	)

	if query != nil {
		userID = query.UserID

		if query.Status != nil {
			st := query.Status.String()
			status = &st
		}

		offset = query.Offset
	}

	rows, err := s.pool.Query(
		ctx,
		transactionsQuery,
		userID,
		status,
		int64(query.PageLimit()),
		int64(offset), //nolint:gosec // offsets are bound by the HTTP layer
	)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch transactions: %w", err)
	}
	defer rows.Close()

	var (
		items []*types.Transaction
		total int64
	)

	for rows.Next() {
		tx, err := scanTransaction(rows, &total)
		if err != nil {
			return nil, fmt.Errorf("unable to scan transaction: %w", err)
		}

		items = append(items, tx)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to fetch transactions: %w", err)
	}

	return &types.Page[*types.Transaction]{
		Results: items,
		Total:   total,
	}, nil
}

func (s *Storage) SaveAccount(ctx context.Context, acc *types.AdminAccount) error {
	_, err := s.pool.Exec(
		ctx,
		saveAccount,
		acc.ID,
		acc.BankName,
		acc.AccountHolder,
		acc.NationalID,
		acc.AccountType,
		acc.AccountNumber,
		acc.Email,
		acc.UpdatedBy,
		timeToTimestampz(acc.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("unable to save account: %w", err)
	}

	return nil
}

func (s *Storage) DeleteAccount(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, deleteAccount, id)
	if err != nil {
		return fmt.Errorf("unable to delete account: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *Storage) Accounts(ctx context.Context) ([]*types.AdminAccount, error) {
	rows, err := s.pool.Query(ctx, listAccounts)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch accounts: %w", err)
	}
	defer rows.Close()

	out := make([]*types.AdminAccount, 0)

	for rows.Next() {
		var (
			acc       types.AdminAccount
			createdAt pgtype.Timestamptz
		)

		if err = rows.Scan(
			&acc.ID,
			&acc.BankName,
			&acc.AccountHolder,
			&acc.NationalID,
			&acc.AccountType,
			&acc.AccountNumber,
			&acc.Email,
			&acc.UpdatedBy,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("unable to scan account: %w", err)
		}

		acc.CreatedAt = timestampzToTime(createdAt)
		out = append(out, &acc)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to fetch accounts: %w", err)
	}

	return out, nil
}

func (s *Storage) Margins(ctx context.Context) (types.MarginConfig, error) {
	var (
		m                       types.MarginConfig
		wldCLP, clpVES, usdtCLP pgtype.Numeric
		updatedAt               pgtype.Timestamptz
	)

	err := s.pool.QueryRow(ctx, selectMargins).Scan(
		&wldCLP,
		&clpVES,
		&usdtCLP,
		&m.UpdatedBy,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.MarginConfig{}, storage.ErrNotFound
		}

		return types.MarginConfig{}, fmt.Errorf("unable to fetch margins: %w", err)
	}

	m.DiscountWLDCLP = numericToFloat(wldCLP)
	m.DiscountCLPVES = numericToFloat(clpVES)
	m.MarginUSDTCLP = numericToFloat(usdtCLP)
	m.UpdatedAt = timestampzToTime(updatedAt)

	return m, nil
}

// SaveMargins upserts the single margin config row.
// Watchers are notified by the table trigger
func (s *Storage) SaveMargins(ctx context.Context, m types.MarginConfig) error {
	_, err := s.pool.Exec(
		ctx,
		saveMargins,
		floatToNumeric(m.DiscountWLDCLP, marginPlaces),
		floatToNumeric(m.DiscountCLPVES, marginPlaces),
		floatToNumeric(m.MarginUSDTCLP, marginPlaces),
		m.UpdatedBy,
		timeToTimestampz(m.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("unable to save margins: %w", err)
	}

	return nil
}

// WatchMargins listens for margin config notifications on a dedicated
// connection, and delivers the re-read configuration on each one
func (s *Storage) WatchMargins(ctx context.Context) (<-chan types.MarginConfig, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to acquire listen connection: %w", err)
	}

	if _, err = conn.Exec(ctx, "LISTEN "+marginChannel); err != nil {
		conn.Release()

		return nil, fmt.Errorf("unable to listen for margin updates: %w", err)
	}

	ch := make(chan types.MarginConfig, 1)

	go func() {
		defer close(ch)

		// The connection still holds the LISTEN, so it is closed
		// instead of going back to the pool
		defer func() {
			closeCtx, cancelFn := context.WithTimeout(context.Background(), time.Second*5)
			defer cancelFn()

			_ = conn.Conn().Close(closeCtx) //nolint:errcheck // best effort
			conn.Release()
		}()

		for {
			if _, err := conn.Conn().WaitForNotification(ctx); err != nil {
				return
			}

			m, err := s.Margins(ctx)
			if err != nil {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case <-ch: // drop the unconsumed update
			default:
			}

			ch <- m
		}
	}()

	return ch, nil
}

// rowScanner is a single row (pgx.Row or pgx.Rows)
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTransaction scans a single transaction row.
// Extra destinations are appended after the transaction columns
func scanTransaction(row rowScanner, extra ...any) (*types.Transaction, error) {
	var (
		tx                   types.Transaction
		from, to, status     string
		version              int64
		recipient            []byte
		createdAt, updatedAt pgtype.Timestamptz
	)

	dest := []any{
		&tx.ID,
		&tx.UserID,
		&from,
		&to,
		&status,
		&tx.AmountSend,
		&tx.AmountReceive,
		&tx.RateApplied,
		&version,
		&recipient,
		&tx.UserReceiptURL,
		&tx.AdminReceiptURL,
		&createdAt,
		&updatedAt,
	}

	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	r, err := decodeRecipient(recipient)
	if err != nil {
		return nil, err
	}

	tx.FromCurrency = types.Currency(from)
	tx.ToCurrency = types.Currency(to)
	tx.Status = types.Status(status)
	tx.SnapshotVersion = uint64(version) //nolint:gosec // stored from a uint64
	tx.Recipient = r
	tx.CreatedAt = timestampzToTime(createdAt)
	tx.UpdatedAt = timestampzToTime(updatedAt)

	return &tx, nil
}

// encodeRecipient encodes the recipient as a JSONB value (nil is NULL)
func encodeRecipient(r *types.Recipient) ([]byte, error) {
	if r == nil {
		return nil, nil
	}

	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("unable to encode recipient: %w", err)
	}

	return raw, nil
}

// decodeRecipient decodes a JSONB recipient value
func decodeRecipient(raw []byte) (*types.Recipient, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil //nolint:nilnil // valid case
	}

	var r types.Recipient
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("unable to decode recipient: %w", err)
	}

	return &r, nil
}

// floatToNumeric converts the float value to postgres numeric,
// rounded to the given number of decimal places
func floatToNumeric(value float64, places int32) pgtype.Numeric {
	i := int64(math.Round(value * math.Pow10(int(places))))

	return pgtype.Numeric{
		Int:   big.NewInt(i),
		Exp:   -places,
		Valid: true,
	}
}

// numericToFloat converts the postgres value to float
func numericToFloat(value pgtype.Numeric) float64 {
	if !value.Valid || value.Int == nil {
		return 0
	}

	f, _ := new(big.Rat).SetInt(value.Int).Float64()

	if value.Exp > 0 {
		f *= math.Pow10(int(value.Exp))
	} else if value.Exp < 0 {
		f /= math.Pow10(int(-value.Exp))
	}

	return f
}

// timeToTimestampz converts the time value to postgres timestamp
func timeToTimestampz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{
		Time:  t.UTC(),
		Valid: true,
	}
}

// timestampzToTime converts the postgres timestamp value to time
func timestampzToTime(ts pgtype.Timestamptz) time.Time {
	if !ts.Valid {
		return time.Time{}
	}

	return ts.Time.UTC()
}

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/sig-0/remesas/storage"
	"github.com/sig-0/remesas/storage/types"
)

type Storage struct {
	transactions map[string]types.Transaction
	accounts     map[string]types.AdminAccount
	margins      *types.MarginConfig
	watchers     map[chan types.MarginConfig]struct{}

	mu sync.RWMutex
}

func NewStorage() *Storage {
	return &Storage{
		transactions: make(map[string]types.Transaction),
		accounts:     make(map[string]types.AdminAccount),
		watchers:     make(map[chan types.MarginConfig]struct{}),
	}
}

func (s *Storage) SaveTransaction(_ context.Context, tx *types.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[tx.ID]; exists {
		return storage.ErrDuplicate
	}

	s.transactions[tx.ID] = cloneTransaction(tx)

	return nil
}

func (s *Storage) UpdateTransaction(_ context.Context, tx *types.Transaction, from types.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.transactions[tx.ID]
	if !ok {
		return storage.ErrNotFound
	}

	if cur.Status != from {
		return storage.ErrStatusConflict
	}

	s.transactions[tx.ID] = cloneTransaction(tx)

	return nil
}

func (s *Storage) Transaction(_ context.Context, id string) (*types.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	cp := cloneTransaction(&tx)

	return &cp, nil
}

func (s *Storage) Transactions(
	_ context.Context,
	query *types.TransactionQuery,
) (*types.Page[*types.Transaction], error) {
	s.mu.RLock()

	out := make([]*types.Transaction, 0)

	for _, tx := range s.transactions {
		if !query.Matches(&tx) {
			continue
		}

		cp := cloneTransaction(&tx)
		out = append(out, &cp)
	}

	s.mu.RUnlock()

	// Newest first, ID as the tie breaker
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}

		return out[i].ID > out[j].ID
	})

	total := int64(len(out))

	var off uint
	if query != nil {
		off = query.Offset
	}

	if int64(off) >= total {
		return &types.Page[*types.Transaction]{
			Results: nil,
			Total:   total,
		}, nil
	}

	start := int(off)
	end := start + int(query.PageLimit())

	if end > len(out) {
		end = len(out)
	}

	return &types.Page[*types.Transaction]{
		Results: out[start:end],
		Total:   total,
	}, nil
}

func (s *Storage) SaveAccount(_ context.Context, acc *types.AdminAccount) error {
	s.mu.Lock()
	s.accounts[acc.ID] = *acc
	s.mu.Unlock()

	return nil
}

func (s *Storage) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; !ok {
		return storage.ErrNotFound
	}

	delete(s.accounts, id)

	return nil
}

func (s *Storage) Accounts(_ context.Context) ([]*types.AdminAccount, error) {
	s.mu.RLock()

	out := make([]*types.AdminAccount, 0, len(s.accounts))

	for _, acc := range s.accounts {
		cp := acc
		out = append(out, &cp)
	}

	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}

		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (s *Storage) Margins(_ context.Context) (types.MarginConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.margins == nil {
		return types.MarginConfig{}, storage.ErrNotFound
	}

	return *s.margins, nil
}

func (s *Storage) SaveMargins(_ context.Context, m types.MarginConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.margins = &m

	for ch := range s.watchers {
		notify(ch, m)
	}

	return nil
}

func (s *Storage) WatchMargins(ctx context.Context) (<-chan types.MarginConfig, error) {
	ch := make(chan types.MarginConfig, 1)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()

		s.mu.Lock()
		delete(s.watchers, ch)
		close(ch)
		s.mu.Unlock()
	}()

	return ch, nil
}

// notify delivers the latest margins to the watcher, replacing any
// update the watcher has not consumed yet
func notify(ch chan types.MarginConfig, m types.MarginConfig) {
	for {
		select {
		case ch <- m:
			return
		default:
		}

		select {
		case <-ch:
		default:
		}
	}
}

func cloneTransaction(tx *types.Transaction) types.Transaction {
	cp := *tx
	cp.CreatedAt = cp.CreatedAt.UTC()
	cp.UpdatedAt = cp.UpdatedAt.UTC()

	if tx.Recipient != nil {
		r := *tx.Recipient
		cp.Recipient = &r
	}

	return cp
}

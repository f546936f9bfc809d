package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// memStore is the shared backing state for the in-memory repositories. It
// models the two properties of the real store that matter here: a per-wallet
// exclusive lock held until commit or rollback, and writes that become
// visible only on commit.
type memStore struct {
	mu           sync.RWMutex
	wallets      map[uuid.UUID]domain.Wallet
	transactions []domain.Transaction

	lockMu    sync.Mutex
	lockChans map[uuid.UUID]chan struct{}
	holders   map[uuid.UUID]int
	maxHeld   map[uuid.UUID]int
}

func newMemStore() *memStore {
	return &memStore{
		wallets:   make(map[uuid.UUID]domain.Wallet),
		lockChans: make(map[uuid.UUID]chan struct{}),
		holders:   make(map[uuid.UUID]int),
		maxHeld:   make(map[uuid.UUID]int),
	}
}

func (s *memStore) lockChan(id uuid.UUID) chan struct{} {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	ch, ok := s.lockChans[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.lockChans[id] = ch
	}
	return ch
}

// acquireLock blocks until the wallet's exclusive lock is granted or ctx
// expires, mirroring a blocking row lock in the database.
func (s *memStore) acquireLock(ctx context.Context, id uuid.UUID) error {
	select {
	case s.lockChan(id) <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.lockMu.Lock()
	s.holders[id]++
	if s.holders[id] > s.maxHeld[id] {
		s.maxHeld[id] = s.holders[id]
	}
	s.lockMu.Unlock()
	return nil
}

func (s *memStore) releaseLock(id uuid.UUID) {
	s.lockMu.Lock()
	s.holders[id]--
	s.lockMu.Unlock()
	<-s.lockChan(id)
}

// maxLockHolders reports the highest number of goroutines that ever held the
// wallet's lock at the same time. Anything above one means the lock failed.
func (s *memStore) maxLockHolders(id uuid.UUID) int {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	return s.maxHeld[id]
}

// --- In-memory transaction ---

// memTx implements pgx.Tx over the in-memory store. Reads under the lock see
// this tx's own pending writes; Commit publishes them and releases held
// locks, Rollback discards them.
type memTx struct {
	store *memStore

	mu             sync.Mutex
	locked         []uuid.UUID
	pendingWallets map[uuid.UUID]domain.Wallet
	pendingRecords []domain.Transaction
	done           bool
}

func newMemTx(store *memStore) *memTx {
	return &memTx{
		store:          store,
		pendingWallets: make(map[uuid.UUID]domain.Wallet),
	}
}

func (t *memTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true

	t.store.mu.Lock()
	for id, w := range t.pendingWallets {
		t.store.wallets[id] = w
	}
	t.store.transactions = append(t.store.transactions, t.pendingRecords...)
	t.store.mu.Unlock()

	t.releaseLocks()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.releaseLocks()
	return nil
}

func (t *memTx) releaseLocks() {
	for _, id := range t.locked {
		t.store.releaseLock(id)
	}
	t.locked = nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *memTx) Conn() *pgx.Conn                                               { return nil }

// --- Transactor ---

type inMemoryTransactor struct {
	store *memStore
}

func newInMemoryTransactor(store *memStore) *inMemoryTransactor {
	return &inMemoryTransactor{store: store}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return newMemTx(t.store), nil
}

// --- Wallet repo ---

type inMemoryWalletRepo struct {
	store *memStore
}

func newInMemoryWalletRepo(store *memStore) *inMemoryWalletRepo {
	return &inMemoryWalletRepo{store: store}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.wallets[w.ID]; ok {
		return ports.ErrDuplicateWallet
	}
	r.store.wallets[w.ID] = *w
	return nil
}

func (r *inMemoryWalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	w, ok := r.store.wallets[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *inMemoryWalletRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.wallets[id]
	return ok, nil
}

func (r *inMemoryWalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	mt, ok := tx.(*memTx)
	if !ok {
		return nil, fmt.Errorf("unexpected tx type %T", tx)
	}

	r.store.mu.RLock()
	_, exists := r.store.wallets[id]
	r.store.mu.RUnlock()
	if !exists {
		return nil, nil
	}

	if err := r.store.acquireLock(ctx, id); err != nil {
		return nil, err
	}
	mt.mu.Lock()
	mt.locked = append(mt.locked, id)
	mt.mu.Unlock()

	// Read after the lock is held so the snapshot reflects all committed
	// writes from earlier lock holders.
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	w, ok := r.store.wallets[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *inMemoryWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal, expectedVersion int64) error {
	mt, ok := tx.(*memTx)
	if !ok {
		return fmt.Errorf("unexpected tx type %T", tx)
	}

	r.store.mu.RLock()
	w, exists := r.store.wallets[id]
	r.store.mu.RUnlock()
	if !exists || w.Version != expectedVersion {
		return ports.ErrVersionMismatch
	}

	w.Balance = balance
	w.Version = expectedVersion + 1
	w.UpdatedAt = time.Now().UTC()

	mt.mu.Lock()
	mt.pendingWallets[id] = w
	mt.mu.Unlock()
	return nil
}

// --- Transaction repo ---

type inMemoryTransactionRepo struct {
	store *memStore
}

func newInMemoryTransactionRepo(store *memStore) *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{store: store}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	mt, ok := tx.(*memTx)
	if !ok {
		return fmt.Errorf("unexpected tx type %T", tx)
	}
	mt.mu.Lock()
	mt.pendingRecords = append(mt.pendingRecords, *t)
	mt.mu.Unlock()
	return nil
}

func (r *inMemoryTransactionRepo) ListByWallet(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.store.mu.RLock()
	var matched []domain.Transaction
	for _, t := range r.store.transactions {
		if t.WalletID != params.WalletID {
			continue
		}
		if params.From != nil && t.CreatedAt.Before(*params.From) {
			continue
		}
		if params.To != nil && t.CreatedAt.After(*params.To) {
			continue
		}
		matched = append(matched, t)
	}
	r.store.mu.RUnlock()

	// Newest first; insertion order breaks ties.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := int64(len(matched))

	if params.Limit > 0 {
		if params.Limit < len(matched) {
			matched = matched[:params.Limit]
		}
		return matched, total, nil
	}

	start := (params.Page - 1) * params.PageSize
	if start >= len(matched) {
		return []domain.Transaction{}, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

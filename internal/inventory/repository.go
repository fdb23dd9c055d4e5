package inventory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrItemNotFound indicates a missing item row.
var ErrItemNotFound = errors.New("inventory item not found")

// ErrLotNotFound indicates a missing lot row.
var ErrLotNotFound = errors.New("inventory lot not found")

// RepositoryPort abstracts repository usage for the ledger and allocator.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetItem(ctx context.Context, sku string) (Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]Item, error)
	ListLots(ctx context.Context, sku string) ([]Lot, error)
	GetLot(ctx context.Context, id string) (Lot, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
}

// TxRepository exposes transactional operations used by the services.
type TxRepository interface {
	GetItem(ctx context.Context, sku string) (Item, error)
	PutItem(ctx context.Context, item Item) error
	InsertTransaction(ctx context.Context, tx Transaction) error
	ListLots(ctx context.Context, sku string) ([]Lot, error)
	FindLot(ctx context.Context, sku, lotNumber string) (Lot, error)
	PutLot(ctx context.Context, lot Lot) error
}

// MemoryRepository keeps items, lots and the transaction journal in memory.
type MemoryRepository struct {
	mu       sync.Mutex
	items    map[string]Item
	itemKeys []string
	lots     map[string]Lot
	lotKeys  []string
	journal  []Transaction
}

// NewMemoryRepository constructs an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items: make(map[string]Item),
		lots:  make(map[string]Lot),
	}
}

// WithTx runs fn against staged writes and commits them only when fn succeeds.
// Transactions are serialised.
func (r *MemoryRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memoryTx{
		repo:  r,
		items: make(map[string]Item),
		lots:  make(map[string]Lot),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// GetItem returns the committed item for sku.
func (r *MemoryRepository) GetItem(_ context.Context, sku string) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[sku]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

// ListItems returns items in registration order.
func (r *MemoryRepository) ListItems(_ context.Context, filter ItemFilter) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]Item, 0, len(r.itemKeys))
	for _, sku := range r.itemKeys {
		item := r.items[sku]
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.Zone != "" && item.Location.Zone != filter.Zone {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(item.SKU), search) && !strings.Contains(strings.ToLower(item.Name), search) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// ListLots returns the lots of sku in registration order.
func (r *MemoryRepository) ListLots(_ context.Context, sku string) ([]Lot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lotsFor(sku, nil), nil
}

// GetLot returns a lot by ID.
func (r *MemoryRepository) GetLot(_ context.Context, id string) (Lot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lot, ok := r.lots[id]
	if !ok {
		return Lot{}, ErrLotNotFound
	}
	return lot, nil
}

// ListTransactions returns journal entries in append order.
func (r *MemoryRepository) ListTransactions(_ context.Context, filter TransactionFilter) ([]Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Transaction, 0, len(r.journal))
	for _, tx := range r.journal {
		if filter.SKU != "" && tx.SKU != filter.SKU {
			continue
		}
		if filter.Kind != "" && tx.Kind != filter.Kind {
			continue
		}
		if filter.Reference != "" && tx.Reference != filter.Reference {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (r *MemoryRepository) lotsFor(sku string, staged map[string]Lot) []Lot {
	out := make([]Lot, 0)
	seen := make(map[string]struct{})
	for _, id := range r.lotKeys {
		lot := r.lots[id]
		if staged != nil {
			if s, ok := staged[id]; ok {
				lot = s
			}
		}
		seen[id] = struct{}{}
		if lot.SKU == sku {
			out = append(out, lot)
		}
	}
	for id, lot := range staged {
		if _, ok := seen[id]; ok || lot.SKU != sku {
			continue
		}
		out = append(out, lot)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

type memoryTx struct {
	repo     *MemoryRepository
	items    map[string]Item
	newItems []string
	lots     map[string]Lot
	newLots  []string
	journal  []Transaction
}

func (tx *memoryTx) GetItem(_ context.Context, sku string) (Item, error) {
	if item, ok := tx.items[sku]; ok {
		return item, nil
	}
	item, ok := tx.repo.items[sku]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

func (tx *memoryTx) PutItem(_ context.Context, item Item) error {
	if item.SKU == "" {
		return errors.New("inventory: sku required")
	}
	_, committed := tx.repo.items[item.SKU]
	_, staged := tx.items[item.SKU]
	if !committed && !staged {
		tx.newItems = append(tx.newItems, item.SKU)
	}
	tx.items[item.SKU] = item
	return nil
}

func (tx *memoryTx) InsertTransaction(_ context.Context, entry Transaction) error {
	if entry.ID == "" {
		return errors.New("inventory: transaction id required")
	}
	tx.journal = append(tx.journal, entry)
	return nil
}

func (tx *memoryTx) ListLots(_ context.Context, sku string) ([]Lot, error) {
	return tx.repo.lotsFor(sku, tx.lots), nil
}

func (tx *memoryTx) FindLot(ctx context.Context, sku, lotNumber string) (Lot, error) {
	lots, _ := tx.ListLots(ctx, sku)
	for _, lot := range lots {
		if lot.LotNumber == lotNumber {
			return lot, nil
		}
	}
	return Lot{}, ErrLotNotFound
}

func (tx *memoryTx) PutLot(_ context.Context, lot Lot) error {
	if lot.ID == "" {
		return errors.New("inventory: lot id required")
	}
	_, committed := tx.repo.lots[lot.ID]
	_, staged := tx.lots[lot.ID]
	if !committed && !staged {
		lot.seq = len(tx.repo.lotKeys) + len(tx.newLots)
		tx.newLots = append(tx.newLots, lot.ID)
	}
	tx.lots[lot.ID] = lot
	return nil
}

func (tx *memoryTx) commit() {
	r := tx.repo
	for sku, item := range tx.items {
		r.items[sku] = item
	}
	r.itemKeys = append(r.itemKeys, tx.newItems...)
	for id, lot := range tx.lots {
		r.lots[id] = lot
	}
	r.lotKeys = append(r.lotKeys, tx.newLots...)
	r.journal = append(r.journal, tx.journal...)
}

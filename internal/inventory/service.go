package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	Underflow UnderflowPolicy
}

// Ledger owns per-SKU on-hand quantity, location and the transaction journal.
type Ledger struct {
	repo      RepositoryPort
	deps      shared.Deps
	underflow UnderflowPolicy
	handler   PostingHandler

	srcMu   sync.RWMutex
	sources []ReservationSource
}

// NewLedger builds Ledger.
func NewLedger(repo RepositoryPort, cfg ServiceConfig, deps shared.Deps) *Ledger {
	policy := cfg.Underflow
	if !policy.IsValid() {
		policy = UnderflowClamp
	}
	return &Ledger{repo: repo, deps: deps.WithDefaults(), underflow: policy}
}

// SetPostingHandler registers a hook invoked after each committed quantity change.
func (l *Ledger) SetPostingHandler(h PostingHandler) {
	l.handler = h
}

// AddReservationSource registers a component whose open records hold stock.
func (l *Ledger) AddReservationSource(src ReservationSource) {
	if src == nil {
		return
	}
	l.srcMu.Lock()
	l.sources = append(l.sources, src)
	l.srcMu.Unlock()
}

// RegisterItem seeds a catalog item.
func (l *Ledger) RegisterItem(ctx context.Context, req RegisterItemRequest) (Item, error) {
	if err := l.deps.Validator.Struct(req); err != nil {
		return Item{}, fmt.Errorf("inventory: register item: %w", err)
	}
	loc, err := ParseLocation(req.Location)
	if err != nil {
		return Item{}, err
	}
	item := Item{
		SKU:         req.SKU,
		Name:        req.Name,
		Location:    loc,
		SafetyStock: req.SafetyStock,
		OnHand:      req.OnHand,
	}
	if req.Defect {
		item.Status = StatusDefect
	}
	item.refreshStatus()
	err = l.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetItem(ctx, req.SKU); err == nil {
			return ErrDuplicateSKU
		} else if !errors.Is(err, ErrItemNotFound) {
			return err
		}
		return tx.PutItem(ctx, item)
	})
	if err != nil {
		return Item{}, err
	}
	return item, nil
}

// Adjust applies delta to the on-hand quantity of sku and appends a transaction.
func (l *Ledger) Adjust(ctx context.Context, sku string, delta int, kind TransactionKind, reason string) (Transaction, error) {
	return l.Post(ctx, AdjustInput{SKU: sku, Delta: delta, Kind: kind, Reason: reason})
}

// Post applies a quantity change. Under the clamp policy the on-hand quantity
// never drops below zero and the transaction keeps the requested delta in
// Requested; under the reject policy an underflow returns ErrNegativeStock.
func (l *Ledger) Post(ctx context.Context, input AdjustInput) (Transaction, error) {
	if input.Delta == 0 {
		return Transaction{}, ErrInvalidQuantity
	}
	if !input.Kind.IsValid() || input.Kind == KindRelocation {
		return Transaction{}, fmt.Errorf("%w: %q", ErrInvalidKind, input.Kind)
	}
	var (
		entry  Transaction
		before Item
		after  Item
	)
	err := l.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItem(ctx, input.SKU)
		if err != nil {
			return l.missing(input.SKU, err)
		}
		before = item
		applied := input.Delta
		if item.OnHand+applied < 0 {
			if l.underflow == UnderflowReject {
				return ErrNegativeStock
			}
			applied = -item.OnHand
		}
		item.OnHand += applied
		item.refreshStatus()
		entry = Transaction{
			ID:        l.deps.IDs.NewID("TX"),
			SKU:       input.SKU,
			Kind:      input.Kind,
			Delta:     applied,
			Requested: input.Delta,
			Location:  item.Location,
			Reason:    input.Reason,
			Reference: input.Reference,
			At:        l.deps.Clock.Now(),
		}
		if err := tx.InsertTransaction(ctx, entry); err != nil {
			return err
		}
		after = item
		return tx.PutItem(ctx, item)
	})
	if err != nil {
		if errors.Is(err, ErrNegativeStock) {
			l.deps.Logger.Warn("inventory adjustment rejected",
				slog.String("sku", input.SKU),
				slog.Int("delta", input.Delta),
				slog.String("kind", string(input.Kind)))
		}
		return Transaction{}, err
	}
	l.deps.Metrics.ObservePosting(string(entry.Kind), entry.Delta)
	l.deps.Logger.Debug("inventory posted",
		slog.String("tx", entry.ID),
		slog.String("sku", entry.SKU),
		slog.String("kind", string(entry.Kind)),
		slog.Int("delta", entry.Delta),
		slog.Int("requested", entry.Requested),
		slog.Int("on_hand", after.OnHand))
	l.notify(ctx, entry, before, after)
	return entry, nil
}

// Relocate overwrites the item's location and appends a zero-delta relocation entry.
func (l *Ledger) Relocate(ctx context.Context, sku string, to Location, reason string) (Transaction, error) {
	return l.PostRelocation(ctx, RelocationInput{SKU: sku, To: to, Reason: reason})
}

// PostRelocation is Relocate with a reference to the originating record.
func (l *Ledger) PostRelocation(ctx context.Context, input RelocationInput) (Transaction, error) {
	if input.To.IsZero() {
		return Transaction{}, ErrInvalidLocation
	}
	var entry Transaction
	err := l.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItem(ctx, input.SKU)
		if err != nil {
			return l.missing(input.SKU, err)
		}
		item.Location = input.To
		entry = Transaction{
			ID:        l.deps.IDs.NewID("TX"),
			SKU:       input.SKU,
			Kind:      KindRelocation,
			Location:  input.To,
			Reason:    input.Reason,
			Reference: input.Reference,
			At:        l.deps.Clock.Now(),
		}
		if err := tx.InsertTransaction(ctx, entry); err != nil {
			return err
		}
		return tx.PutItem(ctx, item)
	})
	if err != nil {
		return Transaction{}, err
	}
	l.deps.Metrics.ObservePosting(string(KindRelocation), 0)
	l.deps.Logger.Debug("inventory relocated",
		slog.String("tx", entry.ID),
		slog.String("sku", entry.SKU),
		slog.String("to", input.To.String()))
	return entry, nil
}

// MarkDefect tags sku as defective; the tag survives later postings.
func (l *Ledger) MarkDefect(ctx context.Context, sku string) error {
	return l.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItem(ctx, sku)
		if err != nil {
			return l.missing(sku, err)
		}
		item.Status = StatusDefect
		return tx.PutItem(ctx, item)
	})
}

// Item returns the stock record for sku.
func (l *Ledger) Item(ctx context.Context, sku string) (Item, error) {
	item, err := l.repo.GetItem(ctx, sku)
	if err != nil {
		return Item{}, l.missing(sku, err)
	}
	return item, nil
}

// Items lists stock records matching filter.
func (l *Ledger) Items(ctx context.Context, filter ItemFilter) ([]Item, error) {
	return l.repo.ListItems(ctx, filter)
}

// Transactions lists journal entries matching filter in append order.
func (l *Ledger) Transactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	return l.repo.ListTransactions(ctx, filter)
}

// OnHand returns the on-hand quantity of sku, zero when unknown.
func (l *Ledger) OnHand(ctx context.Context, sku string) int {
	item, err := l.repo.GetItem(ctx, sku)
	if err != nil {
		return 0
	}
	return item.OnHand
}

// ReservedQuantity sums the quantity held by open records across all sources.
func (l *Ledger) ReservedQuantity(sku string) int {
	return l.reservedExcept(sku, nil)
}

// AvailableQuantity is max(0, on-hand - reserved).
func (l *Ledger) AvailableQuantity(ctx context.Context, sku string) int {
	return max(0, l.OnHand(ctx, sku)-l.ReservedQuantity(sku))
}

// AvailableQuantityExcept returns on-hand minus the reservations of every
// source other than except, without clamping. Sources call it while holding
// their own lock so they can add their own reservations themselves.
func (l *Ledger) AvailableQuantityExcept(ctx context.Context, sku string, except ReservationSource) int {
	return l.OnHand(ctx, sku) - l.reservedExcept(sku, except)
}

func (l *Ledger) reservedExcept(sku string, except ReservationSource) int {
	l.srcMu.RLock()
	sources := make([]ReservationSource, len(l.sources))
	copy(sources, l.sources)
	l.srcMu.RUnlock()

	total := 0
	for _, src := range sources {
		if except != nil && src == except {
			continue
		}
		total += src.ReservedQuantity(sku)
	}
	return total
}

func (l *Ledger) missing(sku string, err error) error {
	if errors.Is(err, ErrItemNotFound) {
		return fmt.Errorf("inventory: sku %s: %w", sku, shared.ErrNotFound)
	}
	return err
}

func (l *Ledger) notify(ctx context.Context, entry Transaction, before, after Item) {
	if l.handler == nil {
		return
	}
	evt := StockPostedEvent{
		TransactionID: entry.ID,
		SKU:           entry.SKU,
		Kind:          entry.Kind,
		Delta:         entry.Delta,
		OnHand:        after.OnHand,
		SafetyStock:   after.SafetyStock,
		Status:        after.Status,
		PreviousState: before.Status,
		PostedAt:      entry.At,
	}
	if err := l.handler.HandleStockPosted(ctx, evt); err != nil {
		l.deps.Logger.Warn("stock posted hook", slog.String("tx", entry.ID), slog.Any("error", err))
	}
}

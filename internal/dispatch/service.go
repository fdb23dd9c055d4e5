package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

const workflowName = "dispatch"

// InventoryService defines the ledger operations dispatching needs.
type InventoryService interface {
	Item(ctx context.Context, sku string) (inventory.Item, error)
	Post(ctx context.Context, input inventory.AdjustInput) (inventory.Transaction, error)
	AvailableQuantityExcept(ctx context.Context, sku string, except inventory.ReservationSource) int
}

// LotAllocator picks lots for shipped allocations.
type LotAllocator interface {
	AllocateFEFOFor(ctx context.Context, sku string, qty int, reference string) (inventory.Allocation, error)
}

// Ledger records stock dispatches and the allocations awaiting them.
type Ledger struct {
	mu          sync.Mutex
	orders      map[string]*Order
	order       []string
	allocations map[string]*Allocation
	allocOrder  []string
	inventory   InventoryService
	lots        LotAllocator
	deps        shared.Deps
}

// NewLedger constructs a dispatch ledger. With a nil inv dispatches are only
// recorded; the outbound posting is left to the caller.
func NewLedger(inv InventoryService, deps shared.Deps) *Ledger {
	return &Ledger{
		orders:      make(map[string]*Order),
		allocations: make(map[string]*Allocation),
		inventory:   inv,
		deps:        deps.WithDefaults(),
	}
}

// SetLotAllocator makes Ship consume lots in expiry order.
func (l *Ledger) SetLotAllocator(a LotAllocator) {
	l.mu.Lock()
	l.lots = a
	l.mu.Unlock()
}

// CreateDispatch records one completed dispatch.
func (l *Ledger) CreateDispatch(ctx context.Context, req CreateRequest) (Order, error) {
	orders, err := l.CreateBulkDispatch(ctx, []CreateRequest{req})
	if err != nil {
		return Order{}, err
	}
	return orders[0], nil
}

// CreateBulkDispatch records several dispatches as one unit. Every line is
// validated and checked against available stock before anything is posted.
func (l *Ledger) CreateBulkDispatch(ctx context.Context, reqs []CreateRequest) ([]Order, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyBatch
	}
	for i, req := range reqs {
		if err := l.deps.Validator.Struct(req); err != nil {
			return nil, fmt.Errorf("dispatch line %d: %w", i+1, err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	staged := make([]*Order, 0, len(reqs))
	demand := make(map[string]int)
	for _, req := range reqs {
		o, err := l.build(ctx, req)
		if err != nil {
			return nil, err
		}
		staged = append(staged, o)
		demand[o.SKU] += o.Quantity
	}
	if err := l.checkAvailable(ctx, demand); err != nil {
		return nil, err
	}

	posted := make([]*Order, 0, len(staged))
	for _, o := range staged {
		if err := l.take(ctx, o, "dispatch"); err != nil {
			l.rollback(ctx, posted)
			return nil, err
		}
		posted = append(posted, o)
	}

	out := make([]Order, 0, len(staged))
	for _, o := range staged {
		l.insert(o)
		l.deps.Metrics.ObserveTransition(workflowName, "create", string(shared.OutcomeApplied))
		l.record(ctx, "create", o.ID, o.SKU, o.Quantity, string(o.Status))
		out = append(out, *o)
	}
	return out, nil
}

// CancelDispatch cancels completed dispatches and puts the quantity they took
// off hand back with an adjustment.
func (l *Ledger) CancelDispatch(ctx context.Context, ids []string) (shared.BatchResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var res shared.BatchResult
	for _, id := range shared.UniqueIDs(ids) {
		o, ok := l.orders[id]
		if !ok {
			l.note("cancel", &res, id, shared.OutcomeNotFound)
			continue
		}
		if !o.Status.CanCancel() {
			l.note("cancel", &res, id, shared.OutcomeSkippedInvalidState)
			continue
		}
		if err := l.giveBack(ctx, o, "dispatch canceled"); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				l.note("cancel", &res, id, shared.OutcomeNotFound)
				continue
			}
			l.deps.Logger.Warn("dispatch cancel failed", slog.String("id", id), slog.Any("error", err))
			return res, err
		}
		now := l.deps.Clock.Now()
		o.Status = StatusCanceled
		o.CanceledAt = &now
		l.note("cancel", &res, id, shared.OutcomeApplied)
		l.record(ctx, "cancel", o.ID, o.SKU, o.Quantity, string(o.Status))
	}
	return res, nil
}

// Allocate reserves available stock for a later shipment.
func (l *Ledger) Allocate(ctx context.Context, req AllocateRequest) (Allocation, error) {
	if err := l.deps.Validator.Struct(req); err != nil {
		return Allocation{}, fmt.Errorf("dispatch: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inventory != nil {
		if _, err := l.inventory.Item(ctx, req.SKU); err != nil {
			return Allocation{}, fmt.Errorf("dispatch: allocate: %w", err)
		}
		if err := l.checkAvailable(ctx, map[string]int{req.SKU: req.Quantity}); err != nil {
			return Allocation{}, err
		}
	}
	a := &Allocation{
		ID:        l.deps.IDs.NewID("AL"),
		Owner:     req.Owner,
		SKU:       req.SKU,
		Quantity:  req.Quantity,
		Status:    AllocationOpen,
		Note:      req.Note,
		CreatedAt: l.deps.Clock.Now(),
	}
	l.allocations[a.ID] = a
	l.allocOrder = append(l.allocOrder, a.ID)
	l.deps.Metrics.ObserveTransition(workflowName, "allocate", string(shared.OutcomeApplied))
	l.record(ctx, "allocate", a.ID, a.SKU, a.Quantity, string(a.Status))
	return *a, nil
}

// Release gives the stock of open allocations back.
func (l *Ledger) Release(ctx context.Context, ids []string) shared.BatchResult {
	res, _ := l.batchAllocations(ctx, "release", ids, func(_ context.Context, a *Allocation) error {
		now := l.deps.Clock.Now()
		a.Status = AllocationReleased
		a.ClosedAt = &now
		return nil
	})
	return res
}

// Ship turns open allocations into completed dispatches. The outbound posting,
// the lot picks and the new dispatch record belong to the same step.
func (l *Ledger) Ship(ctx context.Context, ids []string) (shared.BatchResult, error) {
	return l.batchAllocations(ctx, "ship", ids, func(ctx context.Context, a *Allocation) error {
		o, err := l.build(ctx, CreateRequest{Owner: a.Owner, SKU: a.SKU, Quantity: a.Quantity, Note: a.Note})
		if err != nil {
			return err
		}
		o.AllocationID = a.ID
		if err := l.take(ctx, o, "allocation shipped"); err != nil {
			return err
		}
		if l.lots != nil {
			picked, err := l.lots.AllocateFEFOFor(ctx, o.SKU, o.Quantity, o.ID)
			if err != nil {
				l.rollback(ctx, []*Order{o})
				return err
			}
			o.Picks = picked.Picks
		}
		l.insert(o)
		l.deps.Metrics.ObserveTransition(workflowName, "create", string(shared.OutcomeApplied))
		l.record(ctx, "create", o.ID, o.SKU, o.Quantity, string(o.Status))
		now := l.deps.Clock.Now()
		a.Status = AllocationShipped
		a.DispatchID = o.ID
		a.ClosedAt = &now
		return nil
	})
}

// ReservedQuantity sums open allocations for sku.
func (l *Ledger) ReservedQuantity(sku string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reserved(sku)
}

// Get returns a dispatch by ID.
func (l *Ledger) Get(id string) (Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("dispatch %s: %w", id, shared.ErrNotFound)
	}
	return clone(o), nil
}

// List returns dispatches matching filter in creation order.
func (l *Ledger) List(filter Filter) []Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Order, 0, len(l.order))
	for _, id := range l.order {
		o := l.orders[id]
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.SKU != "" && o.SKU != filter.SKU {
			continue
		}
		if filter.Owner != "" && !strings.EqualFold(o.Owner, filter.Owner) {
			continue
		}
		if !filter.From.IsZero() && o.CompletedOn.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && o.CompletedOn.After(filter.To) {
			continue
		}
		out = append(out, clone(o))
	}
	return out
}

// ListPage is List restricted to one page.
func (l *Ledger) ListPage(filter Filter, page, perPage int) ([]Order, shared.Pagination) {
	return shared.Paginate(l.List(filter), page, perPage)
}

// Allocations returns allocations with the given status, or all when status
// is empty.
func (l *Ledger) Allocations(status AllocationStatus) []Allocation {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Allocation, 0, len(l.allocOrder))
	for _, id := range l.allocOrder {
		a := l.allocations[id]
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, *a)
	}
	return out
}

// Counts returns the number of dispatches per status.
func (l *Ledger) Counts() map[Status]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	counts := make(map[Status]int, len(Statuses))
	for _, st := range Statuses {
		counts[st] = 0
	}
	for _, o := range l.orders {
		counts[o.Status]++
	}
	return counts
}

func (l *Ledger) build(ctx context.Context, req CreateRequest) (*Order, error) {
	var loc inventory.Location
	if req.Location != "" {
		parsed, err := inventory.ParseLocation(req.Location)
		if err != nil {
			return nil, err
		}
		loc = parsed
	}
	if l.inventory != nil {
		item, err := l.inventory.Item(ctx, req.SKU)
		if err != nil {
			return nil, fmt.Errorf("dispatch: %w", err)
		}
		if loc.IsZero() {
			loc = item.Location
		}
	}
	date := req.Date
	if date.IsZero() {
		date = shared.Today(l.deps.Clock)
	} else {
		date = shared.Today(shared.FixedClock{At: date})
	}
	return &Order{
		ID:          l.deps.IDs.NewID("DSP"),
		Owner:       req.Owner,
		SKU:         req.SKU,
		Quantity:    req.Quantity,
		Location:    loc,
		CompletedOn: date,
		Status:      StatusCompleted,
		Note:        req.Note,
		CreatedAt:   l.deps.Clock.Now(),
	}, nil
}

// checkAvailable compares demand per SKU with stock not held by other
// reservations. Caller holds l.mu.
func (l *Ledger) checkAvailable(ctx context.Context, demand map[string]int) error {
	if l.inventory == nil {
		return nil
	}
	for sku, qty := range demand {
		available := l.inventory.AvailableQuantityExcept(ctx, sku, l) - l.reserved(sku)
		if available < qty {
			return fmt.Errorf("%w: %s needs %d, %d available", ErrInsufficientStock, sku, qty, max(available, 0))
		}
	}
	return nil
}

func (l *Ledger) reserved(sku string) int {
	total := 0
	for _, a := range l.allocations {
		if a.SKU == sku && a.Status.IsOpen() {
			total += a.Quantity
		}
	}
	return total
}

// take posts the outbound for o and records the applied quantity.
func (l *Ledger) take(ctx context.Context, o *Order, reason string) error {
	if l.inventory == nil {
		o.Posted = o.Quantity
		return nil
	}
	tx, err := l.post(ctx, o.SKU, -o.Quantity, inventory.KindOutbound, reason, o.ID)
	if err != nil {
		return err
	}
	o.Posted = -tx.Delta
	return nil
}

// giveBack returns what o took off hand.
func (l *Ledger) giveBack(ctx context.Context, o *Order, reason string) error {
	if l.inventory == nil || o.Posted <= 0 {
		return nil
	}
	_, err := l.post(ctx, o.SKU, o.Posted, inventory.KindAdjustment, reason, o.ID)
	return err
}

func (l *Ledger) post(ctx context.Context, sku string, delta int, kind inventory.TransactionKind, reason, ref string) (inventory.Transaction, error) {
	tx, err := l.inventory.Post(ctx, inventory.AdjustInput{
		SKU:       sku,
		Delta:     delta,
		Kind:      kind,
		Reason:    reason,
		Reference: ref,
	})
	if err != nil {
		return inventory.Transaction{}, fmt.Errorf("dispatch %s: %w", ref, err)
	}
	return tx, nil
}

// rollback reverses outbound postings of dispatches that were never recorded.
func (l *Ledger) rollback(ctx context.Context, posted []*Order) {
	for _, o := range posted {
		if err := l.giveBack(ctx, o, "dispatch rollback"); err != nil {
			l.deps.Logger.Error("dispatch rollback failed", slog.String("id", o.ID), slog.Any("error", err))
		}
	}
}

func (l *Ledger) insert(o *Order) {
	l.orders[o.ID] = o
	l.order = append(l.order, o.ID)
}

func (l *Ledger) batchAllocations(ctx context.Context, command string, ids []string, fn func(context.Context, *Allocation) error) (shared.BatchResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var res shared.BatchResult
	for _, id := range shared.UniqueIDs(ids) {
		a, ok := l.allocations[id]
		if !ok {
			l.note(command, &res, id, shared.OutcomeNotFound)
			continue
		}
		if !a.Status.IsOpen() {
			l.note(command, &res, id, shared.OutcomeSkippedInvalidState)
			continue
		}
		staged := *a
		if err := fn(ctx, &staged); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				l.note(command, &res, id, shared.OutcomeNotFound)
				continue
			}
			l.deps.Logger.Warn("dispatch command failed", slog.String("command", command), slog.String("id", id), slog.Any("error", err))
			return res, err
		}
		*a = staged
		l.note(command, &res, id, shared.OutcomeApplied)
		l.record(ctx, command, a.ID, a.SKU, a.Quantity, string(a.Status))
	}
	return res, nil
}

func (l *Ledger) note(command string, res *shared.BatchResult, id string, outcome shared.Outcome) {
	res.Add(id, outcome)
	l.deps.Metrics.ObserveTransition(workflowName, command, string(outcome))
	if outcome != shared.OutcomeApplied {
		l.deps.Logger.Debug("dispatch transition skipped", slog.String("command", command), slog.String("id", id), slog.String("outcome", string(outcome)))
	}
}

func (l *Ledger) record(ctx context.Context, action, id, sku string, qty int, status string) {
	shared.RecordAudit(ctx, l.deps.Audit, l.deps.Logger, shared.AuditLog{
		Action:   "dispatch:" + action,
		Entity:   "dispatch",
		EntityID: id,
		Meta: map[string]any{
			"sku":    sku,
			"qty":    qty,
			"status": status,
		},
		At: l.deps.Clock.Now(),
	})
}

func clone(o *Order) Order {
	out := *o
	if o.Picks != nil {
		out.Picks = append([]inventory.Pick(nil), o.Picks...)
	}
	return out
}

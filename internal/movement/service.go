package movement

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

const workflowName = "movement"

// InventoryService defines the ledger operations movement orders need.
type InventoryService interface {
	Item(ctx context.Context, sku string) (inventory.Item, error)
	PostRelocation(ctx context.Context, input inventory.RelocationInput) (inventory.Transaction, error)
}

// Service owns movement orders and drives their lifecycle.
type Service struct {
	mu        sync.Mutex
	orders    map[string]*Order
	order     []string
	inventory InventoryService
	deps      shared.Deps
}

// NewService constructs a movement service. inv may be nil, in which case
// completing an order does not touch the ledger.
func NewService(inv InventoryService, deps shared.Deps) *Service {
	return &Service{
		orders:    make(map[string]*Order),
		inventory: inv,
		deps:      deps.WithDefaults(),
	}
}

// Create plans a new movement order in planned status.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Order, error) {
	o, err := s.build(ctx, req)
	if err != nil {
		return Order{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert(o)
	s.record(ctx, "create", o)
	return *o, nil
}

// CreateManualMove records an ad-hoc move that is already done and relocates
// the stock immediately, skipping the instructed stages.
func (s *Service) CreateManualMove(ctx context.Context, req CreateRequest) (Order, error) {
	o, err := s.build(ctx, req)
	if err != nil {
		return Order{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.relocate(ctx, o, "manual move"); err != nil {
		return Order{}, err
	}
	now := s.deps.Clock.Now()
	o.Status = StatusDone
	o.Manual = true
	o.CompletedAt = &now
	s.insert(o)
	s.record(ctx, "manual_move", o)
	return *o, nil
}

// Instruct hands planned orders to the floor (planned -> waiting).
func (s *Service) Instruct(ctx context.Context, ids []string) shared.BatchResult {
	res, _ := s.batch(ctx, "instruct", ids, Status.CanInstruct, func(_ context.Context, o *Order) error {
		now := s.deps.Clock.Now()
		o.Status = StatusWaiting
		o.InstructedAt = &now
		return nil
	})
	return res
}

// MarkPlanned parks planned or waiting orders in planned.
func (s *Service) MarkPlanned(ctx context.Context, ids []string) shared.BatchResult {
	res, _ := s.batch(ctx, "mark_planned", ids, Status.CanMarkPlanned, func(_ context.Context, o *Order) error {
		o.Status = StatusPlanned
		return nil
	})
	return res
}

// Start begins waiting moves (waiting -> moving).
func (s *Service) Start(ctx context.Context, ids []string) shared.BatchResult {
	res, _ := s.batch(ctx, "start", ids, Status.CanStart, func(_ context.Context, o *Order) error {
		o.Status = StatusMoving
		return nil
	})
	return res
}

// Complete finishes open orders. The ledger relocation and the status change
// happen as one unit: when the relocation fails the order is left untouched.
// An order whose SKU is unknown to the ledger is reported as not-found; other
// ledger failures stop the batch and are returned.
func (s *Service) Complete(ctx context.Context, ids []string) (shared.BatchResult, error) {
	return s.batch(ctx, "complete", ids, Status.CanComplete, func(ctx context.Context, o *Order) error {
		if err := s.relocate(ctx, o, "movement complete"); err != nil {
			return err
		}
		now := s.deps.Clock.Now()
		o.Status = StatusDone
		o.CompletedAt = &now
		return nil
	})
}

// Cancel cancels open orders.
func (s *Service) Cancel(ctx context.Context, ids []string) shared.BatchResult {
	res, _ := s.batch(ctx, "cancel", ids, Status.CanCancel, func(_ context.Context, o *Order) error {
		o.Status = StatusCanceled
		return nil
	})
	return res
}

// Get returns an order by ID.
func (s *Service) Get(id string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("movement order %s: %w", id, shared.ErrNotFound)
	}
	return *o, nil
}

// List returns orders matching filter in creation order.
func (s *Service) List(filter Filter) []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Order, 0, len(s.order))
	for _, id := range s.order {
		o := s.orders[id]
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.SKU != "" && o.SKU != filter.SKU {
			continue
		}
		if filter.Owner != "" && !strings.EqualFold(o.Owner, filter.Owner) {
			continue
		}
		out = append(out, *o)
	}
	return out
}

// ListPage is List restricted to one page.
func (s *Service) ListPage(filter Filter, page, perPage int) ([]Order, shared.Pagination) {
	return shared.Paginate(s.List(filter), page, perPage)
}

// Counts returns the number of orders per status.
func (s *Service) Counts() map[Status]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[Status]int, len(Statuses))
	for _, st := range Statuses {
		counts[st] = 0
	}
	for _, o := range s.orders {
		counts[o.Status]++
	}
	return counts
}

// ReservedQuantity sums the quantity of open orders for sku.
func (s *Service) ReservedQuantity(sku string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, o := range s.orders {
		if o.SKU == sku && o.Status.IsOpen() {
			total += o.Quantity
		}
	}
	return total
}

func (s *Service) build(ctx context.Context, req CreateRequest) (*Order, error) {
	if err := s.deps.Validator.Struct(req); err != nil {
		return nil, fmt.Errorf("movement: %w", err)
	}
	to, err := inventory.ParseLocation(req.To)
	if err != nil {
		return nil, err
	}
	var from inventory.Location
	if req.From != "" {
		if from, err = inventory.ParseLocation(req.From); err != nil {
			return nil, err
		}
	} else if s.inventory != nil {
		item, err := s.inventory.Item(ctx, req.SKU)
		if err != nil {
			return nil, fmt.Errorf("movement: resolve source: %w", err)
		}
		from = item.Location
	}
	if from == to {
		return nil, ErrSameLocation
	}
	return &Order{
		ID:        s.deps.IDs.NewID("MV"),
		Owner:     req.Owner,
		SKU:       req.SKU,
		Quantity:  req.Quantity,
		From:      from,
		To:        to,
		Status:    StatusPlanned,
		Note:      req.Note,
		CreatedAt: s.deps.Clock.Now(),
	}, nil
}

func (s *Service) insert(o *Order) {
	s.orders[o.ID] = o
	s.order = append(s.order, o.ID)
}

func (s *Service) relocate(ctx context.Context, o *Order, reason string) error {
	if s.inventory == nil {
		return nil
	}
	_, err := s.inventory.PostRelocation(ctx, inventory.RelocationInput{
		SKU:       o.SKU,
		To:        o.To,
		Reason:    reason,
		Reference: o.ID,
	})
	if err != nil {
		return fmt.Errorf("movement %s: relocate: %w", o.ID, err)
	}
	return nil
}

// batch applies fn to every eligible order. IDs in the wrong state or unknown
// are skipped. fn errors matching shared.ErrNotFound mark the ID not-found;
// any other error aborts the remaining IDs.
func (s *Service) batch(ctx context.Context, command string, ids []string, eligible func(Status) bool, fn func(context.Context, *Order) error) (shared.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res shared.BatchResult
	for _, id := range shared.UniqueIDs(ids) {
		o, ok := s.orders[id]
		if !ok {
			s.note(command, &res, id, shared.OutcomeNotFound)
			continue
		}
		if !eligible(o.Status) {
			s.note(command, &res, id, shared.OutcomeSkippedInvalidState)
			continue
		}
		staged := *o
		if err := fn(ctx, &staged); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				s.note(command, &res, id, shared.OutcomeNotFound)
				continue
			}
			s.deps.Logger.Warn("movement command failed", slog.String("command", command), slog.String("id", id), slog.Any("error", err))
			return res, err
		}
		*o = staged
		s.note(command, &res, id, shared.OutcomeApplied)
		s.record(ctx, command, o)
	}
	return res, nil
}

func (s *Service) note(command string, res *shared.BatchResult, id string, outcome shared.Outcome) {
	res.Add(id, outcome)
	s.deps.Metrics.ObserveTransition(workflowName, command, string(outcome))
	if outcome != shared.OutcomeApplied {
		s.deps.Logger.Debug("movement transition skipped", slog.String("command", command), slog.String("id", id), slog.String("outcome", string(outcome)))
	}
}

func (s *Service) record(ctx context.Context, action string, o *Order) {
	shared.RecordAudit(ctx, s.deps.Audit, s.deps.Logger, shared.AuditLog{
		Action:   "movement:" + action,
		Entity:   "movement_order",
		EntityID: o.ID,
		Meta: map[string]any{
			"sku":    o.SKU,
			"qty":    o.Quantity,
			"status": string(o.Status),
			"to":     o.To.String(),
		},
		At: s.deps.Clock.Now(),
	})
}

package b2b

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

const workflowName = "b2b_return"

// InventoryService defines the ledger operation receiving posts.
type InventoryService interface {
	Post(ctx context.Context, input inventory.AdjustInput) (inventory.Transaction, error)
}

// Service owns B2B return orders.
type Service struct {
	mu        sync.Mutex
	orders    map[string]*Order
	order     []string
	inventory InventoryService
	deps      shared.Deps
}

// NewService constructs a B2B return service. inv may be nil, in which case
// confirming receipt does not touch the ledger.
func NewService(inv InventoryService, deps shared.Deps) *Service {
	return &Service{
		orders:    make(map[string]*Order),
		inventory: inv,
		deps:      deps.WithDefaults(),
	}
}

// Create schedules a return in scheduled status. The scheduled date defaults
// to today.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Order, error) {
	if err := s.deps.Validator.Struct(req); err != nil {
		return Order{}, fmt.Errorf("b2b return: %w", err)
	}
	scheduled := req.ScheduledDate
	if scheduled.IsZero() {
		scheduled = shared.Today(s.deps.Clock)
	}
	o := &Order{
		ID:            s.deps.IDs.NewID("RTB"),
		Owner:         req.Owner,
		SourceName:    req.SourceName,
		MovementRef:   req.MovementRef,
		SKU:           req.SKU,
		PlannedQty:    req.PlannedQty,
		TransportType: req.TransportType,
		Status:        StatusScheduled,
		ScheduledDate: scheduled,
		CreatedAt:     s.deps.Clock.Now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
	s.order = append(s.order, o.ID)
	s.record(ctx, "create", o)
	return *o, nil
}

// IssueInstructions releases scheduled returns to the dock (scheduled -> waiting).
func (s *Service) IssueInstructions(ctx context.Context, ids []string) shared.BatchResult {
	res, _ := s.batch(ctx, "issue_instructions", ids, is(StatusScheduled), func(_ context.Context, o *Order) error {
		now := s.deps.Clock.Now()
		o.Status = StatusWaiting
		o.InstructedAt = &now
		return nil
	})
	return res
}

// StartReceiving begins unloading (waiting -> receiving).
func (s *Service) StartReceiving(ctx context.Context, ids []string) shared.BatchResult {
	res, _ := s.batch(ctx, "start_receiving", ids, is(StatusWaiting), func(_ context.Context, o *Order) error {
		o.Status = StatusReceiving
		return nil
	})
	return res
}

// ConfirmReceiving confirms waiting or receiving returns. The confirmed
// quantity defaults to the planned quantity unless it was set manually, and
// is posted inbound together with the status change.
func (s *Service) ConfirmReceiving(ctx context.Context, ids []string) (shared.BatchResult, error) {
	return s.batch(ctx, "confirm_receiving", ids, Status.CanEditQuantity, func(ctx context.Context, o *Order) error {
		if o.ConfirmedQty == 0 {
			o.ConfirmedQty = o.PlannedQty
		}
		if err := s.post(ctx, o, o.ConfirmedQty, inventory.KindInbound, "b2b return received"); err != nil {
			return err
		}
		now := s.deps.Clock.Now()
		o.Status = StatusConfirmed
		o.ConfirmedAt = &now
		return nil
	})
}

// StartPutaway schedules putaway for confirmed returns and starts it for
// returns already scheduled for putaway.
func (s *Service) StartPutaway(ctx context.Context, ids []string) shared.BatchResult {
	eligible := func(st Status) bool { return st == StatusConfirmed || st == StatusPutawayScheduled }
	res, _ := s.batch(ctx, "start_putaway", ids, eligible, func(_ context.Context, o *Order) error {
		if o.Status == StatusConfirmed {
			o.Status = StatusPutawayScheduled
		} else {
			o.Status = StatusPutaway
		}
		return nil
	})
	return res
}

// CompletePutaway finishes putaway (putaway -> putaway-done).
func (s *Service) CompletePutaway(ctx context.Context, ids []string) shared.BatchResult {
	res, _ := s.batch(ctx, "complete_putaway", ids, is(StatusPutaway), func(_ context.Context, o *Order) error {
		now := s.deps.Clock.Now()
		o.Status = StatusPutawayDone
		o.PutawayDoneAt = &now
		return nil
	})
	return res
}

// Cancel cancels non-terminal returns. Stock already received is taken back
// out of the ledger with an adjustment.
func (s *Service) Cancel(ctx context.Context, ids []string) (shared.BatchResult, error) {
	eligible := func(st Status) bool { return !st.IsTerminal() }
	return s.batch(ctx, "cancel", ids, eligible, func(ctx context.Context, o *Order) error {
		if o.Status.Received() {
			if err := s.post(ctx, o, -o.ConfirmedQty, inventory.KindAdjustment, "b2b return canceled"); err != nil {
				return err
			}
		}
		o.Status = StatusCanceled
		return nil
	})
}

// SetConfirmedQuantity overrides the quantity that ConfirmReceiving will post.
func (s *Service) SetConfirmedQuantity(ctx context.Context, id string, qty int) (shared.Outcome, error) {
	if qty <= 0 {
		return "", ErrInvalidQuantity
	}
	res, _ := s.batch(ctx, "set_quantity", []string{id}, Status.CanEditQuantity, func(_ context.Context, o *Order) error {
		o.ConfirmedQty = qty
		return nil
	})
	outcome, _ := res.OutcomeOf(id)
	return outcome, nil
}

// Get returns an order by ID.
func (s *Service) Get(id string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("b2b return %s: %w", id, shared.ErrNotFound)
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

func is(want Status) func(Status) bool {
	return func(st Status) bool { return st == want }
}

func (s *Service) post(ctx context.Context, o *Order, delta int, kind inventory.TransactionKind, reason string) error {
	if s.inventory == nil {
		return nil
	}
	_, err := s.inventory.Post(ctx, inventory.AdjustInput{
		SKU:       o.SKU,
		Delta:     delta,
		Kind:      kind,
		Reason:    reason + " " + o.SourceName,
		Reference: o.ID,
	})
	if err != nil {
		return fmt.Errorf("b2b return %s: %w", o.ID, err)
	}
	return nil
}

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
			s.deps.Logger.Warn("b2b return command failed", slog.String("command", command), slog.String("id", id), slog.Any("error", err))
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
		s.deps.Logger.Debug("b2b return transition skipped", slog.String("command", command), slog.String("id", id), slog.String("outcome", string(outcome)))
	}
}

func (s *Service) record(ctx context.Context, action string, o *Order) {
	shared.RecordAudit(ctx, s.deps.Audit, s.deps.Logger, shared.AuditLog{
		Action:   "b2b_return:" + action,
		Entity:   "b2b_return",
		EntityID: o.ID,
		Meta: map[string]any{
			"sku":           o.SKU,
			"planned_qty":   o.PlannedQty,
			"confirmed_qty": o.ConfirmedQty,
			"status":        string(o.Status),
		},
		At: s.deps.Clock.Now(),
	})
}

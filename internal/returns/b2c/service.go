package b2c

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

const workflowName = "b2c_return"

// InventoryService defines the ledger operation a confirmed return posts.
type InventoryService interface {
	Post(ctx context.Context, input inventory.AdjustInput) (inventory.Transaction, error)
}

// Service owns B2C return orders.
type Service struct {
	mu        sync.Mutex
	orders    map[string]*Order
	order     []string
	inventory InventoryService
	deps      shared.Deps
}

// NewService constructs a B2C return service. With a nil inv, confirming a
// return leaves the inbound posting to the caller.
func NewService(inv InventoryService, deps shared.Deps) *Service {
	return &Service{
		orders:    make(map[string]*Order),
		inventory: inv,
		deps:      deps.WithDefaults(),
	}
}

// Create registers an expected return in waiting status.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Order, error) {
	if err := s.deps.Validator.Struct(req); err != nil {
		return Order{}, fmt.Errorf("b2c return: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if strings.EqualFold(o.TrackingNumber, req.TrackingNumber) {
			return Order{}, fmt.Errorf("%w: %s", ErrDuplicateTracking, req.TrackingNumber)
		}
	}
	o := &Order{
		ID:             s.deps.IDs.NewID("RTC"),
		Owner:          req.Owner,
		SalesOrderRef:  req.SalesOrderRef,
		TrackingNumber: req.TrackingNumber,
		Recipient:      req.Recipient,
		SKU:            req.SKU,
		Quantity:       req.Quantity,
		Status:         StatusWaiting,
		CreatedAt:      s.deps.Clock.Now(),
	}
	s.orders[o.ID] = o
	s.order = append(s.order, o.ID)
	s.record(ctx, "create", o)
	return *o, nil
}

// Confirm receives a waiting return, optionally overriding its quantity, and
// posts the inbound quantity to the ledger in the same step. A ledger failure
// leaves the order waiting.
func (s *Service) Confirm(ctx context.Context, id string, qty *int) (shared.Outcome, error) {
	if qty != nil && *qty <= 0 {
		return "", ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return s.note(id, shared.OutcomeNotFound), nil
	}
	if !o.Status.CanConfirm() {
		return s.note(id, shared.OutcomeSkippedInvalidState), nil
	}
	quantity := o.Quantity
	if qty != nil {
		quantity = *qty
	}
	if s.inventory != nil {
		_, err := s.inventory.Post(ctx, inventory.AdjustInput{
			SKU:       o.SKU,
			Delta:     quantity,
			Kind:      inventory.KindInbound,
			Reason:    "b2c return " + o.TrackingNumber,
			Reference: o.ID,
		})
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return s.note(id, shared.OutcomeNotFound), nil
			}
			s.deps.Logger.Warn("b2c confirm failed", slog.String("id", id), slog.Any("error", err))
			return "", fmt.Errorf("b2c return %s: %w", id, err)
		}
	}
	now := s.deps.Clock.Now()
	o.Quantity = quantity
	o.Status = StatusConfirmed
	o.CompletedAt = &now
	s.record(ctx, "confirm", o)
	return s.note(id, shared.OutcomeApplied), nil
}

// FindByCode looks up an order by tracking number or sales-order reference.
// Waiting orders win over confirmed ones sharing a sales-order reference.
func (s *Service) FindByCode(code string) (Order, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Order{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var fallback *Order
	for _, id := range s.order {
		o := s.orders[id]
		if !strings.EqualFold(o.TrackingNumber, code) && !strings.EqualFold(o.SalesOrderRef, code) {
			continue
		}
		if o.Status == StatusWaiting {
			return *o, true
		}
		if fallback == nil {
			fallback = o
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Order{}, false
}

// Get returns an order by ID.
func (s *Service) Get(id string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("b2c return %s: %w", id, shared.ErrNotFound)
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
	counts := map[Status]int{StatusWaiting: 0, StatusConfirmed: 0}
	for _, o := range s.orders {
		counts[o.Status]++
	}
	return counts
}

func (s *Service) note(id string, outcome shared.Outcome) shared.Outcome {
	s.deps.Metrics.ObserveTransition(workflowName, "confirm", string(outcome))
	if outcome != shared.OutcomeApplied {
		s.deps.Logger.Debug("b2c confirm skipped", slog.String("id", id), slog.String("outcome", string(outcome)))
	}
	return outcome
}

func (s *Service) record(ctx context.Context, action string, o *Order) {
	shared.RecordAudit(ctx, s.deps.Audit, s.deps.Logger, shared.AuditLog{
		Action:   "b2c_return:" + action,
		Entity:   "b2c_return",
		EntityID: o.ID,
		Meta: map[string]any{
			"sku":      o.SKU,
			"qty":      o.Quantity,
			"tracking": o.TrackingNumber,
			"status":   string(o.Status),
		},
		At: s.deps.Clock.Now(),
	})
}

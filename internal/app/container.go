package app

import (
	"context"
	"log/slog"

	"github.com/odyssey-erp/odyssey-wms/internal/dispatch"
	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/movement"
	"github.com/odyssey-erp/odyssey-wms/internal/observability"
	"github.com/odyssey-erp/odyssey-wms/internal/returns/b2b"
	"github.com/odyssey-erp/odyssey-wms/internal/returns/b2c"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// Runtime wires the ledger and the workflows that post to it.
type Runtime struct {
	Config   *Config
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Audit    shared.AuditPort
	Deps     shared.Deps
	Ledger   *inventory.Ledger
	Lots     *inventory.LotAllocator
	Movement *movement.Service
	B2C      *b2c.Service
	B2B      *b2b.Service
	Dispatch *dispatch.Ledger
}

// Options overrides collaborators NewRuntime would otherwise build.
type Options struct {
	Clock shared.Clock
	IDs   shared.IDIssuer
}

// NewRuntime constructs every component over one in-memory repository and
// registers the workflows holding stock as reservation sources.
func NewRuntime(cfg *Config, logger *slog.Logger, opts Options) *Runtime {
	if cfg == nil {
		cfg = &Config{}
	}
	logger = shared.LoggerOrDiscard(logger)

	ids := opts.IDs
	if ids == nil {
		ids = newIDIssuer(cfg.IDStrategy)
	}
	var audit shared.AuditPort = shared.NewMemoryAuditLog()
	if cfg.AuditSink == "log" {
		audit = shared.NewSlogAuditLog(logger)
	}
	metrics := observability.NewMetrics()
	deps := shared.Deps{
		IDs:       ids,
		Clock:     opts.Clock,
		Logger:    logger,
		Audit:     audit,
		Validator: shared.NewValidator(),
		Metrics:   metrics,
	}.WithDefaults()

	repo := inventory.NewMemoryRepository()
	ledger := inventory.NewLedger(repo, inventory.ServiceConfig{
		Underflow: inventory.UnderflowPolicy(cfg.InventoryUnderflow),
	}, deps)
	ledger.SetPostingHandler(lowStockAlerter{logger: logger})
	lots := inventory.NewLotAllocator(repo, deps)

	movements := movement.NewService(ledger, deps)
	dispatches := dispatch.NewLedger(ledger, deps)
	dispatches.SetLotAllocator(lots)
	ledger.AddReservationSource(movements)
	ledger.AddReservationSource(dispatches)

	return &Runtime{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
		Audit:    audit,
		Deps:     deps,
		Ledger:   ledger,
		Lots:     lots,
		Movement: movements,
		B2C:      b2c.NewService(ledger, deps),
		B2B:      b2b.NewService(ledger, deps),
		Dispatch: dispatches,
	}
}

// AuditEntries returns the recorded audit trail when it is kept in memory.
func (r *Runtime) AuditEntries() []shared.AuditLog {
	if mem, ok := r.Audit.(*shared.MemoryAuditLog); ok {
		return mem.Entries()
	}
	return nil
}

func newIDIssuer(strategy string) shared.IDIssuer {
	if strategy == "uuid" {
		return shared.UUIDIssuer{}
	}
	return shared.NewSequenceIssuer()
}

type lowStockAlerter struct {
	logger *slog.Logger
}

func (a lowStockAlerter) HandleStockPosted(ctx context.Context, evt inventory.StockPostedEvent) error {
	if !evt.BecameLow() {
		return nil
	}
	a.logger.WarnContext(ctx, "stock below safety level",
		slog.String("sku", evt.SKU),
		slog.Int("on_hand", evt.OnHand),
		slog.Int("safety_stock", evt.SafetyStock),
		slog.String("tx", evt.TransactionID))
	return nil
}

package demo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/odyssey-wms/internal/app"
	"github.com/odyssey-erp/odyssey-wms/internal/dispatch"
	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/movement"
	"github.com/odyssey-erp/odyssey-wms/internal/returns/b2b"
	"github.com/odyssey-erp/odyssey-wms/internal/returns/b2c"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

const owner = "glow-cosmetics"

// Seeded holds the IDs of the sample records created by Seed.
type Seeded struct {
	Movements   []string
	B2BReturns  []string
	B2CReturns  []b2c.Order
	Allocations []string
}

var catalog = []inventory.RegisterItemRequest{
	{SKU: "SKU-A", Name: "Hydrating Toner", Location: "A-01-01", SafetyStock: 50, OnHand: 320},
	{SKU: "SKU-B", Name: "Vitamin C Serum", Location: "A-01-02", SafetyStock: 30, OnHand: 180},
	{SKU: "SKU-C", Name: "Daily Sun Cream", Location: "B-02-01", SafetyStock: 40, OnHand: 25},
	{SKU: "SKU-D", Name: "Tinted Lip Balm", Location: "C-03-04", SafetyStock: 20, OnHand: 500},
	{SKU: "SKU-E", Name: "Sheet Mask Set", Location: "C-01-01", OnHand: 12, Defect: true},
}

// Seed registers the demo catalog, its lots and a handful of open orders.
func Seed(ctx context.Context, rt *app.Runtime) (Seeded, error) {
	var seeded Seeded
	for _, req := range catalog {
		if _, err := rt.Ledger.RegisterItem(ctx, req); err != nil {
			return seeded, fmt.Errorf("seed item %s: %w", req.SKU, err)
		}
	}

	today := shared.Today(rt.Deps.Clock)
	lots := []inventory.RegisterLotRequest{
		{SKU: "SKU-A", LotNumber: "L2", BatchNumber: "B-2611", Expiry: today.AddDate(0, 6, 0), Quantity: 200, Location: "A-01-01"},
		{SKU: "SKU-A", LotNumber: "L1", BatchNumber: "B-2608", Expiry: today.AddDate(0, 3, 0), Quantity: 100, Location: "A-01-01"},
		{SKU: "SKU-B", LotNumber: "L7", BatchNumber: "B-2605", Expiry: today.AddDate(0, 2, 0), Quantity: 180, Location: "A-01-02"},
		{SKU: "SKU-C", LotNumber: "L9", BatchNumber: "B-2604", Expiry: today.AddDate(0, 1, 0), Quantity: 25, Location: "B-02-01"},
	}
	for _, req := range lots {
		if _, err := rt.Lots.RegisterLot(ctx, req); err != nil {
			return seeded, fmt.Errorf("seed lot %s/%s: %w", req.SKU, req.LotNumber, err)
		}
	}

	moves := []movement.CreateRequest{
		{Owner: owner, SKU: "SKU-B", Quantity: 40, To: "D-01-01", Note: "front pick face"},
		{Owner: owner, SKU: "SKU-D", Quantity: 100, To: "D-02-03"},
	}
	for _, req := range moves {
		o, err := rt.Movement.Create(ctx, req)
		if err != nil {
			return seeded, fmt.Errorf("seed movement: %w", err)
		}
		seeded.Movements = append(seeded.Movements, o.ID)
	}

	returns := []b2b.CreateRequest{
		{Owner: owner, SourceName: "Olive Mall Gangnam", MovementRef: "MR-1042", SKU: "SKU-C", PlannedQty: 24, TransportType: "truck", ScheduledDate: today},
		{Owner: owner, SourceName: "Lotte Busan", SKU: "SKU-B", PlannedQty: 10, TransportType: "parcel", ScheduledDate: today.AddDate(0, 0, 2)},
	}
	for _, req := range returns {
		o, err := rt.B2B.Create(ctx, req)
		if err != nil {
			return seeded, fmt.Errorf("seed b2b return: %w", err)
		}
		seeded.B2BReturns = append(seeded.B2BReturns, o.ID)
	}

	parcels := []b2c.CreateRequest{
		{Owner: owner, SalesOrderRef: "SO-20931", TrackingNumber: "CJ-558120034", Recipient: "Park J.", SKU: "SKU-A", Quantity: 2},
		{Owner: owner, SalesOrderRef: "SO-20977", TrackingNumber: "CJ-558120101", Recipient: "Lee S.", SKU: "SKU-D", Quantity: 1},
	}
	for _, req := range parcels {
		o, err := rt.B2C.Create(ctx, req)
		if err != nil {
			return seeded, fmt.Errorf("seed b2c return: %w", err)
		}
		seeded.B2CReturns = append(seeded.B2CReturns, o)
	}

	a, err := rt.Dispatch.Allocate(ctx, dispatch.AllocateRequest{Owner: owner, SKU: "SKU-A", Quantity: 150, Note: "store replenishment"})
	if err != nil {
		return seeded, fmt.Errorf("seed allocation: %w", err)
	}
	seeded.Allocations = append(seeded.Allocations, a.ID)

	rt.Logger.Info("demo data seeded",
		slog.Int("items", len(catalog)),
		slog.Int("lots", len(lots)),
		slog.Int("movements", len(seeded.Movements)),
		slog.Int("b2b_returns", len(seeded.B2BReturns)),
		slog.Int("b2c_returns", len(seeded.B2CReturns)))
	return seeded, nil
}

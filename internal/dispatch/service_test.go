package dispatch

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/observability"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

var testNow = time.Date(2026, 3, 5, 16, 45, 0, 0, time.UTC)

type fixture struct {
	ledger *inventory.Ledger
	lots   *inventory.LotAllocator
	svc    *Ledger
}

func newFixture(t *testing.T, cfg inventory.ServiceConfig) fixture {
	t.Helper()
	ctx := context.Background()
	deps := shared.Deps{IDs: shared.NewSequenceIssuer(), Clock: shared.FixedClock{At: testNow}}
	repo := inventory.NewMemoryRepository()
	ledger := inventory.NewLedger(repo, cfg, deps)
	_, err := ledger.RegisterItem(ctx, inventory.RegisterItemRequest{
		SKU: "SKU-A", Name: "Toner", Location: "A-01-03", SafetyStock: 5, OnHand: 20,
	})
	require.NoError(t, err)
	lots := inventory.NewLotAllocator(repo, deps)
	svc := NewLedger(ledger, deps)
	svc.SetLotAllocator(lots)
	ledger.AddReservationSource(svc)
	return fixture{ledger: ledger, lots: lots, svc: svc}
}

func TestCreateDispatchWithoutLedger(t *testing.T) {
	svc := NewLedger(nil, shared.Deps{Clock: shared.FixedClock{At: testNow}})
	o, err := svc.CreateDispatch(context.Background(), CreateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 5})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, o.Status)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), o.CompletedOn)
	assert.Len(t, svc.List(Filter{}), 1)
	assert.Equal(t, map[Status]int{StatusCompleted: 1, StatusCanceled: 0}, svc.Counts())
}

func TestCreateDispatchPostsOutbound(t *testing.T) {
	f := newFixture(t, inventory.ServiceConfig{})
	ctx := context.Background()

	o, err := f.svc.CreateDispatch(ctx, CreateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 5, Date: time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, "A-01-03", o.Location.String())
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), o.CompletedOn)
	assert.Equal(t, 15, f.ledger.OnHand(ctx, "SKU-A"))

	entries, err := f.ledger.Transactions(ctx, inventory.TransactionFilter{Reference: o.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, inventory.KindOutbound, entries[0].Kind)
	assert.Equal(t, -5, entries[0].Delta)
}

func TestBulkDispatchRejectedAsAWhole(t *testing.T) {
	f := newFixture(t, inventory.ServiceConfig{})
	ctx := context.Background()

	_, err := f.svc.CreateBulkDispatch(ctx, []CreateRequest{
		{Owner: "acme", SKU: "SKU-A", Quantity: 12},
		{Owner: "acme", SKU: "SKU-A", Quantity: 9},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Empty(t, f.svc.List(Filter{}))
	assert.Equal(t, 20, f.ledger.OnHand(ctx, "SKU-A"))

	orders, err := f.svc.CreateBulkDispatch(ctx, []CreateRequest{
		{Owner: "acme", SKU: "SKU-A", Quantity: 12},
		{Owner: "acme", SKU: "SKU-A", Quantity: 8},
	})
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.Zero(t, f.ledger.OnHand(ctx, "SKU-A"))

	_, err = f.svc.CreateBulkDispatch(ctx, nil)
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestCreateDispatchValidation(t *testing.T) {
	f := newFixture(t, inventory.ServiceConfig{})
	ctx := context.Background()

	_, err := f.svc.CreateDispatch(ctx, CreateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 0})
	require.ErrorIs(t, err, shared.ErrInvalidRequest)

	_, err = f.svc.CreateDispatch(ctx, CreateRequest{Owner: "acme", SKU: "SKU-GHOST", Quantity: 1})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCancelDispatchRestoresStock(t *testing.T) {
	f := newFixture(t, inventory.ServiceConfig{})
	ctx := context.Background()
	o, err := f.svc.CreateDispatch(ctx, CreateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 6})
	require.NoError(t, err)

	res, err := f.svc.CancelDispatch(ctx, []string{o.ID, "DSP-404"})
	require.NoError(t, err)
	assert.Equal(t, []string{o.ID}, res.Applied())
	assert.Equal(t, []string{"DSP-404"}, res.Missing())
	assert.Equal(t, 20, f.ledger.OnHand(ctx, "SKU-A"))

	got, err := f.svc.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, got.Status)
	require.NotNil(t, got.CanceledAt)

	res, err = f.svc.CancelDispatch(ctx, []string{o.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{o.ID}, res.Skipped())
	assert.Equal(t, 20, f.ledger.OnHand(ctx, "SKU-A"))
}

func TestAllocationsReserveStock(t *testing.T) {
	f := newFixture(t, inventory.ServiceConfig{})
	ctx := context.Background()

	a, err := f.svc.Allocate(ctx, AllocateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 15})
	require.NoError(t, err)
	assert.Equal(t, 15, f.ledger.ReservedQuantity("SKU-A"))
	assert.Equal(t, 5, f.ledger.AvailableQuantity(ctx, "SKU-A"))

	_, err = f.svc.Allocate(ctx, AllocateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 6})
	require.ErrorIs(t, err, ErrInsufficientStock)
	_, err = f.svc.CreateDispatch(ctx, CreateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 6})
	require.ErrorIs(t, err, ErrInsufficientStock)

	res := f.svc.Release(ctx, []string{a.ID})
	assert.Equal(t, []string{a.ID}, res.Applied())
	assert.Zero(t, f.ledger.ReservedQuantity("SKU-A"))
	assert.Len(t, f.svc.Allocations(AllocationReleased), 1)

	res = f.svc.Release(ctx, []string{a.ID})
	assert.Equal(t, []string{a.ID}, res.Skipped())
}

func TestShipConsumesLotsInExpiryOrder(t *testing.T) {
	f := newFixture(t, inventory.ServiceConfig{})
	ctx := context.Background()
	_, err := f.lots.RegisterLot(ctx, inventory.RegisterLotRequest{SKU: "SKU-A", LotNumber: "L2", Expiry: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), Quantity: 10})
	require.NoError(t, err)
	_, err = f.lots.RegisterLot(ctx, inventory.RegisterLotRequest{SKU: "SKU-A", LotNumber: "L1", Expiry: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), Quantity: 4})
	require.NoError(t, err)

	a, err := f.svc.Allocate(ctx, AllocateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 7})
	require.NoError(t, err)

	res, err := f.svc.Ship(ctx, []string{a.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, res.Applied())

	shipped := f.svc.Allocations(AllocationShipped)
	require.Len(t, shipped, 1)
	o, err := f.svc.Get(shipped[0].DispatchID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, o.AllocationID)
	require.Len(t, o.Picks, 2)
	assert.Equal(t, "L1", o.Picks[0].LotNumber)
	assert.Equal(t, 4, o.Picks[0].Quantity)
	assert.Equal(t, "L2", o.Picks[1].LotNumber)
	assert.Equal(t, 3, o.Picks[1].Quantity)

	assert.Equal(t, 13, f.ledger.OnHand(ctx, "SKU-A"))
	assert.Zero(t, f.ledger.ReservedQuantity("SKU-A"))
	supply, err := f.lots.LotSupply(ctx, "SKU-A")
	require.NoError(t, err)
	assert.Equal(t, 7, supply)

	res, err = f.svc.Ship(ctx, []string{a.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, res.Skipped())
}

func TestShipRejectedByLedgerLeavesAllocationOpen(t *testing.T) {
	f := newFixture(t, inventory.ServiceConfig{Underflow: inventory.UnderflowReject})
	ctx := context.Background()
	a, err := f.svc.Allocate(ctx, AllocateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 10})
	require.NoError(t, err)
	_, err = f.ledger.Adjust(ctx, "SKU-A", -15, inventory.KindAdjustment, "count correction")
	require.NoError(t, err)

	_, err = f.svc.Ship(ctx, []string{a.ID})
	require.ErrorIs(t, err, inventory.ErrNegativeStock)
	assert.Len(t, f.svc.Allocations(AllocationOpen), 1)
	assert.Empty(t, f.svc.List(Filter{}))
}

func TestCancelGivesBackOnlyWhatShipTookOffHand(t *testing.T) {
	f := newFixture(t, inventory.ServiceConfig{})
	ctx := context.Background()
	a, err := f.svc.Allocate(ctx, AllocateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 20})
	require.NoError(t, err)
	_, err = f.ledger.Adjust(ctx, "SKU-A", -18, inventory.KindAdjustment, "damaged on shelf")
	require.NoError(t, err)

	_, err = f.svc.Ship(ctx, []string{a.ID})
	require.NoError(t, err)
	assert.Zero(t, f.ledger.OnHand(ctx, "SKU-A"))

	shipped := f.svc.Allocations(AllocationShipped)
	require.Len(t, shipped, 1)
	o, err := f.svc.Get(shipped[0].DispatchID)
	require.NoError(t, err)
	assert.Equal(t, 20, o.Quantity)
	assert.Equal(t, 2, o.Posted)

	res, err := f.svc.CancelDispatch(ctx, []string{o.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{o.ID}, res.Applied())
	assert.Equal(t, 2, f.ledger.OnHand(ctx, "SKU-A"))
}

func TestCancelAfterFullyFlooredShipLeavesStockAlone(t *testing.T) {
	f := newFixture(t, inventory.ServiceConfig{})
	ctx := context.Background()
	a, err := f.svc.Allocate(ctx, AllocateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 5})
	require.NoError(t, err)
	_, err = f.ledger.Adjust(ctx, "SKU-A", -20, inventory.KindAdjustment, "stock count")
	require.NoError(t, err)

	_, err = f.svc.Ship(ctx, []string{a.ID})
	require.NoError(t, err)
	o, err := f.svc.Get(f.svc.Allocations(AllocationShipped)[0].DispatchID)
	require.NoError(t, err)
	assert.Zero(t, o.Posted)

	res, err := f.svc.CancelDispatch(ctx, []string{o.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{o.ID}, res.Applied())
	assert.Zero(t, f.ledger.OnHand(ctx, "SKU-A"))
}

func TestShipCountsCreatedDispatch(t *testing.T) {
	metrics := observability.NewMetrics()
	svc := NewLedger(nil, shared.Deps{Clock: shared.FixedClock{At: testNow}, Metrics: metrics})
	ctx := context.Background()
	a, err := svc.Allocate(ctx, AllocateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 3})
	require.NoError(t, err)

	_, err = svc.Ship(ctx, []string{a.ID})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, metrics.WriteText(&buf))
	assert.Contains(t, buf.String(), `odyssey_wms_transitions_total{command="create",outcome="applied",workflow="dispatch"} 1`)
	assert.Contains(t, buf.String(), `odyssey_wms_transitions_total{command="ship",outcome="applied",workflow="dispatch"} 1`)
}

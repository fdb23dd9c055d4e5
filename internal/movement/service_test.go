package movement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

var testNow = time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

type fixture struct {
	ledger *inventory.Ledger
	svc    *Service
	audit  *shared.MemoryAuditLog
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	deps := shared.Deps{
		IDs:   shared.NewSequenceIssuer(),
		Clock: shared.FixedClock{At: testNow},
		Audit: shared.NewMemoryAuditLog(),
	}
	ledger := inventory.NewLedger(inventory.NewMemoryRepository(), inventory.ServiceConfig{}, deps)
	_, err := ledger.RegisterItem(context.Background(), inventory.RegisterItemRequest{
		SKU: "SKU-A", Name: "Hand cream", Location: "A-01-01", SafetyStock: 10, OnHand: 120,
	})
	require.NoError(t, err)
	svc := NewService(ledger, deps)
	ledger.AddReservationSource(svc)
	return fixture{ledger: ledger, svc: svc, audit: deps.Audit.(*shared.MemoryAuditLog)}
}

func (f fixture) create(t *testing.T, qty int, to string) Order {
	t.Helper()
	o, err := f.svc.Create(context.Background(), CreateRequest{Owner: "acme", SKU: "SKU-A", Quantity: qty, To: to})
	require.NoError(t, err)
	return o
}

func TestMovementCompletionRelocatesStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, 30, "B-02-01")
	assert.Equal(t, StatusPlanned, o.Status)
	assert.Equal(t, "A-01-01", o.From.String())

	res := f.svc.Instruct(ctx, []string{o.ID})
	assert.Equal(t, []string{o.ID}, res.Applied())

	res = f.svc.Start(ctx, []string{o.ID})
	assert.Equal(t, []string{o.ID}, res.Applied())

	res, err := f.svc.Complete(ctx, []string{o.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{o.ID}, res.Applied())

	got, err := f.svc.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.InstructedAt)

	entries, err := f.ledger.Transactions(ctx, inventory.TransactionFilter{SKU: "SKU-A", Kind: inventory.KindRelocation})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "B-02-01", entries[0].Location.String())
	assert.Equal(t, o.ID, entries[0].Reference)

	item, err := f.ledger.Item(ctx, "SKU-A")
	require.NoError(t, err)
	assert.Equal(t, "B-02-01", item.Location.String())
}

func TestIneligibleIDsAreSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, 5, "C-01-01")

	res := f.svc.Start(ctx, []string{o.ID, "MV-404"})
	outcome, _ := res.OutcomeOf(o.ID)
	assert.Equal(t, shared.OutcomeSkippedInvalidState, outcome)
	outcome, _ = res.OutcomeOf("MV-404")
	assert.Equal(t, shared.OutcomeNotFound, outcome)

	got, err := f.svc.Get(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPlanned, got.Status)
}

func TestMarkPlannedReentry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	planned := f.create(t, 5, "C-01-01")
	waiting := f.create(t, 5, "C-01-02")
	moving := f.create(t, 5, "C-01-03")
	f.svc.Instruct(ctx, []string{waiting.ID, moving.ID})
	f.svc.Start(ctx, []string{moving.ID})

	res := f.svc.MarkPlanned(ctx, []string{planned.ID, waiting.ID, moving.ID})
	assert.ElementsMatch(t, []string{planned.ID, waiting.ID}, res.Applied())
	assert.Equal(t, []string{moving.ID}, res.Skipped())

	for _, id := range []string{planned.ID, waiting.ID} {
		got, err := f.svc.Get(id)
		require.NoError(t, err)
		assert.Equal(t, StatusPlanned, got.Status)
	}
	got, _ := f.svc.Get(moving.ID)
	assert.Equal(t, StatusMoving, got.Status)

	entries, err := f.ledger.Transactions(ctx, inventory.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTerminalStatesNeverMoveBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	done := f.create(t, 5, "C-01-01")
	canceled := f.create(t, 5, "C-01-02")
	_, err := f.svc.Complete(ctx, []string{done.ID})
	require.NoError(t, err)
	f.svc.Cancel(ctx, []string{canceled.ID})

	ids := []string{done.ID, canceled.ID}
	assert.Len(t, f.svc.Instruct(ctx, ids).Skipped(), 2)
	assert.Len(t, f.svc.MarkPlanned(ctx, ids).Skipped(), 2)
	assert.Len(t, f.svc.Start(ctx, ids).Skipped(), 2)
	res, err := f.svc.Complete(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, res.Skipped(), 2)
	assert.Len(t, f.svc.Cancel(ctx, ids).Skipped(), 2)

	got, _ := f.svc.Get(done.ID)
	assert.Equal(t, StatusDone, got.Status)
	got, _ = f.svc.Get(canceled.ID)
	assert.Equal(t, StatusCanceled, got.Status)
}

func TestOpenOrdersReserveStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 30, "B-01-01")
	b := f.create(t, 50, "B-01-02")
	assert.Equal(t, 80, f.ledger.ReservedQuantity("SKU-A"))
	assert.Equal(t, 40, f.ledger.AvailableQuantity(ctx, "SKU-A"))

	f.svc.Cancel(ctx, []string{a.ID})
	_, err := f.svc.Complete(ctx, []string{b.ID})
	require.NoError(t, err)
	assert.Zero(t, f.ledger.ReservedQuantity("SKU-A"))
	assert.Equal(t, 120, f.ledger.AvailableQuantity(ctx, "SKU-A"))
}

func TestManualMoveIsImmediatelyDone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, err := f.svc.CreateManualMove(ctx, CreateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 12, To: "D-09-09"})
	require.NoError(t, err)
	assert.Equal(t, StatusDone, o.Status)
	assert.True(t, o.Manual)
	require.NotNil(t, o.CompletedAt)
	assert.Nil(t, o.InstructedAt)

	item, err := f.ledger.Item(ctx, "SKU-A")
	require.NoError(t, err)
	assert.Equal(t, "D-09-09", item.Location.String())
	assert.Zero(t, f.ledger.ReservedQuantity("SKU-A"))
}

func TestCompleteWithUnknownSKUIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, err := f.svc.Create(ctx, CreateRequest{Owner: "acme", SKU: "SKU-GHOST", Quantity: 1, From: "A-01-01", To: "A-01-02"})
	require.NoError(t, err)

	res, err := f.svc.Complete(ctx, []string{o.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{o.ID}, res.Missing())
	got, _ := f.svc.Get(o.ID)
	assert.Equal(t, StatusPlanned, got.Status)
	assert.Nil(t, got.CompletedAt)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 0, To: "B-01-01"})
	require.ErrorIs(t, err, shared.ErrInvalidRequest)

	_, err = f.svc.Create(ctx, CreateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 1, To: "A-01-01"})
	require.ErrorIs(t, err, ErrSameLocation)

	_, err = f.svc.Create(ctx, CreateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 1, To: "nowhere"})
	require.ErrorIs(t, err, inventory.ErrInvalidLocation)
}

func TestCountsListAndAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 1, "B-01-01")
	f.create(t, 1, "B-01-02")
	f.create(t, 1, "B-01-03")
	f.svc.Instruct(ctx, []string{a.ID})

	counts := f.svc.Counts()
	assert.Equal(t, 2, counts[StatusPlanned])
	assert.Equal(t, 1, counts[StatusWaiting])
	assert.Equal(t, 0, counts[StatusDone])

	page, meta := f.svc.ListPage(Filter{Status: StatusPlanned}, 2, 1)
	require.Len(t, page, 1)
	assert.Equal(t, 2, meta.TotalPages)

	entries := f.audit.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, "movement:instruct", entries[3].Action)
}

func TestWithoutLedgerCompletionOnlyChangesStatus(t *testing.T) {
	svc := NewService(nil, shared.Deps{Clock: shared.FixedClock{At: testNow}})
	ctx := context.Background()
	o, err := svc.Create(ctx, CreateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 3, From: "A-01-01", To: "A-01-02"})
	require.NoError(t, err)

	res, err := svc.Complete(ctx, []string{o.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{o.ID}, res.Applied())
}

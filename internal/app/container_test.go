package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/dispatch"
	"github.com/odyssey-erp/odyssey-wms/internal/inventory"
	"github.com/odyssey-erp/odyssey-wms/internal/movement"
	"github.com/odyssey-erp/odyssey-wms/internal/returns/b2c"
	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

var testNow = time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC)

func newTestRuntime(t *testing.T, cfg *Config, logs *bytes.Buffer) *Runtime {
	t.Helper()
	logger := NewLoggerTo(logs, &Config{LogLevel: "debug"})
	rt := NewRuntime(cfg, logger, Options{Clock: shared.FixedClock{At: testNow}})
	_, err := rt.Ledger.RegisterItem(context.Background(), inventory.RegisterItemRequest{
		SKU: "SKU-A", Name: "Cleanser", Location: "A-01-01", SafetyStock: 20, OnHand: 50,
	})
	require.NoError(t, err)
	return rt
}

func TestRuntimeRegistersReservationSources(t *testing.T) {
	rt := newTestRuntime(t, &Config{}, &bytes.Buffer{})
	ctx := context.Background()

	_, err := rt.Movement.Create(ctx, movement.CreateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 10, To: "B-01-01"})
	require.NoError(t, err)
	_, err = rt.Dispatch.Allocate(ctx, dispatch.AllocateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 15})
	require.NoError(t, err)

	assert.Equal(t, 25, rt.Ledger.ReservedQuantity("SKU-A"))
	assert.Equal(t, 25, rt.Ledger.AvailableQuantity(ctx, "SKU-A"))

	_, err = rt.Dispatch.CreateDispatch(ctx, dispatch.CreateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 26})
	require.ErrorIs(t, err, dispatch.ErrInsufficientStock)
}

func TestRuntimeLogsLowStockAndCountsPostings(t *testing.T) {
	var logs bytes.Buffer
	rt := newTestRuntime(t, &Config{}, &logs)
	ctx := context.Background()

	_, err := rt.Dispatch.CreateDispatch(ctx, dispatch.CreateRequest{Owner: "acme", SKU: "SKU-A", Quantity: 35})
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "stock below safety level")
	count, err := testutil.GatherAndCount(rt.Metrics.Gatherer(), "odyssey_wms_ledger_postings_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, rt.AuditEntries(), 1)
	assert.Equal(t, "dispatch:create", rt.AuditEntries()[0].Action)
}

func TestRuntimeHonoursUnderflowAndIDStrategy(t *testing.T) {
	rt := newTestRuntime(t, &Config{InventoryUnderflow: "reject", IDStrategy: "uuid"}, &bytes.Buffer{})
	ctx := context.Background()

	_, err := rt.Ledger.Adjust(ctx, "SKU-A", -60, inventory.KindAdjustment, "count")
	require.ErrorIs(t, err, inventory.ErrNegativeStock)

	tx, err := rt.Ledger.Adjust(ctx, "SKU-A", 5, inventory.KindInbound, "receipt")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tx.ID, "TX-"))
	assert.Len(t, tx.ID, len("TX-")+36)
}

func TestRuntimeAuditToLog(t *testing.T) {
	var logs bytes.Buffer
	rt := newTestRuntime(t, &Config{AuditSink: "log"}, &logs)
	_, err := rt.B2C.Create(context.Background(), b2c.CreateRequest{
		Owner: "acme", SalesOrderRef: "SO-1", TrackingNumber: "TRK-1", SKU: "SKU-A", Quantity: 1,
	})
	require.NoError(t, err)
	assert.Nil(t, rt.AuditEntries())
	assert.Contains(t, logs.String(), "b2c_return:create")
}

package observability

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountPostingsAndTransitions(t *testing.T) {
	metrics := NewMetrics()

	metrics.ObservePosting("outbound", -5)
	metrics.ObservePosting("outbound", -3)
	metrics.ObserveTransition("movement", "complete", "applied")
	metrics.ObserveShortfall(220)
	metrics.ObserveShortfall(0)

	require.InDelta(t, 2, testutil.ToFloat64(metrics.postings.WithLabelValues("outbound")), 0.0001)
	require.InDelta(t, 8, testutil.ToFloat64(metrics.postedQuantity.WithLabelValues("outbound")), 0.0001)
	require.InDelta(t, 1, testutil.ToFloat64(metrics.transitions.WithLabelValues("movement", "complete", "applied")), 0.0001)
	require.InDelta(t, 220, testutil.ToFloat64(metrics.fefoShortfall), 0.0001)
}

func TestMetricsWriteText(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveTransition("b2b_return", "confirm_receiving", "skipped-invalid-state")

	var buf bytes.Buffer
	require.NoError(t, metrics.WriteText(&buf))
	require.Contains(t, buf.String(), `odyssey_wms_transitions_total{command="confirm_receiving",outcome="skipped-invalid-state",workflow="b2b_return"} 1`)
}

func TestMetricsTotals(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObservePosting("inbound", 4)
	metrics.ObservePosting("outbound", -6)
	metrics.ObserveTransition("dispatch", "ship", "applied")

	totals, err := metrics.Totals()
	require.NoError(t, err)
	require.InDelta(t, 2, totals["odyssey_wms_ledger_postings_total"], 0.0001)
	require.InDelta(t, 10, totals["odyssey_wms_ledger_quantity_total"], 0.0001)
	require.InDelta(t, 1, totals["odyssey_wms_transitions_total"], 0.0001)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var metrics *Metrics
	require.NotPanics(t, func() {
		metrics.ObservePosting("inbound", 1)
		metrics.ObserveTransition("dispatch", "cancel", "applied")
		metrics.ObserveShortfall(3)
	})
}

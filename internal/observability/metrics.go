package observability

import (
	"io"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Metrics collects Prometheus metrics for ledger postings and workflow transitions.
type Metrics struct {
	registry       *prometheus.Registry
	postings       *prometheus.CounterVec
	postedQuantity *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	fefoShortfall  prometheus.Counter
}

// NewMetrics initialises a private registry and the warehouse collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	postings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_wms_ledger_postings_total",
		Help: "Inventory ledger transactions appended, by kind.",
	}, []string{"kind"})
	quantity := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_wms_ledger_quantity_total",
		Help: "Absolute quantity moved by ledger transactions, by kind.",
	}, []string{"kind"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_wms_transitions_total",
		Help: "Workflow command outcomes per target record.",
	}, []string{"workflow", "command", "outcome"})
	shortfall := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odyssey_wms_fefo_shortfall_total",
		Help: "Quantity requested from FEFO allocation that no lot could cover.",
	})
	registry.MustRegister(postings, quantity, transitions, shortfall)
	return &Metrics{
		registry:       registry,
		postings:       postings,
		postedQuantity: quantity,
		transitions:    transitions,
		fefoShortfall:  shortfall,
	}
}

// ObservePosting counts a ledger transaction of the given kind.
func (m *Metrics) ObservePosting(kind string, delta int) {
	if m == nil {
		return
	}
	m.postings.WithLabelValues(kind).Inc()
	m.postedQuantity.WithLabelValues(kind).Add(math.Abs(float64(delta)))
}

// ObserveTransition counts one command outcome for a workflow record.
func (m *Metrics) ObserveTransition(workflow, command, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(workflow, command, outcome).Inc()
}

// ObserveShortfall adds quantity that FEFO allocation could not satisfy.
func (m *Metrics) ObserveShortfall(qty int) {
	if m == nil || qty <= 0 {
		return
	}
	m.fefoShortfall.Add(float64(qty))
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Gatherer exposes the registry for reads.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.DefaultGatherer
	}
	return m.registry
}

// WriteText renders every registered family in the text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.Gatherer().Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Totals sums every counter family across its label sets, keyed by family name.
func (m *Metrics) Totals() (map[string]float64, error) {
	families, err := m.Gatherer().Gather()
	if err != nil {
		return nil, err
	}
	totals := make(map[string]float64, len(families))
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		sum := 0.0
		for _, metric := range mf.GetMetric() {
			sum += metric.GetCounter().GetValue()
		}
		totals[mf.GetName()] = sum
	}
	return totals, nil
}

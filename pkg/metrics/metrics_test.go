package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

func TestMetrics_Contadores(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.OrderOutcome("committed")
	m.OrderOutcome("committed")
	m.LockTimeout()

	count, err := testutil.GatherAndCount(reg, "stock_ledger_orders_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count, "una serie por outcome")
}

func TestMetrics_NilEsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.OrderOutcome("committed")
		m.Movement("sale")
		m.LockTimeout()
		m.InvoiceFallback()
		m.Quarantine()
	})
}

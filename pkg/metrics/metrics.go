package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contadores del núcleo de stock. Un *Metrics nil es válido y no registra nada.
type Metrics struct {
	orders          *prometheus.CounterVec
	movements       *prometheus.CounterVec
	lockTimeouts    prometheus.Counter
	invoiceFallback prometheus.Counter
	quarantines     prometheus.Counter
}

// New registra los colectores en reg (usar prometheus.NewRegistry() en tests).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stock_ledger",
			Name:      "orders_total",
			Help:      "Pedidos procesados por resultado (committed, insufficient_stock, validation_error, error, cancelled).",
		}, []string{"outcome"}),
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stock_ledger",
			Name:      "movements_total",
			Help:      "Movimientos de stock registrados por tipo.",
		}, []string{"kind"}),
		lockTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stock_ledger",
			Name:      "lock_timeouts_total",
			Help:      "Transacciones abortadas por no obtener el bloqueo a tiempo.",
		}),
		invoiceFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stock_ledger",
			Name:      "invoice_fallback_total",
			Help:      "Números de factura emitidos por el esquema degradado (timestamp + aleatorio).",
		}),
		quarantines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stock_ledger",
			Name:      "quarantined_records_total",
			Help:      "Registros de stock congelados por violación de invariante.",
		}),
	}
	reg.MustRegister(m.orders, m.movements, m.lockTimeouts, m.invoiceFallback, m.quarantines)
	return m
}

func (m *Metrics) OrderOutcome(outcome string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Movement(kind string) {
	if m == nil {
		return
	}
	m.movements.WithLabelValues(kind).Inc()
}

func (m *Metrics) LockTimeout() {
	if m == nil {
		return
	}
	m.lockTimeouts.Inc()
}

func (m *Metrics) InvoiceFallback() {
	if m == nil {
		return
	}
	m.invoiceFallback.Inc()
}

func (m *Metrics) Quarantine() {
	if m == nil {
		return
	}
	m.quarantines.Inc()
}

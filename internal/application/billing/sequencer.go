package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

// Periodos de numeración.
const (
	PeriodNone   = "none"
	PeriodYearly = "yearly"
)

// SequencerConfig numeración de facturas por tenant.
type SequencerConfig struct {
	Prefix          string
	Period          string
	FallbackEnabled bool
	FallbackRetries int
}

// InvoiceSequencer emite números de factura únicos por tenant.
// El camino principal incrementa el contador del tenant con bloqueo de fila dentro de la transacción
// que compromete el pedido: los llamadores concurrentes se serializan en esa fila.
// El esquema timestamp + aleatorio solo se usa si el contador no está disponible.
type InvoiceSequencer struct {
	cfg     SequencerConfig
	now     func() time.Time
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewInvoiceSequencer(cfg SequencerConfig, log *logger.Logger, m *metrics.Metrics) *InvoiceSequencer {
	if cfg.Prefix == "" {
		cfg.Prefix = "FV"
	}
	if cfg.Period == "" {
		cfg.Period = PeriodNone
	}
	if cfg.FallbackRetries < 1 {
		cfg.FallbackRetries = 1
	}
	return &InvoiceSequencer{cfg: cfg, now: time.Now, log: log.Component("invoice-sequencer"), metrics: m}
}

// Next devuelve el siguiente número para el tenant usando los repos de la transacción en curso.
// Un número emitido no se reutiliza aunque la transacción se revierta después (puede haber huecos).
func (s *InvoiceSequencer) Next(ctx context.Context, r repository.Repos, tenantID string) (string, error) {
	now := s.now()
	period := s.periodKey(now)
	n, err := r.Sequences.NextValue(ctx, tenantID, period)
	if err == nil {
		return s.format(period, n), nil
	}
	if !errors.Is(err, domain.ErrSequenceUnavailable) || !s.cfg.FallbackEnabled {
		return "", err
	}

	s.log.Warn().Str("tenant_id", tenantID).Msg("consecutivo no disponible; usando numeración degradada")
	for attempt := 1; attempt <= s.cfg.FallbackRetries; attempt++ {
		candidate := s.fallback(now)
		exists, err := r.Orders.InvoiceNumberExists(ctx, tenantID, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			s.metrics.InvoiceFallback()
			return candidate, nil
		}
		s.log.Warn().Str("tenant_id", tenantID).Str("candidate", candidate).Int("attempt", attempt).Msg("colisión en numeración degradada")
	}
	return "", fmt.Errorf("numeración degradada agotó %d intentos: %w", s.cfg.FallbackRetries, domain.ErrSequenceUnavailable)
}

func (s *InvoiceSequencer) periodKey(now time.Time) string {
	if s.cfg.Period == PeriodYearly {
		return now.Format("2006")
	}
	return ""
}

func (s *InvoiceSequencer) format(period string, n int64) string {
	if period != "" {
		return fmt.Sprintf("%s-%s-%06d", s.cfg.Prefix, period, n)
	}
	return fmt.Sprintf("%s-%08d", s.cfg.Prefix, n)
}

func (s *InvoiceSequencer) fallback(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
	return fmt.Sprintf("%s-%s-%s", s.cfg.Prefix, now.UTC().Format("20060102150405"), suffix)
}

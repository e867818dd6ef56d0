package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func nextIn(t *testing.T, store *memory.Store, s *InvoiceSequencer, tenant string) (string, error) {
	t.Helper()
	var number string
	err := store.Run(context.Background(), func(ctx context.Context, r repository.Repos) error {
		var err error
		number, err = s.Next(ctx, r, tenant)
		return err
	})
	return number, err
}

func TestInvoiceSequencer_ConsecutivoPorTenant(t *testing.T) {
	store := memory.NewStore(time.Second)
	s := NewInvoiceSequencer(SequencerConfig{Prefix: "FE"}, logger.Nop(), nil)

	n1, err := nextIn(t, store, s, "a")
	require.NoError(t, err)
	n2, err := nextIn(t, store, s, "a")
	require.NoError(t, err)
	other, err := nextIn(t, store, s, "b")
	require.NoError(t, err)

	assert.Equal(t, "FE-00000001", n1)
	assert.Equal(t, "FE-00000002", n2)
	assert.Equal(t, "FE-00000001", other, "los tenants no comparten contador")
}

func TestInvoiceSequencer_PeriodoAnual(t *testing.T) {
	store := memory.NewStore(time.Second)
	s := NewInvoiceSequencer(SequencerConfig{Prefix: "FV", Period: PeriodYearly}, logger.Nop(), nil)
	s.now = func() time.Time { return time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC) }

	n, err := nextIn(t, store, s, "a")
	require.NoError(t, err)
	assert.Equal(t, "FV-2025-000001", n)

	s.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC) }
	n, err = nextIn(t, store, s, "a")
	require.NoError(t, err)
	assert.Equal(t, "FV-2026-000001", n, "el contador reinicia con el periodo")
}

func TestInvoiceSequencer_RollbackNoConsumeNumeroEnMemoria(t *testing.T) {
	store := memory.NewStore(time.Second)
	s := NewInvoiceSequencer(SequencerConfig{}, logger.Nop(), nil)

	boom := errors.New("boom")
	err := store.Run(context.Background(), func(ctx context.Context, r repository.Repos) error {
		if _, err := s.Next(ctx, r, "a"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := nextIn(t, store, s, "a")
	require.NoError(t, err)
	assert.Equal(t, "FV-00000001", n)
}

func TestInvoiceSequencer_DegradadoDesactivado(t *testing.T) {
	store := memory.NewStore(time.Second)
	store.SetSequencesAvailable(false)
	s := NewInvoiceSequencer(SequencerConfig{FallbackEnabled: false}, logger.Nop(), nil)

	_, err := nextIn(t, store, s, "a")
	assert.True(t, errors.Is(err, domain.ErrSequenceUnavailable))
}

func TestInvoiceSequencer_DegradadoUsaPrefijoYFecha(t *testing.T) {
	store := memory.NewStore(time.Second)
	store.SetSequencesAvailable(false)
	s := NewInvoiceSequencer(SequencerConfig{Prefix: "FV", FallbackEnabled: true, FallbackRetries: 2}, logger.Nop(), nil)
	s.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

	n, err := nextIn(t, store, s, "a")
	require.NoError(t, err)
	assert.Regexp(t, `^FV-20260304050607-[0-9a-f]{6}$`, n)
}

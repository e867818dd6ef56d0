package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeed(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSeed_CargaBodegasYProductos(t *testing.T) {
	path := writeSeed(t, "seed.yaml", `
warehouses:
  - id: wh-1
    tenant_id: t1
    name: Principal
    is_primary: true
products:
  - id: P
    tenant_id: t1
    sku: SKU-P
    price: "1500.50"
    tax_rate: "0.19"
`)
	s := NewStore(time.Second)
	nw, np, err := LoadSeed(s, path)
	require.NoError(t, err)
	assert.Equal(t, 1, nw)
	assert.Equal(t, 1, np)

	wh, err := s.Warehouses().GetByID(context.Background(), "wh-1")
	require.NoError(t, err)
	require.NotNil(t, wh)
	assert.True(t, wh.IsPrimary)

	pt, err := s.Catalog().ResolvePriceAndTax(context.Background(), "t1", "P")
	require.NoError(t, err)
	require.NotNil(t, pt)
	assert.Equal(t, "1500.5", pt.UnitPrice.String())
	assert.Equal(t, "0.19", pt.TaxRate.String())
}

func TestLoadSeed_PrecioInvalido_RetornaError(t *testing.T) {
	path := writeSeed(t, "seed.json", `{"products":[{"id":"P","tenant_id":"t1","price":"abc"}]}`)
	_, _, err := LoadSeed(NewStore(time.Second), path)
	require.Error(t, err)
}

func TestLoadSeed_ArchivoInexistente_RetornaError(t *testing.T) {
	_, _, err := LoadSeed(NewStore(time.Second), filepath.Join(t.TempDir(), "nada.yaml"))
	require.Error(t, err)
}

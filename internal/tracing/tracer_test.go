package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func TestInit_SinEndpointNoRegistraProveedor(t *testing.T) {
	shutdown, err := Init("stock-ledger", "", logger.Nop())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidDiscount_SoloFraccion(t *testing.T) {
	for _, v := range []string{"0", "0.1", "0.9", "0.999"} {
		assert.True(t, validDiscount(decimal.RequireFromString(v)), v)
	}
	for _, v := range []string{"-0.01", "1", "1.1", "10", "100"} {
		assert.False(t, validDiscount(decimal.RequireFromString(v)), v)
	}
}

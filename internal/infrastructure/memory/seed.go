package memory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

type seedWarehouse struct {
	ID        string `mapstructure:"id"`
	TenantID  string `mapstructure:"tenant_id"`
	Name      string `mapstructure:"name"`
	IsPrimary bool   `mapstructure:"is_primary"`
}

type seedProduct struct {
	ID       string `mapstructure:"id"`
	TenantID string `mapstructure:"tenant_id"`
	SKU      string `mapstructure:"sku"`
	Name     string `mapstructure:"name"`
	Price    string `mapstructure:"price"`
	TaxRate  string `mapstructure:"tax_rate"`
}

// LoadSeed carga bodegas y productos desde un archivo (json, yaml o toml según la extensión).
// Devuelve cuántas bodegas y productos se registraron.
func LoadSeed(s *Store, path string) (int, int, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return 0, 0, fmt.Errorf("seed %s: %w", path, err)
	}
	var (
		warehouses []seedWarehouse
		products   []seedProduct
	)
	if err := v.UnmarshalKey("warehouses", &warehouses); err != nil {
		return 0, 0, fmt.Errorf("seed warehouses: %w", err)
	}
	if err := v.UnmarshalKey("products", &products); err != nil {
		return 0, 0, fmt.Errorf("seed products: %w", err)
	}

	now := time.Now()
	for _, w := range warehouses {
		if w.ID == "" || w.TenantID == "" {
			return 0, 0, fmt.Errorf("seed: bodega sin id o tenant_id")
		}
		s.AddWarehouse(entity.Warehouse{ID: w.ID, TenantID: w.TenantID, Name: w.Name, IsPrimary: w.IsPrimary, CreatedAt: now})
	}
	for _, p := range products {
		if p.ID == "" || p.TenantID == "" {
			return 0, 0, fmt.Errorf("seed: producto sin id o tenant_id")
		}
		price, err := decimal.NewFromString(orZero(p.Price))
		if err != nil {
			return 0, 0, fmt.Errorf("seed: precio de %s: %w", p.ID, err)
		}
		tax, err := decimal.NewFromString(orZero(p.TaxRate))
		if err != nil {
			return 0, 0, fmt.Errorf("seed: impuesto de %s: %w", p.ID, err)
		}
		s.AddProduct(entity.Product{ID: p.ID, TenantID: p.TenantID, SKU: p.SKU, Name: p.Name, Price: price, TaxRate: tax})
	}
	return len(warehouses), len(products), nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

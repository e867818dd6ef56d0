package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// LockedStock registros bloqueados dentro de la transacción en curso, por clave.
// Un registro con ID vacío no existe en el almacén (solo con create=false).
type LockedStock map[entity.StockKey]entity.StockRecord

// Exists indica si el registro existe (o fue creado por el bloqueo).
func (l LockedStock) Exists(key entity.StockKey) bool {
	return l[key].ID != ""
}

// SortedKeys deduplica y ordena las claves (tenant, producto, bodega).
func SortedKeys(keys []entity.StockKey) []entity.StockKey {
	seen := make(map[entity.StockKey]struct{}, len(keys))
	out := make([]entity.StockKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// WithStockLock bloquea los registros en orden total de clave y ejecuta fn con los valores bloqueados.
// Todo proceso que bloquea varios registros pasa por aquí, así dos transacciones nunca esperan en ciclo.
// Con create=true los registros inexistentes se crean en cero (recepción perezosa).
// Si un bloqueo no se obtiene a tiempo el almacén devuelve LockTimeoutError y fn no se ejecuta.
func WithStockLock(
	ctx context.Context,
	stocks repository.StockRepository,
	keys []entity.StockKey,
	create bool,
	fn func(locked LockedStock) error,
) error {
	locked := make(LockedStock, len(keys))
	for _, key := range SortedKeys(keys) {
		var (
			rec *entity.StockRecord
			err error
		)
		if create {
			rec, err = stocks.EnsureForUpdate(ctx, key)
		} else {
			rec, err = stocks.GetForUpdate(ctx, key)
		}
		if err != nil {
			return fmt.Errorf("bloquear stock %s: %w", key, err)
		}
		if rec == nil {
			locked[key] = entity.StockRecord{TenantID: key.TenantID, ProductID: key.ProductID, WarehouseID: key.WarehouseID}
			continue
		}
		locked[key] = *rec
	}
	return fn(locked)
}

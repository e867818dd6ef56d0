package entity

import "time"

// Warehouse representa una bodega o sucursal donde se almacena inventario (multi-bodega).
// La crea el onboarding del tenant; es inmutable una vez referenciada por stock.
type Warehouse struct {
	ID        string
	TenantID  string
	Name      string
	IsPrimary bool
	CreatedAt time.Time
}

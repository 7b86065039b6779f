package entity

import "time"

// Branch sucursal/punto de venta de un tenant. Igual que Product, solo se
// consulta para validar pertenencia al tenant antes de mutar stock.
type Branch struct {
	ID        string
	TenantID  string
	Name      string
	Active    bool
	CreatedAt time.Time
}

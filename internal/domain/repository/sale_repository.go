package repository

import "github.com/jhoicas/Kardex-api/internal/domain/entity"

// SaleRepository puerto de lectura/edición de ventas para el flujo maker-checker.
// La creación de ventas pertenece al subsistema de ventas, fuera de este core.
type SaleRepository interface {
	// GetByID devuelve la venta con sus líneas, o nil si no existe en el tenant.
	GetByID(tenantID, saleID string) (*entity.Sale, error)

	// GetForUpdate bloquea la fila de la venta (SELECT FOR UPDATE) para
	// serializar decisiones concurrentes sobre la misma venta, y devuelve
	// la venta con sus líneas. domain.ErrLockTimeout si no adquiere el lock.
	GetForUpdate(tenantID, saleID string) (*entity.Sale, error)

	// UpdateLinePrice persiste el nuevo precio y total de una línea.
	UpdateLinePrice(line *entity.SaleLine) error

	// DeleteLine elimina una línea de la venta.
	DeleteLine(tenantID, lineID string) error

	// UpdateTotals persiste subtotal y total recalculados de la cabecera.
	UpdateTotals(sale *entity.Sale) error
}

package repository

import "github.com/jhoicas/Kardex-api/internal/domain/entity"

// StockProjectionRepository puerto para la proyección de cantidad actual.
// Solo el motor de mutaciones escribe aquí, siempre dentro de una transacción.
type StockProjectionRepository interface {
	// Get devuelve la fila de proyección; si no existe devuelve una fila en
	// cero (la clave aún no ha tenido movimientos).
	Get(tenantID, branchID, productID, batchKey string) (*entity.StockProjection, error)

	// GetForUpdate crea la fila en cero si no existe y la bloquea
	// (SELECT FOR UPDATE) para el resto de la transacción. Es el único punto
	// de serialización del motor. Devuelve domain.ErrLockTimeout si el lock
	// no se adquiere dentro del plazo configurado.
	GetForUpdate(tenantID, branchID, productID, batchKey string) (*entity.StockProjection, error)

	// Upsert persiste la fila (insert o update por clave compuesta).
	Upsert(projection *entity.StockProjection) error
}

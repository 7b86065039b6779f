package domain

import "errors"

// Errores de dominio (sin dependencias externas). Los handlers HTTP los
// mapean a códigos de estado; ninguno se traga en silencio.
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")

	// ErrInvalidDelta: el delta de una mutación no puede ser cero.
	ErrInvalidDelta = errors.New("delta de stock inválido")
	// ErrCrossTenant: el producto o la sucursal no pertenecen al tenant del caller.
	ErrCrossTenant = errors.New("referencia fuera del tenant")
	// ErrInsufficientStock: la deducción dejaría la cantidad en negativo.
	ErrInsufficientStock = errors.New("stock insuficiente")
	// ErrDuplicateSource: ya existe un asiento no duplicado con el mismo
	// (source_reference, source_kind, tenant). El motor lo convierte en
	// resultado informativo, no en fallo.
	ErrDuplicateSource = errors.New("source de mutación duplicado")
	// ErrLockTimeout: no se adquirió el lock por fila dentro del plazo.
	// Transitorio; el caller puede reintentar (la idempotencia lo hace seguro).
	ErrLockTimeout = errors.New("timeout adquiriendo lock de stock")
	// ErrInvalidState: la solicitud de edición ya está en estado terminal.
	ErrInvalidState = errors.New("la solicitud ya fue decidida")
)

package entity

import (
	"strings"
	"time"
)

// BatchKey identifica un lote físico de un producto: número de lote + vencimiento.
// Productos sin manejo de lote usan el BatchKey vacío.
type BatchKey struct {
	Number string
	Expiry *time.Time
}

// Normalize devuelve la clave de una sola columna usada por la proyección,
// el lock por fila y los índices del ledger: "NUMERO|YYYY-MM-DD".
// Vacía si el producto no maneja lotes.
func (b BatchKey) Normalize() string {
	number := strings.TrimSpace(b.Number)
	if number == "" {
		return ""
	}
	if b.Expiry == nil {
		return number
	}
	return number + "|" + b.Expiry.Format("2006-01-02")
}

// IsZero indica si no hay lote.
func (b BatchKey) IsZero() bool {
	return strings.TrimSpace(b.Number) == ""
}

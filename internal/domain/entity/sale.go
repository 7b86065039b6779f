package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una venta. Solo las ventas COMPLETED admiten solicitudes de edición.
const (
	SaleStatusCompleted = "COMPLETED"
	SaleStatusVoided    = "VOIDED"
	SaleStatusLocked    = "LOCKED" // cierre contable: no admite más ediciones
)

// Sale representa la cabecera de una venta POS.
type Sale struct {
	ID         string
	TenantID   string
	BranchID   string
	CustomerID string
	Status     string
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	SoldBy     string
	Lines      []*SaleLine
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SaleLine representa una línea de venta. BatchKey registra de qué lote se
// descontó el stock, para que una reversión restaure el lote correcto.
type SaleLine struct {
	ID        string
	SaleID    string
	ProductID string
	BatchKey  string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

// IsEditable indica si la venta admite solicitudes de edición maker-checker.
func (s *Sale) IsEditable() bool {
	return s.Status == SaleStatusCompleted
}

// Line devuelve la línea con el ID dado, o nil si no pertenece a la venta.
func (s *Sale) Line(lineID string) *SaleLine {
	for _, l := range s.Lines {
		if l.ID == lineID {
			return l
		}
	}
	return nil
}

// RemoveLine quita la línea de la venta en memoria (la persistencia la hace el repo).
func (s *Sale) RemoveLine(lineID string) {
	for i, l := range s.Lines {
		if l.ID == lineID {
			s.Lines = append(s.Lines[:i], s.Lines[i+1:]...)
			return
		}
	}
}

// RecomputeTotals recalcula subtotal y total a partir de las líneas vigentes.
// El descuento de la venta se conserva tal cual.
func (s *Sale) RecomputeTotals() {
	subtotal := decimal.Zero
	for _, l := range s.Lines {
		subtotal = subtotal.Add(l.Total)
	}
	s.Subtotal = subtotal.Round(2)
	s.Total = s.Subtotal.Sub(s.Discount).Round(2)
}

package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockProjection es la cantidad actual materializada por
// (tenant, branch, product, batch). Derivada del ledger: en todo momento
// Quantity debe igualar la suma de deltas no duplicados de esa clave.
// Nunca se borra; solo se desactiva (Active = false).
type StockProjection struct {
	TenantID     string
	BranchID     string
	ProductID    string
	BatchKey     string
	Quantity     decimal.Decimal
	UnitCost     decimal.Decimal
	SellingPrice decimal.Decimal
	Active       bool
	UpdatedAt    time.Time
}

// Key devuelve la clave compuesta usada para locks e índices.
func (p *StockProjection) Key() string {
	return p.TenantID + "/" + p.BranchID + "/" + p.ProductID + "/" + p.BatchKey
}

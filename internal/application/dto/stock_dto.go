package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterMutationRequest cuerpo de POST /api/stock/mutations. Delta ya viene
// con signo (positivo entra, negativo sale). SourceReference debe ser el ID
// estable del documento de negocio para que los reintentos sean idempotentes.
type RegisterMutationRequest struct {
	BranchID        string           `json:"branch_id"`
	ProductID       string           `json:"product_id"`
	BatchNumber     string           `json:"batch_number,omitempty"`
	BatchExpiry     *time.Time       `json:"batch_expiry,omitempty"`
	Kind            string           `json:"kind"`
	Delta           decimal.Decimal  `json:"delta"`
	SourceKind      string           `json:"source_kind"`
	SourceReference string           `json:"source_reference"`
	UnitCost        *decimal.Decimal `json:"unit_cost,omitempty"`
	SellingPrice    *decimal.Decimal `json:"selling_price,omitempty"`
}

// MutationResponse resultado de una mutación. Duplicate en true indica que el
// source ya había sido aplicado y se devuelve el asiento original.
type MutationResponse struct {
	EntryID        string          `json:"entry_id"`
	QuantityBefore decimal.Decimal `json:"quantity_before"`
	QuantityAfter  decimal.Decimal `json:"quantity_after"`
	Duplicate      bool            `json:"duplicate"`
}

// LedgerEntryDTO asiento del ledger en listados de auditoría.
type LedgerEntryDTO struct {
	ID              string          `json:"id"`
	BranchID        string          `json:"branch_id"`
	ProductID       string          `json:"product_id"`
	BatchKey        string          `json:"batch_key,omitempty"`
	Kind            string          `json:"kind"`
	Delta           decimal.Decimal `json:"delta"`
	QuantityBefore  decimal.Decimal `json:"quantity_before"`
	QuantityAfter   decimal.Decimal `json:"quantity_after"`
	SourceKind      string          `json:"source_kind"`
	SourceReference string          `json:"source_reference"`
	PerformedBy     string          `json:"performed_by,omitempty"`
	PerformedAt     time.Time       `json:"performed_at"`
}

// QuantityAsOfResponse cantidad reconstruida a un instante dado.
type QuantityAsOfResponse struct {
	Quantity decimal.Decimal `json:"quantity"`
	AsOf     time.Time       `json:"as_of"`
}

// MovementSummaryDTO totales por kind en un rango de fechas.
type MovementSummaryDTO struct {
	Kind     string          `json:"kind"`
	Entries  int             `json:"entries"`
	TotalIn  decimal.Decimal `json:"total_in"`
	TotalOut decimal.Decimal `json:"total_out"`
	NetDelta decimal.Decimal `json:"net_delta"`
}

// DriftReportDTO resultado de la verificación ledger vs proyección.
type DriftReportDTO struct {
	LedgerQuantity     decimal.Decimal `json:"ledger_quantity"`
	ProjectionQuantity decimal.Decimal `json:"projection_quantity"`
	Drift              decimal.Decimal `json:"drift"`
	InSync             bool            `json:"in_sync"`
}

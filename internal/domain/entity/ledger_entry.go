package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind clasifica el efecto de negocio de cada asiento del ledger.
type TransactionKind string

const (
	TxKindPurchase         TransactionKind = "PURCHASE"
	TxKindSale             TransactionKind = "SALE"
	TxKindAdjustment       TransactionKind = "ADJUSTMENT"
	TxKindTransferIn       TransactionKind = "TRANSFER_IN"
	TxKindTransferOut      TransactionKind = "TRANSFER_OUT"
	TxKindReturn           TransactionKind = "RETURN"
	TxKindExpiryWriteOff   TransactionKind = "EXPIRY_WRITE_OFF"
	TxKindDamageWriteOff   TransactionKind = "DAMAGE_WRITE_OFF"
	TxKindInitialStock     TransactionKind = "INITIAL_STOCK"
	TxKindSystemAdjustment TransactionKind = "SYSTEM_ADJUSTMENT"
)

// IsValid verifica que el kind sea uno de los valores conocidos.
func (k TransactionKind) IsValid() bool {
	switch k {
	case TxKindPurchase, TxKindSale, TxKindAdjustment, TxKindTransferIn,
		TxKindTransferOut, TxKindReturn, TxKindExpiryWriteOff,
		TxKindDamageWriteOff, TxKindInitialStock, TxKindSystemAdjustment:
		return true
	}
	return false
}

// SourceKind identifica el subsistema que originó la mutación. Junto con
// SourceReference y el tenant forma la clave de idempotencia.
type SourceKind string

const (
	SourceKindSale           SourceKind = "SALE"
	SourceKindPurchaseOrder  SourceKind = "PURCHASE_ORDER"
	SourceKindGoodsReceived  SourceKind = "GOODS_RECEIVED_NOTE"
	SourceKindAdjustment     SourceKind = "ADJUSTMENT"
	SourceKindTransfer       SourceKind = "TRANSFER"
	SourceKindReturn         SourceKind = "RETURN"
	SourceKindExpiryWriteOff SourceKind = "EXPIRY_WRITE_OFF"
	SourceKindDamageWriteOff SourceKind = "DAMAGE_WRITE_OFF"
	SourceKindInitialStock   SourceKind = "INITIAL_STOCK"
	SourceKindSystem         SourceKind = "SYSTEM"
)

// IsValid verifica que el source kind sea uno de los valores conocidos.
func (k SourceKind) IsValid() bool {
	switch k {
	case SourceKindSale, SourceKindPurchaseOrder, SourceKindGoodsReceived,
		SourceKindAdjustment, SourceKindTransfer, SourceKindReturn,
		SourceKindExpiryWriteOff, SourceKindDamageWriteOff,
		SourceKindInitialStock, SourceKindSystem:
		return true
	}
	return false
}

// LedgerEntry es un asiento inmutable del ledger de stock. Se crea una sola vez
// por mutación aceptada; nunca se actualiza ni se borra (auditoría/compliance).
type LedgerEntry struct {
	ID              string
	TenantID        string
	BranchID        string
	ProductID       string
	BatchKey        string // clave normalizada de lote, vacía si no aplica
	Kind            TransactionKind
	Delta           decimal.Decimal // con signo; nunca cero
	QuantityBefore  decimal.Decimal
	QuantityAfter   decimal.Decimal
	UnitCost        *decimal.Decimal
	SellingPrice    *decimal.Decimal
	SourceKind      SourceKind
	SourceReference string // ID estable del documento de negocio que originó la mutación
	PerformedBy     string
	PerformedAt     time.Time
	IsDuplicate     bool
	DuplicateOf     *string // ID del asiento original que este duplica, si aplica
	CreatedAt       time.Time
}

// NewLedgerEntryInput parámetros para construir un asiento.
type NewLedgerEntryInput struct {
	TenantID        string
	BranchID        string
	ProductID       string
	BatchKey        string
	Kind            TransactionKind
	Delta           decimal.Decimal
	QuantityBefore  decimal.Decimal
	UnitCost        *decimal.Decimal
	SellingPrice    *decimal.Decimal
	SourceKind      SourceKind
	SourceReference string
	PerformedBy     string
	PerformedAt     time.Time
}

// NewLedgerEntry construye un asiento válido. QuantityAfter se calcula aquí,
// así el invariante quantity_after == quantity_before + delta se cumple por
// construcción y no puede relajarse después.
func NewLedgerEntry(in NewLedgerEntryInput) (*LedgerEntry, error) {
	if in.Delta.IsZero() {
		return nil, fmt.Errorf("ledger entry: delta cero")
	}
	if in.TenantID == "" || in.BranchID == "" || in.ProductID == "" {
		return nil, fmt.Errorf("ledger entry: tenant, branch y product son obligatorios")
	}
	if in.SourceReference == "" {
		return nil, fmt.Errorf("ledger entry: source_reference obligatorio")
	}
	if !in.Kind.IsValid() {
		return nil, fmt.Errorf("ledger entry: kind desconocido %q", in.Kind)
	}
	if !in.SourceKind.IsValid() {
		return nil, fmt.Errorf("ledger entry: source_kind desconocido %q", in.SourceKind)
	}
	performedAt := in.PerformedAt
	if performedAt.IsZero() {
		performedAt = time.Now()
	}
	return &LedgerEntry{
		ID:              uuid.New().String(),
		TenantID:        in.TenantID,
		BranchID:        in.BranchID,
		ProductID:       in.ProductID,
		BatchKey:        in.BatchKey,
		Kind:            in.Kind,
		Delta:           in.Delta,
		QuantityBefore:  in.QuantityBefore,
		QuantityAfter:   in.QuantityBefore.Add(in.Delta),
		UnitCost:        in.UnitCost,
		SellingPrice:    in.SellingPrice,
		SourceKind:      in.SourceKind,
		SourceReference: in.SourceReference,
		PerformedBy:     in.PerformedBy,
		PerformedAt:     performedAt,
		CreatedAt:       performedAt,
	}, nil
}

// Validate re-verifica los invariantes sobre un asiento ya persistido
// (usado por la verificación de deriva y por importaciones de respaldo).
func (e *LedgerEntry) Validate() error {
	if e.Delta.IsZero() {
		return fmt.Errorf("ledger entry %s: delta cero", e.ID)
	}
	if !e.QuantityAfter.Equal(e.QuantityBefore.Add(e.Delta)) {
		return fmt.Errorf("ledger entry %s: quantity_after no cuadra con before+delta", e.ID)
	}
	return nil
}

// MovementSummary totales de movimientos agrupados por kind en un rango de fechas.
type MovementSummary struct {
	Kind     TransactionKind
	Entries  int
	TotalIn  decimal.Decimal // suma de deltas positivos
	TotalOut decimal.Decimal // suma de deltas negativos (valor absoluto)
	NetDelta decimal.Decimal
}

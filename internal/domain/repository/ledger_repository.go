package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/domain/entity"
)

// LedgerFilter filtro para listar asientos (pantalla de auditoría).
type LedgerFilter struct {
	TenantID  string
	BranchID  string
	ProductID string
	BatchKey  *string // nil = cualquier lote; "" = sin lote
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// LedgerRepository puerto de persistencia del ledger de stock. Append-only:
// no hay Update ni Delete; las correcciones entran como asientos nuevos.
type LedgerRepository interface {
	// Append persiste un asiento. Devuelve domain.ErrDuplicateSource si ya
	// existe un asiento no duplicado con el mismo (tenant, source_kind, source_reference).
	Append(entry *entity.LedgerEntry) error

	// GetBySource busca el asiento no duplicado de una clave de idempotencia.
	// Devuelve nil, nil si no existe.
	GetBySource(tenantID string, sourceKind entity.SourceKind, sourceRef string) (*entity.LedgerEntry, error)

	// SumDeltasAsOf suma los deltas no duplicados de la clave con
	// performed_at <= asOf. Base de quantityAsOf y de la verificación de deriva.
	SumDeltasAsOf(tenantID, branchID, productID, batchKey string, asOf time.Time) (decimal.Decimal, error)

	// List devuelve asientos según filtro, más recientes primero.
	List(filter LedgerFilter) ([]*entity.LedgerEntry, error)

	// SummaryByKind agrupa los asientos no duplicados del rango por kind.
	SummaryByKind(tenantID, branchID string, from, to time.Time) ([]entity.MovementSummary, error)
}

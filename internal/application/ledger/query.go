package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// QueryUseCase lecturas de reconstrucción sobre el ledger: cantidad a una
// fecha, resúmenes de movimiento y verificación de deriva contra la
// proyección. Sin efectos secundarios.
type QueryUseCase struct {
	ledgerRepo     repository.LedgerRepository
	projectionRepo repository.StockProjectionRepository
}

// NewQueryUseCase construye el caso de uso de consulta.
func NewQueryUseCase(
	ledgerRepo repository.LedgerRepository,
	projectionRepo repository.StockProjectionRepository,
) *QueryUseCase {
	return &QueryUseCase{ledgerRepo: ledgerRepo, projectionRepo: projectionRepo}
}

// QuantityAsOf reconstruye la cantidad de la clave a un instante dado:
// suma de deltas no duplicados con performed_at <= at.
func (uc *QueryUseCase) QuantityAsOf(tenantID, branchID, productID string, batch entity.BatchKey, at time.Time) (decimal.Decimal, error) {
	return uc.ledgerRepo.SumDeltasAsOf(tenantID, branchID, productID, batch.Normalize(), at)
}

// MovementSummary totales por kind en el rango [from, to] (reportes).
func (uc *QueryUseCase) MovementSummary(tenantID, branchID string, from, to time.Time) ([]entity.MovementSummary, error) {
	return uc.ledgerRepo.SummaryByKind(tenantID, branchID, from, to)
}

// ListMovements lista asientos según filtro (pantalla de auditoría).
func (uc *QueryUseCase) ListMovements(filter repository.LedgerFilter) ([]*entity.LedgerEntry, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return uc.ledgerRepo.List(filter)
}

// DriftReport resultado de la verificación ledger vs proyección.
type DriftReport struct {
	LedgerQuantity     decimal.Decimal
	ProjectionQuantity decimal.Decimal
	Drift              decimal.Decimal
	InSync             bool
}

// VerifyProjection comprueba el invariante continuo: la suma de deltas no
// duplicados de la clave debe igualar la cantidad de la proyección. Lo usan
// los jobs de conciliación; cualquier deriva indica corrupción y la
// proyección debe re-derivarse del ledger.
func (uc *QueryUseCase) VerifyProjection(tenantID, branchID, productID string, batch entity.BatchKey) (*DriftReport, error) {
	batchKey := batch.Normalize()
	replayed, err := uc.ledgerRepo.SumDeltasAsOf(tenantID, branchID, productID, batchKey, time.Now())
	if err != nil {
		return nil, err
	}
	projection, err := uc.projectionRepo.Get(tenantID, branchID, productID, batchKey)
	if err != nil {
		return nil, err
	}
	drift := projection.Quantity.Sub(replayed)
	return &DriftReport{
		LedgerQuantity:     replayed,
		ProjectionQuantity: projection.Quantity,
		Drift:              drift,
		InSync:             drift.IsZero(),
	}, nil
}

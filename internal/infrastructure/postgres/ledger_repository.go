package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

const ledgerColumns = `
	id, tenant_id, branch_id, product_id, batch_key, kind, delta,
	quantity_before, quantity_after, unit_cost, selling_price,
	source_kind, source_reference, performed_by, performed_at,
	is_duplicate, duplicate_of, created_at`

// LedgerRepo implementación del ledger sobre PostgreSQL (usable con pool o tx).
// La tabla es append-only: este repo no emite UPDATE ni DELETE.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Append inserta el asiento. El índice único parcial sobre
// (tenant_id, source_kind, source_reference) WHERE NOT is_duplicate convierte
// la carrera de dos inserciones del mismo source en domain.ErrDuplicateSource.
func (r *LedgerRepo) Append(entry *entity.LedgerEntry) error {
	query := `
		INSERT INTO stock_ledger (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	performedBy := (*string)(nil)
	if entry.PerformedBy != "" {
		performedBy = &entry.PerformedBy
	}
	_, err := r.q.Exec(context.Background(), query,
		entry.ID, entry.TenantID, entry.BranchID, entry.ProductID, entry.BatchKey,
		entry.Kind, entry.Delta, entry.QuantityBefore, entry.QuantityAfter,
		entry.UnitCost, entry.SellingPrice, entry.SourceKind, entry.SourceReference,
		performedBy, entry.PerformedAt, entry.IsDuplicate, entry.DuplicateOf, entry.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSource
		}
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

// GetBySource busca el asiento no duplicado de la clave de idempotencia.
func (r *LedgerRepo) GetBySource(tenantID string, sourceKind entity.SourceKind, sourceRef string) (*entity.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM stock_ledger
		WHERE tenant_id = $1 AND source_kind = $2 AND source_reference = $3 AND NOT is_duplicate`
	entry, err := scanLedgerEntry(r.q.QueryRow(context.Background(), query, tenantID, sourceKind, sourceRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger entry by source: %w", err)
	}
	return entry, nil
}

// SumDeltasAsOf reconstruye la cantidad de la clave al instante dado.
func (r *LedgerRepo) SumDeltasAsOf(tenantID, branchID, productID, batchKey string, asOf time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(delta), 0)
		FROM stock_ledger
		WHERE tenant_id = $1 AND branch_id = $2 AND product_id = $3 AND batch_key = $4
		  AND NOT is_duplicate AND performed_at <= $5`
	var sum decimal.Decimal
	err := r.q.QueryRow(context.Background(), query, tenantID, branchID, productID, batchKey, asOf).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum ledger deltas: %w", err)
	}
	return sum, nil
}

// List devuelve asientos según filtro, más recientes primero.
func (r *LedgerRepo) List(filter repository.LedgerFilter) ([]*entity.LedgerEntry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM stock_ledger WHERE tenant_id = $1`
	args := []any{filter.TenantID}
	pos := 2
	if filter.BranchID != "" {
		query += fmt.Sprintf(" AND branch_id = $%d", pos)
		args = append(args, filter.BranchID)
		pos++
	}
	if filter.ProductID != "" {
		query += fmt.Sprintf(" AND product_id = $%d", pos)
		args = append(args, filter.ProductID)
		pos++
	}
	if filter.BatchKey != nil {
		query += fmt.Sprintf(" AND batch_key = $%d", pos)
		args = append(args, *filter.BatchKey)
		pos++
	}
	if filter.From != nil {
		query += fmt.Sprintf(" AND performed_at >= $%d", pos)
		args = append(args, *filter.From)
		pos++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND performed_at <= $%d", pos)
		args = append(args, *filter.To)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY performed_at DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()
	var list []*entity.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		list = append(list, entry)
	}
	return list, rows.Err()
}

// SummaryByKind agrupa los asientos no duplicados del rango por kind.
func (r *LedgerRepo) SummaryByKind(tenantID, branchID string, from, to time.Time) ([]entity.MovementSummary, error) {
	query := `
		SELECT kind, COUNT(*),
		       COALESCE(SUM(delta) FILTER (WHERE delta > 0), 0),
		       COALESCE(SUM(-delta) FILTER (WHERE delta < 0), 0),
		       COALESCE(SUM(delta), 0)
		FROM stock_ledger
		WHERE tenant_id = $1 AND branch_id = $2 AND NOT is_duplicate
		  AND performed_at >= $3 AND performed_at <= $4
		GROUP BY kind
		ORDER BY kind`
	rows, err := r.q.Query(context.Background(), query, tenantID, branchID, from, to)
	if err != nil {
		return nil, fmt.Errorf("movement summary: %w", err)
	}
	defer rows.Close()
	var list []entity.MovementSummary
	for rows.Next() {
		var s entity.MovementSummary
		if err := rows.Scan(&s.Kind, &s.Entries, &s.TotalIn, &s.TotalOut, &s.NetDelta); err != nil {
			return nil, fmt.Errorf("scan movement summary: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func scanLedgerEntry(row pgx.Row) (*entity.LedgerEntry, error) {
	var e entity.LedgerEntry
	var performedBy *string
	err := row.Scan(
		&e.ID, &e.TenantID, &e.BranchID, &e.ProductID, &e.BatchKey, &e.Kind, &e.Delta,
		&e.QuantityBefore, &e.QuantityAfter, &e.UnitCost, &e.SellingPrice,
		&e.SourceKind, &e.SourceReference, &performedBy, &e.PerformedAt,
		&e.IsDuplicate, &e.DuplicateOf, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if performedBy != nil {
		e.PerformedBy = *performedBy
	}
	return &e, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

var _ repository.StockProjectionRepository = (*ProjectionRepo)(nil)

// ProjectionRepo implementación de la proyección sobre PostgreSQL
// (usable con pool o tx).
type ProjectionRepo struct {
	q Querier
}

// NewProjectionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProjectionRepository(q Querier) *ProjectionRepo {
	return &ProjectionRepo{q: q}
}

// Get obtiene la fila de proyección; si no existe devuelve una fila en cero.
func (r *ProjectionRepo) Get(tenantID, branchID, productID, batchKey string) (*entity.StockProjection, error) {
	query := `
		SELECT tenant_id, branch_id, product_id, batch_key, quantity, unit_cost, selling_price, active, updated_at
		FROM stock_projection
		WHERE tenant_id = $1 AND branch_id = $2 AND product_id = $3 AND batch_key = $4`
	var p entity.StockProjection
	err := r.q.QueryRow(context.Background(), query, tenantID, branchID, productID, batchKey).Scan(
		&p.TenantID, &p.BranchID, &p.ProductID, &p.BatchKey,
		&p.Quantity, &p.UnitCost, &p.SellingPrice, &p.Active, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zeroProjection(tenantID, branchID, productID, batchKey), nil
		}
		return nil, fmt.Errorf("get projection: %w", err)
	}
	return &p, nil
}

// GetForUpdate crea la fila en cero si no existe y la bloquea
// (SELECT FOR UPDATE) hasta el final de la transacción. 55P03 por
// lock_timeout se traduce a domain.ErrLockTimeout.
func (r *ProjectionRepo) GetForUpdate(tenantID, branchID, productID, batchKey string) (*entity.StockProjection, error) {
	insert := `
		INSERT INTO stock_projection (tenant_id, branch_id, product_id, batch_key, quantity, unit_cost, selling_price, active, updated_at)
		VALUES ($1, $2, $3, $4, 0, 0, 0, TRUE, now())
		ON CONFLICT (tenant_id, branch_id, product_id, batch_key) DO NOTHING`
	if _, err := r.q.Exec(context.Background(), insert, tenantID, branchID, productID, batchKey); err != nil {
		if isLockTimeout(err) {
			return nil, domain.ErrLockTimeout
		}
		return nil, fmt.Errorf("ensure projection row: %w", err)
	}

	query := `
		SELECT tenant_id, branch_id, product_id, batch_key, quantity, unit_cost, selling_price, active, updated_at
		FROM stock_projection
		WHERE tenant_id = $1 AND branch_id = $2 AND product_id = $3 AND batch_key = $4
		FOR UPDATE`
	var p entity.StockProjection
	err := r.q.QueryRow(context.Background(), query, tenantID, branchID, productID, batchKey).Scan(
		&p.TenantID, &p.BranchID, &p.ProductID, &p.BatchKey,
		&p.Quantity, &p.UnitCost, &p.SellingPrice, &p.Active, &p.UpdatedAt,
	)
	if err != nil {
		if isLockTimeout(err) {
			return nil, domain.ErrLockTimeout
		}
		return nil, fmt.Errorf("get projection for update: %w", err)
	}
	return &p, nil
}

// Upsert inserta o actualiza la fila por su clave compuesta.
func (r *ProjectionRepo) Upsert(projection *entity.StockProjection) error {
	query := `
		INSERT INTO stock_projection (tenant_id, branch_id, product_id, batch_key, quantity, unit_cost, selling_price, active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (tenant_id, branch_id, product_id, batch_key)
		DO UPDATE SET quantity = EXCLUDED.quantity, unit_cost = EXCLUDED.unit_cost,
		              selling_price = EXCLUDED.selling_price, active = EXCLUDED.active,
		              updated_at = now()`
	_, err := r.q.Exec(context.Background(), query,
		projection.TenantID, projection.BranchID, projection.ProductID, projection.BatchKey,
		projection.Quantity, projection.UnitCost, projection.SellingPrice, projection.Active,
	)
	if err != nil {
		return fmt.Errorf("upsert projection: %w", err)
	}
	return nil
}

func zeroProjection(tenantID, branchID, productID, batchKey string) *entity.StockProjection {
	return &entity.StockProjection{
		TenantID:  tenantID,
		BranchID:  branchID,
		ProductID: productID,
		BatchKey:  batchKey,
		Quantity:  decimal.Zero,
		Active:    true,
	}
}

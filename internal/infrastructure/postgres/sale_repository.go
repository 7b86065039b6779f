package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo implementación de ventas sobre PostgreSQL (usable con pool o tx).
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

// GetByID devuelve la venta con sus líneas, o nil si no existe en el tenant.
func (r *SaleRepo) GetByID(tenantID, saleID string) (*entity.Sale, error) {
	return r.get(tenantID, saleID, false)
}

// GetForUpdate bloquea la fila de la venta para serializar decisiones
// concurrentes sobre ella.
func (r *SaleRepo) GetForUpdate(tenantID, saleID string) (*entity.Sale, error) {
	return r.get(tenantID, saleID, true)
}

func (r *SaleRepo) get(tenantID, saleID string, forUpdate bool) (*entity.Sale, error) {
	query := `
		SELECT id, tenant_id, branch_id, customer_id, status, subtotal, discount, total, sold_by, created_at, updated_at
		FROM sales WHERE tenant_id = $1 AND id = $2`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var s entity.Sale
	var customerID, soldBy *string
	err := r.q.QueryRow(context.Background(), query, tenantID, saleID).Scan(
		&s.ID, &s.TenantID, &s.BranchID, &customerID, &s.Status,
		&s.Subtotal, &s.Discount, &s.Total, &soldBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if isLockTimeout(err) {
			return nil, domain.ErrLockTimeout
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if customerID != nil {
		s.CustomerID = *customerID
	}
	if soldBy != nil {
		s.SoldBy = *soldBy
	}

	lines, err := r.lines(saleID)
	if err != nil {
		return nil, err
	}
	s.Lines = lines
	return &s, nil
}

func (r *SaleRepo) lines(saleID string) ([]*entity.SaleLine, error) {
	query := `
		SELECT id, sale_id, product_id, batch_key, quantity, unit_price, total
		FROM sale_lines WHERE sale_id = $1 ORDER BY created_at`
	rows, err := r.q.Query(context.Background(), query, saleID)
	if err != nil {
		return nil, fmt.Errorf("list sale lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.SaleLine
	for rows.Next() {
		var l entity.SaleLine
		if err := rows.Scan(&l.ID, &l.SaleID, &l.ProductID, &l.BatchKey, &l.Quantity, &l.UnitPrice, &l.Total); err != nil {
			return nil, fmt.Errorf("scan sale line: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// UpdateLinePrice persiste el nuevo precio unitario y total de la línea.
func (r *SaleRepo) UpdateLinePrice(line *entity.SaleLine) error {
	query := `UPDATE sale_lines SET unit_price = $1, total = $2 WHERE id = $3`
	tag, err := r.q.Exec(context.Background(), query, line.UnitPrice, line.Total, line.ID)
	if err != nil {
		return fmt.Errorf("update sale line price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteLine elimina la línea (dentro de la transacción de la decisión).
func (r *SaleRepo) DeleteLine(tenantID, lineID string) error {
	query := `
		DELETE FROM sale_lines USING sales
		WHERE sale_lines.id = $1 AND sale_lines.sale_id = sales.id AND sales.tenant_id = $2`
	tag, err := r.q.Exec(context.Background(), query, lineID, tenantID)
	if err != nil {
		return fmt.Errorf("delete sale line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateTotals persiste subtotal y total recalculados.
func (r *SaleRepo) UpdateTotals(sale *entity.Sale) error {
	query := `
		UPDATE sales SET subtotal = $1, total = $2, updated_at = now()
		WHERE tenant_id = $3 AND id = $4`
	tag, err := r.q.Exec(context.Background(), query, sale.Subtotal, sale.Total, sale.TenantID, sale.ID)
	if err != nil {
		return fmt.Errorf("update sale totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

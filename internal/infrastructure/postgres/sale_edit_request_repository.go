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

var _ repository.SaleEditRequestRepository = (*SaleEditRequestRepo)(nil)

const editRequestColumns = `
	id, tenant_id, sale_id, line_id, kind, status, proposed_price,
	reason, rejection_reason, requested_by, decided_by, requested_at, decided_at`

// SaleEditRequestRepo implementación de solicitudes maker-checker sobre
// PostgreSQL (usable con pool o tx).
type SaleEditRequestRepo struct {
	q Querier
}

// NewSaleEditRequestRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleEditRequestRepository(q Querier) *SaleEditRequestRepo {
	return &SaleEditRequestRepo{q: q}
}

// Create persiste una solicitud PENDING.
func (r *SaleEditRequestRepo) Create(request *entity.SaleEditRequest) error {
	query := `
		INSERT INTO sale_edit_requests (` + editRequestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	decidedBy := (*string)(nil)
	if request.DecidedBy != "" {
		decidedBy = &request.DecidedBy
	}
	_, err := r.q.Exec(context.Background(), query,
		request.ID, request.TenantID, request.SaleID, request.LineID,
		request.Kind, request.Status, request.ProposedPrice,
		request.Reason, request.RejectionReason, request.RequestedBy,
		decidedBy, request.RequestedAt, request.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("create sale edit request: %w", err)
	}
	return nil
}

// GetByID devuelve la solicitud, o nil si no existe en el tenant.
func (r *SaleEditRequestRepo) GetByID(tenantID, requestID string) (*entity.SaleEditRequest, error) {
	return r.get(tenantID, requestID, false)
}

// GetForUpdate bloquea la fila de la solicitud: dos decisiones concurrentes
// no pueden leer PENDING a la vez.
func (r *SaleEditRequestRepo) GetForUpdate(tenantID, requestID string) (*entity.SaleEditRequest, error) {
	return r.get(tenantID, requestID, true)
}

func (r *SaleEditRequestRepo) get(tenantID, requestID string, forUpdate bool) (*entity.SaleEditRequest, error) {
	query := `
		SELECT ` + editRequestColumns + `
		FROM sale_edit_requests WHERE tenant_id = $1 AND id = $2`
	if forUpdate {
		query += " FOR UPDATE"
	}
	req, err := scanEditRequest(r.q.QueryRow(context.Background(), query, tenantID, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if isLockTimeout(err) {
			return nil, domain.ErrLockTimeout
		}
		return nil, fmt.Errorf("get sale edit request: %w", err)
	}
	return req, nil
}

// UpdateDecision persiste la transición a estado terminal.
func (r *SaleEditRequestRepo) UpdateDecision(request *entity.SaleEditRequest) error {
	query := `
		UPDATE sale_edit_requests
		SET status = $1, decided_by = $2, rejection_reason = $3, decided_at = $4
		WHERE tenant_id = $5 AND id = $6`
	tag, err := r.q.Exec(context.Background(), query,
		request.Status, request.DecidedBy, request.RejectionReason, request.DecidedAt,
		request.TenantID, request.ID,
	)
	if err != nil {
		return fmt.Errorf("update sale edit decision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListPending solicitudes pendientes, más antiguas primero.
func (r *SaleEditRequestRepo) ListPending(tenantID string, limit, offset int) ([]*entity.SaleEditRequest, error) {
	query := `
		SELECT ` + editRequestColumns + `
		FROM sale_edit_requests
		WHERE tenant_id = $1 AND status = $2
		ORDER BY requested_at ASC LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(context.Background(), query, tenantID, entity.EditStatusPending, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list pending edit requests: %w", err)
	}
	defer rows.Close()
	var list []*entity.SaleEditRequest
	for rows.Next() {
		req, err := scanEditRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edit request: %w", err)
		}
		list = append(list, req)
	}
	return list, rows.Err()
}

// CountPending total de solicitudes pendientes del tenant.
func (r *SaleEditRequestRepo) CountPending(tenantID string) (int, error) {
	query := `SELECT COUNT(*) FROM sale_edit_requests WHERE tenant_id = $1 AND status = $2`
	var count int
	err := r.q.QueryRow(context.Background(), query, tenantID, entity.EditStatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending edit requests: %w", err)
	}
	return count, nil
}

func scanEditRequest(row pgx.Row) (*entity.SaleEditRequest, error) {
	var req entity.SaleEditRequest
	var lineID, rejectionReason, decidedBy *string
	err := row.Scan(
		&req.ID, &req.TenantID, &req.SaleID, &lineID, &req.Kind, &req.Status,
		&req.ProposedPrice, &req.Reason, &rejectionReason, &req.RequestedBy,
		&decidedBy, &req.RequestedAt, &req.DecidedAt,
	)
	if err != nil {
		return nil, err
	}
	if lineID != nil {
		req.LineID = *lineID
	}
	if rejectionReason != nil {
		req.RejectionReason = *rejectionReason
	}
	if decidedBy != nil {
		req.DecidedBy = *decidedBy
	}
	return &req, nil
}

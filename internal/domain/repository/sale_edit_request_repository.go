package repository

import "github.com/jhoicas/Kardex-api/internal/domain/entity"

// SaleEditRequestRepository puerto de persistencia de solicitudes maker-checker.
type SaleEditRequestRepository interface {
	Create(request *entity.SaleEditRequest) error

	// GetByID devuelve la solicitud, o nil si no existe en el tenant.
	GetByID(tenantID, requestID string) (*entity.SaleEditRequest, error)

	// GetForUpdate bloquea la fila de la solicitud para que dos decisiones
	// concurrentes no lean PENDING a la vez. domain.ErrLockTimeout si no
	// adquiere el lock.
	GetForUpdate(tenantID, requestID string) (*entity.SaleEditRequest, error)

	// UpdateDecision persiste la transición a APPROVED/REJECTED con
	// aprobador, motivo y timestamp.
	UpdateDecision(request *entity.SaleEditRequest) error

	// ListPending solicitudes pendientes del tenant, más antiguas primero.
	ListPending(tenantID string, limit, offset int) ([]*entity.SaleEditRequest, error)

	// CountPending total de pendientes (badge de notificaciones).
	CountPending(tenantID string) (int, error)
}

package saleedit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/application/ledger"
	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// UseCase flujo maker-checker de edición de ventas. Un maker crea la
// solicitud; un checker distinto la aprueba o rechaza exactamente una vez.
// Aprobar un LINE_DELETE revierte el descuento de stock a través del motor
// de mutaciones, en la misma transacción que la decisión.
type UseCase struct {
	txRunner TxRunner
	engine   *ledger.Engine
	saleRepo repository.SaleRepository
	editRepo repository.SaleEditRequestRepository
}

// NewUseCase construye el caso de uso.
func NewUseCase(
	txRunner TxRunner,
	engine *ledger.Engine,
	saleRepo repository.SaleRepository,
	editRepo repository.SaleEditRequestRepository,
) *UseCase {
	return &UseCase{
		txRunner: txRunner,
		engine:   engine,
		saleRepo: saleRepo,
		editRepo: editRepo,
	}
}

// CreateInput entrada para crear una solicitud de edición.
type CreateInput struct {
	TenantID      string
	SaleID        string
	LineID        string
	Kind          entity.EditRequestKind
	ProposedPrice *decimal.Decimal // obligatorio y positivo para PRICE_CHANGE
	Reason        string
	RequestedBy   string
}

// Create valida y registra una solicitud PENDING. La venta debe estar en un
// estado editable y la línea pertenecer a la venta (y por tanto al tenant).
func (uc *UseCase) Create(in CreateInput) (*entity.SaleEditRequest, error) {
	if in.TenantID == "" || in.SaleID == "" || in.LineID == "" || in.RequestedBy == "" {
		return nil, domain.ErrInvalidInput
	}
	if !in.Kind.IsValid() {
		return nil, domain.ErrInvalidInput
	}
	if in.Kind == entity.EditKindPriceChange {
		if in.ProposedPrice == nil || !in.ProposedPrice.IsPositive() {
			return nil, domain.ErrInvalidInput
		}
	}

	sale, err := uc.saleRepo.GetByID(in.TenantID, in.SaleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}
	if !sale.IsEditable() {
		return nil, domain.ErrInvalidState
	}
	if sale.Line(in.LineID) == nil {
		return nil, domain.ErrNotFound
	}

	request := &entity.SaleEditRequest{
		ID:            uuid.New().String(),
		TenantID:      in.TenantID,
		SaleID:        in.SaleID,
		LineID:        in.LineID,
		Kind:          in.Kind,
		Status:        entity.EditStatusPending,
		ProposedPrice: in.ProposedPrice,
		Reason:        in.Reason,
		RequestedBy:   in.RequestedBy,
		RequestedAt:   time.Now(),
	}
	if err := uc.editRepo.Create(request); err != nil {
		return nil, err
	}
	return request, nil
}

// DecideInput entrada para decidir una solicitud pendiente.
type DecideInput struct {
	TenantID        string
	RequestID       string
	ApproverID      string
	Approved        bool
	RejectionReason string
}

// Decide transiciona la solicitud a APPROVED o REJECTED exactamente una vez.
// Bloquea la fila de la solicitud y la de la venta en la misma transacción:
// dos decisiones concurrentes sobre la misma venta se serializan, y la
// segunda sobre la misma solicitud falla con ErrInvalidState. La reversión
// de stock usa el ID de la solicitud como source_reference, así el ledger
// deduplica cualquier reintento que se cuele más allá de la guarda de estado.
func (uc *UseCase) Decide(ctx context.Context, in DecideInput) (*entity.SaleEditRequest, error) {
	if in.TenantID == "" || in.RequestID == "" || in.ApproverID == "" {
		return nil, domain.ErrInvalidInput
	}
	if !in.Approved && in.RejectionReason == "" {
		return nil, domain.ErrInvalidInput
	}

	var decided *entity.SaleEditRequest
	err := uc.txRunner.RunSaleEdit(ctx, func(
		ledgerRepo repository.LedgerRepository,
		projectionRepo repository.StockProjectionRepository,
		saleRepo repository.SaleRepository,
		editRepo repository.SaleEditRequestRepository,
	) error {
		request, err := editRepo.GetForUpdate(in.TenantID, in.RequestID)
		if err != nil {
			return err
		}
		if request == nil {
			return domain.ErrNotFound
		}
		if request.IsTerminal() {
			return domain.ErrInvalidState
		}
		// Cuatro ojos: quien solicita no puede aprobarse a sí mismo.
		if request.RequestedBy == in.ApproverID {
			return domain.ErrForbidden
		}

		sale, err := saleRepo.GetForUpdate(in.TenantID, request.SaleID)
		if err != nil {
			return err
		}
		if sale == nil {
			return domain.ErrNotFound
		}

		now := time.Now()
		if !in.Approved {
			request.Reject(in.ApproverID, in.RejectionReason, now)
			if err := editRepo.UpdateDecision(request); err != nil {
				return err
			}
			decided = request
			return nil
		}

		switch request.Kind {
		case entity.EditKindPriceChange:
			if err := uc.applyPriceChange(saleRepo, sale, request); err != nil {
				return err
			}
		case entity.EditKindLineDelete:
			if err := uc.applyLineDelete(ledgerRepo, projectionRepo, saleRepo, sale, request, in.ApproverID); err != nil {
				return err
			}
		default:
			return domain.ErrInvalidInput
		}

		request.Approve(in.ApproverID, now)
		if err := editRepo.UpdateDecision(request); err != nil {
			return err
		}
		decided = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}

// applyPriceChange recalcula la línea al nuevo precio unitario y los totales
// de la venta.
func (uc *UseCase) applyPriceChange(
	saleRepo repository.SaleRepository,
	sale *entity.Sale,
	request *entity.SaleEditRequest,
) error {
	line := sale.Line(request.LineID)
	if line == nil {
		return domain.ErrNotFound
	}
	line.UnitPrice = *request.ProposedPrice
	line.Total = line.Quantity.Mul(line.UnitPrice).Round(2)
	if err := saleRepo.UpdateLinePrice(line); err != nil {
		return err
	}
	sale.RecomputeTotals()
	return saleRepo.UpdateTotals(sale)
}

// applyLineDelete restaura el stock descontado por la línea (delta positivo
// por la cantidad original, source = ID de la solicitud) y elimina la línea.
func (uc *UseCase) applyLineDelete(
	ledgerRepo repository.LedgerRepository,
	projectionRepo repository.StockProjectionRepository,
	saleRepo repository.SaleRepository,
	sale *entity.Sale,
	request *entity.SaleEditRequest,
	approverID string,
) error {
	line := sale.Line(request.LineID)
	if line == nil {
		return domain.ErrNotFound
	}
	_, err := uc.engine.ApplyInTx(ledgerRepo, projectionRepo, ledger.ApplyInput{
		TenantID:        request.TenantID,
		BranchID:        sale.BranchID,
		ProductID:       line.ProductID,
		Batch:           entity.BatchKey{Number: line.BatchKey},
		Delta:           line.Quantity,
		Kind:            entity.TxKindSale, // reversión de venta: mismo kind, delta positivo
		SourceKind:      entity.SourceKindSale,
		SourceReference: request.ID,
		UserID:          approverID,
	})
	if err != nil {
		return err
	}
	if err := saleRepo.DeleteLine(request.TenantID, line.ID); err != nil {
		return err
	}
	sale.RemoveLine(line.ID)
	sale.RecomputeTotals()
	return saleRepo.UpdateTotals(sale)
}

// ListPending bandeja del checker: solicitudes pendientes del tenant.
func (uc *UseCase) ListPending(tenantID string, limit, offset int) ([]*entity.SaleEditRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return uc.editRepo.ListPending(tenantID, limit, offset)
}

// PendingCount total de solicitudes pendientes (badge de notificaciones).
func (uc *UseCase) PendingCount(tenantID string) (int, error) {
	return uc.editRepo.CountPending(tenantID)
}

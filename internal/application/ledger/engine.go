package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// Engine es el único camino de escritura al ledger y a la proyección de stock.
// Cada mutación aceptada produce exactamente un asiento y una actualización de
// proyección, dentro de una sola transacción con lock por fila.
type Engine struct {
	txRunner    TxRunner
	productRepo repository.ProductRepository
	branchRepo  repository.BranchRepository
}

// NewEngine construye el motor de mutaciones.
func NewEngine(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	branchRepo repository.BranchRepository,
) *Engine {
	return &Engine{
		txRunner:    txRunner,
		productRepo: productRepo,
		branchRepo:  branchRepo,
	}
}

// ApplyInput entrada de una mutación de stock. SourceReference debe ser un
// identificador estable del documento de negocio que la origina (ID de venta,
// de línea de orden de compra, de solicitud de edición...) para que los
// reintentos sean idempotentes.
type ApplyInput struct {
	TenantID        string
	BranchID        string
	ProductID       string
	Batch           entity.BatchKey
	Delta           decimal.Decimal
	Kind            entity.TransactionKind
	SourceKind      entity.SourceKind
	SourceReference string
	UserID          string
	UnitCost        *decimal.Decimal
	SellingPrice    *decimal.Decimal
}

// MutationResult resultado de una mutación. Duplicate en true significa que
// el source ya había sido aplicado: Entry es el asiento original y la
// proyección no cambió.
type MutationResult struct {
	Entry          *entity.LedgerEntry
	QuantityBefore decimal.Decimal
	QuantityAfter  decimal.Decimal
	Duplicate      bool
}

// Apply ejecuta una mutación de stock con el contrato completo:
// idempotencia por (source_reference, source_kind, tenant), validación,
// lock por fila de proyección, guardia de stock negativo y commit atómico
// asiento + proyección.
func (e *Engine) Apply(ctx context.Context, in ApplyInput) (*MutationResult, error) {
	if err := e.validate(in); err != nil {
		return nil, err
	}

	// Aislamiento por tenant: producto y sucursal deben pertenecer al tenant
	// del caller antes de tocar almacenamiento.
	product, err := e.productRepo.GetByID(in.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	if product.TenantID != in.TenantID {
		return nil, domain.ErrCrossTenant
	}
	branch, err := e.branchRepo.GetByID(in.BranchID)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, domain.ErrNotFound
	}
	if branch.TenantID != in.TenantID {
		return nil, domain.ErrCrossTenant
	}

	var result *MutationResult
	err = e.txRunner.Run(ctx, func(
		ledgerRepo repository.LedgerRepository,
		projectionRepo repository.StockProjectionRepository,
	) error {
		r, err := e.ApplyInTx(ledgerRepo, projectionRepo, in)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApplyInTx ejecuta la mutación con repositorios ya atados a la transacción
// del caller. Lo usa el flujo de edición de ventas para que la reversión de
// stock, el borrado de la línea y la decisión queden en un solo commit.
func (e *Engine) ApplyInTx(
	ledgerRepo repository.LedgerRepository,
	projectionRepo repository.StockProjectionRepository,
	in ApplyInput,
) (*MutationResult, error) {
	if err := e.validate(in); err != nil {
		return nil, err
	}
	batchKey := in.Batch.Normalize()

	// Bloquea primero la fila de proyección: serializa los reintentos del
	// mismo source antes del chequeo de idempotencia, así un retry nunca
	// corre en paralelo con el original.
	projection, err := projectionRepo.GetForUpdate(in.TenantID, in.BranchID, in.ProductID, batchKey)
	if err != nil {
		return nil, err
	}

	prior, err := ledgerRepo.GetBySource(in.TenantID, in.SourceKind, in.SourceReference)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		return duplicateResult(prior), nil
	}

	before := projection.Quantity
	after := before.Add(in.Delta)
	if after.IsNegative() {
		// Ningún kind permite stock negativo: se rechaza sin asiento ni
		// cambio de proyección.
		return nil, domain.ErrInsufficientStock
	}

	now := time.Now()
	entry, err := entity.NewLedgerEntry(entity.NewLedgerEntryInput{
		TenantID:        in.TenantID,
		BranchID:        in.BranchID,
		ProductID:       in.ProductID,
		BatchKey:        batchKey,
		Kind:            in.Kind,
		Delta:           in.Delta,
		QuantityBefore:  before,
		UnitCost:        in.UnitCost,
		SellingPrice:    in.SellingPrice,
		SourceKind:      in.SourceKind,
		SourceReference: in.SourceReference,
		PerformedBy:     in.UserID,
		PerformedAt:     now,
	})
	if err != nil {
		return nil, err
	}

	if err := ledgerRepo.Append(entry); err != nil {
		// Carrera perdida contra el índice único parcial: otro proceso
		// insertó el mismo source. Se devuelve el asiento ganador.
		if errors.Is(err, domain.ErrDuplicateSource) {
			prior, lookupErr := ledgerRepo.GetBySource(in.TenantID, in.SourceKind, in.SourceReference)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if prior != nil {
				return duplicateResult(prior), nil
			}
		}
		return nil, err
	}

	projection.Quantity = after
	if in.UnitCost != nil {
		projection.UnitCost = *in.UnitCost
	}
	if in.SellingPrice != nil {
		projection.SellingPrice = *in.SellingPrice
	}
	projection.Active = true
	projection.UpdatedAt = now
	if err := projectionRepo.Upsert(projection); err != nil {
		return nil, err
	}

	return &MutationResult{
		Entry:          entry,
		QuantityBefore: before,
		QuantityAfter:  after,
	}, nil
}

func (e *Engine) validate(in ApplyInput) error {
	if in.Delta.IsZero() {
		return domain.ErrInvalidDelta
	}
	if in.TenantID == "" || in.BranchID == "" || in.ProductID == "" {
		return domain.ErrInvalidInput
	}
	if in.SourceReference == "" || in.UserID == "" {
		return domain.ErrInvalidInput
	}
	if !in.Kind.IsValid() || !in.SourceKind.IsValid() {
		return domain.ErrInvalidInput
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return domain.ErrInvalidInput
	}
	if in.SellingPrice != nil && in.SellingPrice.IsNegative() {
		return domain.ErrInvalidInput
	}
	return nil
}

func duplicateResult(prior *entity.LedgerEntry) *MutationResult {
	return &MutationResult{
		Entry:          prior,
		QuantityBefore: prior.QuantityBefore,
		QuantityAfter:  prior.QuantityAfter,
		Duplicate:      true,
	}
}

package saleedit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Kardex-api/internal/application/ledger"
	"github.com/jhoicas/Kardex-api/internal/application/saleedit"
	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
	"github.com/jhoicas/Kardex-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Pruebas del flujo maker-checker: solicitud PENDING de un cajero, decisión
// única de un aprobador distinto, y reversión de stock atómica con la
// aprobación de un LINE_DELETE.
// ──────────────────────────────────────────────────────────────────────────────

const (
	testTenant  = "tenant-1"
	testBranch  = "branch-1"
	testProduct = "product-1"
	testSale    = "sale-1"
	testLine    = "line-1"
	cajero      = "user-cajero"
	supervisor  = "user-supervisor"
)

type fixture struct {
	store  *memory.Store
	engine *ledger.Engine
	uc     *saleedit.UseCase
}

// newFixture deja el mundo como queda después de una venta real: compra de 10,
// venta de 2 unidades ya descontada del stock, y la venta COMPLETED con su línea.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(2 * time.Second)
	store.SeedProduct(&entity.Product{ID: testProduct, TenantID: testTenant, Name: "Amoxicilina 500mg", Active: true})
	store.SeedBranch(&entity.Branch{ID: testBranch, TenantID: testTenant, Name: "Sucursal Centro", Active: true})

	txRunner := memory.NewTxRunner(store)
	engine := ledger.NewEngine(
		txRunner,
		memory.NewProductRepository(store),
		memory.NewBranchRepository(store),
	)
	ctx := context.Background()

	_, err := engine.Apply(ctx, ledger.ApplyInput{
		TenantID: testTenant, BranchID: testBranch, ProductID: testProduct,
		Delta: decimal.NewFromInt(10), Kind: entity.TxKindPurchase,
		SourceKind: entity.SourceKindPurchaseOrder, SourceReference: "po-seed",
		UserID: cajero,
	})
	require.NoError(t, err)
	_, err = engine.Apply(ctx, ledger.ApplyInput{
		TenantID: testTenant, BranchID: testBranch, ProductID: testProduct,
		Delta: decimal.NewFromInt(-2), Kind: entity.TxKindSale,
		SourceKind: entity.SourceKindSale, SourceReference: testLine,
		UserID: cajero,
	})
	require.NoError(t, err)

	precio := decimal.NewFromFloat(4.50)
	store.SeedSale(&entity.Sale{
		ID:       testSale,
		TenantID: testTenant,
		BranchID: testBranch,
		Status:   entity.SaleStatusCompleted,
		Subtotal: decimal.NewFromFloat(9.00),
		Discount: decimal.Zero,
		Total:    decimal.NewFromFloat(9.00),
		SoldBy:   cajero,
		Lines: []*entity.SaleLine{{
			ID:        testLine,
			SaleID:    testSale,
			ProductID: testProduct,
			Quantity:  decimal.NewFromInt(2),
			UnitPrice: precio,
			Total:     decimal.NewFromFloat(9.00),
		}},
		CreatedAt: time.Now(),
	})

	uc := saleedit.NewUseCase(
		txRunner,
		engine,
		memory.NewSaleRepository(store),
		memory.NewSaleEditRequestRepository(store),
	)
	return &fixture{store: store, engine: engine, uc: uc}
}

func (f *fixture) createLineDelete(t *testing.T) *entity.SaleEditRequest {
	t.Helper()
	request, err := f.uc.Create(saleedit.CreateInput{
		TenantID:    testTenant,
		SaleID:      testSale,
		LineID:      testLine,
		Kind:        entity.EditKindLineDelete,
		Reason:      "cliente devolvió el producto",
		RequestedBy: cajero,
	})
	require.NoError(t, err)
	return request
}

func (f *fixture) stockActual(t *testing.T) decimal.Decimal {
	t.Helper()
	projection, err := memory.NewProjectionRepository(f.store).Get(testTenant, testBranch, testProduct, "")
	require.NoError(t, err)
	return projection.Quantity
}

func TestCreate_SolicitudPendiente(t *testing.T) {
	f := newFixture(t)

	request := f.createLineDelete(t)
	assert.Equal(t, entity.EditStatusPending, request.Status)
	assert.Equal(t, cajero, request.RequestedBy)
	assert.NotEmpty(t, request.ID)

	count, err := f.uc.PendingCount(testTenant)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreate_Invalida(t *testing.T) {
	f := newFixture(t)

	casos := []struct {
		nombre   string
		in       saleedit.CreateInput
		esperado error
	}{
		{
			"kind desconocido",
			saleedit.CreateInput{TenantID: testTenant, SaleID: testSale, LineID: testLine, Kind: "RENOMBRAR", RequestedBy: cajero},
			domain.ErrInvalidInput,
		},
		{
			"cambio de precio sin precio",
			saleedit.CreateInput{TenantID: testTenant, SaleID: testSale, LineID: testLine, Kind: entity.EditKindPriceChange, RequestedBy: cajero},
			domain.ErrInvalidInput,
		},
		{
			"venta inexistente",
			saleedit.CreateInput{TenantID: testTenant, SaleID: "no-existe", LineID: testLine, Kind: entity.EditKindLineDelete, RequestedBy: cajero},
			domain.ErrNotFound,
		},
		{
			"línea ajena a la venta",
			saleedit.CreateInput{TenantID: testTenant, SaleID: testSale, LineID: "line-ajena", Kind: entity.EditKindLineDelete, RequestedBy: cajero},
			domain.ErrNotFound,
		},
	}
	for _, c := range casos {
		t.Run(c.nombre, func(t *testing.T) {
			_, err := f.uc.Create(c.in)
			assert.ErrorIs(t, err, c.esperado)
		})
	}
}

func TestCreate_VentaNoEditable(t *testing.T) {
	f := newFixture(t)
	f.store.SeedSale(&entity.Sale{
		ID: "sale-void", TenantID: testTenant, BranchID: testBranch,
		Status: entity.SaleStatusVoided,
		Lines:  []*entity.SaleLine{{ID: "line-void", SaleID: "sale-void", ProductID: testProduct, Quantity: decimal.NewFromInt(1)}},
	})

	_, err := f.uc.Create(saleedit.CreateInput{
		TenantID: testTenant, SaleID: "sale-void", LineID: "line-void",
		Kind: entity.EditKindLineDelete, RequestedBy: cajero,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState, "una venta anulada no admite ediciones")
}

func TestDecide_ApruebaLineDelete(t *testing.T) {
	f := newFixture(t)
	request := f.createLineDelete(t)
	require.True(t, decimal.NewFromInt(8).Equal(f.stockActual(t)), "precondición: 10 comprados - 2 vendidos")

	decided, err := f.uc.Decide(context.Background(), saleedit.DecideInput{
		TenantID:   testTenant,
		RequestID:  request.ID,
		ApproverID: supervisor,
		Approved:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.EditStatusApproved, decided.Status)
	assert.Equal(t, supervisor, decided.DecidedBy)
	require.NotNil(t, decided.DecidedAt)

	// El stock vuelve y la reversión queda asentada con el ID de la solicitud
	// como source, así un retry del approve no duplicaría la restauración.
	assert.True(t, decimal.NewFromInt(10).Equal(f.stockActual(t)), "las 2 unidades deben restaurarse")

	reversal, err := memory.NewLedgerRepository(f.store).GetBySource(testTenant, entity.SourceKindSale, request.ID)
	require.NoError(t, err)
	require.NotNil(t, reversal, "debe existir el asiento de reversión")
	assert.Equal(t, entity.TxKindSale, reversal.Kind)
	assert.True(t, decimal.NewFromInt(2).Equal(reversal.Delta), "delta positivo por la cantidad original")
	assert.Equal(t, supervisor, reversal.PerformedBy)

	// La línea desaparece y los totales se recalculan.
	sale, err := memory.NewSaleRepository(f.store).GetByID(testTenant, testSale)
	require.NoError(t, err)
	assert.Empty(t, sale.Lines)
	assert.True(t, sale.Total.IsZero())
}

func TestDecide_ApruebaPriceChange(t *testing.T) {
	f := newFixture(t)
	nuevoPrecio := decimal.NewFromFloat(3.00)
	request, err := f.uc.Create(saleedit.CreateInput{
		TenantID:      testTenant,
		SaleID:        testSale,
		LineID:        testLine,
		Kind:          entity.EditKindPriceChange,
		ProposedPrice: &nuevoPrecio,
		Reason:        "precio mal digitado",
		RequestedBy:   cajero,
	})
	require.NoError(t, err)

	decided, err := f.uc.Decide(context.Background(), saleedit.DecideInput{
		TenantID: testTenant, RequestID: request.ID, ApproverID: supervisor, Approved: true,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.EditStatusApproved, decided.Status)

	sale, err := memory.NewSaleRepository(f.store).GetByID(testTenant, testSale)
	require.NoError(t, err)
	line := sale.Line(testLine)
	require.NotNil(t, line)
	assert.True(t, nuevoPrecio.Equal(line.UnitPrice))
	assert.True(t, decimal.NewFromFloat(6.00).Equal(line.Total), "2 x 3.00")
	assert.True(t, decimal.NewFromFloat(6.00).Equal(sale.Total), "el total de la venta se recalcula")

	// Un cambio de precio no toca el stock.
	assert.True(t, decimal.NewFromInt(8).Equal(f.stockActual(t)))
}

func TestDecide_Rechazo(t *testing.T) {
	f := newFixture(t)
	request := f.createLineDelete(t)

	decided, err := f.uc.Decide(context.Background(), saleedit.DecideInput{
		TenantID:        testTenant,
		RequestID:       request.ID,
		ApproverID:      supervisor,
		Approved:        false,
		RejectionReason: "sin comprobante de devolución",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.EditStatusRejected, decided.Status)
	assert.Equal(t, "sin comprobante de devolución", decided.RejectionReason)

	// El rechazo no toca ni stock ni venta.
	assert.True(t, decimal.NewFromInt(8).Equal(f.stockActual(t)))
	sale, err := memory.NewSaleRepository(f.store).GetByID(testTenant, testSale)
	require.NoError(t, err)
	assert.Len(t, sale.Lines, 1)
}

func TestDecide_RechazoSinMotivo(t *testing.T) {
	f := newFixture(t)
	request := f.createLineDelete(t)

	_, err := f.uc.Decide(context.Background(), saleedit.DecideInput{
		TenantID: testTenant, RequestID: request.ID, ApproverID: supervisor, Approved: false,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "rechazar exige motivo")
}

func TestDecide_CuatroOjos(t *testing.T) {
	f := newFixture(t)
	request := f.createLineDelete(t)

	_, err := f.uc.Decide(context.Background(), saleedit.DecideInput{
		TenantID: testTenant, RequestID: request.ID, ApproverID: cajero, Approved: true,
	})
	assert.ErrorIs(t, err, domain.ErrForbidden, "quien solicita no puede aprobarse a sí mismo")

	count, err := f.uc.PendingCount(testTenant)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "la solicitud sigue pendiente")
}

func TestDecide_SegundaDecision(t *testing.T) {
	f := newFixture(t)
	request := f.createLineDelete(t)
	ctx := context.Background()

	_, err := f.uc.Decide(ctx, saleedit.DecideInput{
		TenantID: testTenant, RequestID: request.ID, ApproverID: supervisor, Approved: true,
	})
	require.NoError(t, err)

	_, err = f.uc.Decide(ctx, saleedit.DecideInput{
		TenantID: testTenant, RequestID: request.ID, ApproverID: supervisor, Approved: true,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState, "una solicitud decidida es terminal")

	// La reaprobación no duplicó la restauración.
	assert.True(t, decimal.NewFromInt(10).Equal(f.stockActual(t)))
}

// TestDecide_DobleDecisionConcurrente dos supervisores deciden la misma
// solicitud a la vez: el lock de la fila serializa, exactamente una decisión
// gana y la reversión de stock se aplica una sola vez.
func TestDecide_DobleDecisionConcurrente(t *testing.T) {
	f := newFixture(t)
	request := f.createLineDelete(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, approver := range []string{supervisor, "user-admin"} {
		wg.Add(1)
		go func(idx int, who string) {
			defer wg.Done()
			_, errs[idx] = f.uc.Decide(ctx, saleedit.DecideInput{
				TenantID: testTenant, RequestID: request.ID, ApproverID: who, Approved: true,
			})
		}(i, approver)
	}
	wg.Wait()

	exitos := 0
	invalidas := 0
	for _, err := range errs {
		switch {
		case err == nil:
			exitos++
		case errors.Is(err, domain.ErrInvalidState):
			invalidas++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, 1, exitos, "exactamente una decisión debe ganar")
	assert.Equal(t, 1, invalidas, "la otra debe ver la solicitud ya decidida")

	assert.True(t, decimal.NewFromInt(10).Equal(f.stockActual(t)), "la restauración debe aplicarse una sola vez")

	entries, err := memory.NewLedgerRepository(f.store).List(repository.LedgerFilter{
		TenantID: testTenant, BranchID: testBranch, ProductID: testProduct,
	})
	require.NoError(t, err)
	assert.Len(t, entries, 3, "compra + venta + una única reversión")
}

func TestListPending_Bandeja(t *testing.T) {
	f := newFixture(t)
	f.createLineDelete(t)

	pending, err := f.uc.ListPending(testTenant, 0, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entity.EditStatusPending, pending[0].Status)

	// Otro tenant no ve la bandeja ajena.
	pending, err = f.uc.ListPending("tenant-ajeno", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

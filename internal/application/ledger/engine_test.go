package ledger_test

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
	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
	"github.com/jhoicas/Kardex-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Pruebas del motor de mutaciones sobre los adaptadores en memoria: mismo
// contrato transaccional que PostgreSQL (serialización, rollback, timeout de
// lock) sin base de datos.
// ──────────────────────────────────────────────────────────────────────────────

const (
	testTenant  = "tenant-1"
	testTenant2 = "tenant-2"
	testBranch  = "branch-1"
	testBranch2 = "branch-2"
	testProduct = "product-1"
	testUser    = "user-1"
)

func newTestEngine(t *testing.T) (*ledger.Engine, *memory.Store) {
	t.Helper()
	store := memory.NewStore(2 * time.Second)
	store.SeedProduct(&entity.Product{ID: testProduct, TenantID: testTenant, Name: "Paracetamol 500mg", Active: true})
	store.SeedBranch(&entity.Branch{ID: testBranch, TenantID: testTenant, Name: "Sucursal Centro", Active: true})
	engine := ledger.NewEngine(
		memory.NewTxRunner(store),
		memory.NewProductRepository(store),
		memory.NewBranchRepository(store),
	)
	return engine, store
}

func purchaseInput(ref string, delta int64) ledger.ApplyInput {
	return ledger.ApplyInput{
		TenantID:        testTenant,
		BranchID:        testBranch,
		ProductID:       testProduct,
		Delta:           decimal.NewFromInt(delta),
		Kind:            entity.TxKindPurchase,
		SourceKind:      entity.SourceKindPurchaseOrder,
		SourceReference: ref,
		UserID:          testUser,
	}
}

func saleInput(ref string, delta int64) ledger.ApplyInput {
	in := purchaseInput(ref, delta)
	in.Kind = entity.TxKindSale
	in.SourceKind = entity.SourceKindSale
	return in
}

func TestApply_PrimeraEntrada(t *testing.T) {
	engine, store := newTestEngine(t)

	cost := decimal.NewFromFloat(3.50)
	in := purchaseInput("po-001", 10)
	in.UnitCost = &cost

	result, err := engine.Apply(context.Background(), in)
	require.NoError(t, err, "la primera mutación de un source debe aplicarse")

	assert.False(t, result.Duplicate)
	assert.True(t, result.QuantityBefore.IsZero(), "el stock parte de cero")
	assert.True(t, decimal.NewFromInt(10).Equal(result.QuantityAfter))
	require.NotNil(t, result.Entry)
	assert.True(t, result.Entry.QuantityAfter.Equal(result.Entry.QuantityBefore.Add(result.Entry.Delta)),
		"quantity_after debe ser quantity_before + delta")

	projection, err := memory.NewProjectionRepository(store).Get(testTenant, testBranch, testProduct, "")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(projection.Quantity), "la proyección debe reflejar el asiento")
	assert.True(t, cost.Equal(projection.UnitCost))
}

func TestApply_ReintentoIdempotente(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.Apply(ctx, purchaseInput("po-idem", 10))
	require.NoError(t, err)

	// Mismo source: el reintento no produce segundo asiento ni doble conteo.
	retry, err := engine.Apply(ctx, purchaseInput("po-idem", 10))
	require.NoError(t, err, "el reintento del mismo source debe ser un no-op exitoso")

	assert.True(t, retry.Duplicate, "el reintento debe marcarse como duplicado")
	assert.Equal(t, first.Entry.ID, retry.Entry.ID, "debe devolver el asiento original")
	assert.True(t, first.QuantityAfter.Equal(retry.QuantityAfter))

	entries, err := memory.NewLedgerRepository(store).List(testLedgerFilter())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "el ledger debe tener exactamente un asiento")

	projection, err := memory.NewProjectionRepository(store).Get(testTenant, testBranch, testProduct, "")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(projection.Quantity), "la cantidad no debe duplicarse")
}

func TestApply_ReintentoConDeltaDistinto(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Apply(ctx, purchaseInput("po-x", 10))
	require.NoError(t, err)

	// Gana el primer asiento aunque el reintento traiga otro delta.
	retry, err := engine.Apply(ctx, purchaseInput("po-x", 99))
	require.NoError(t, err)
	assert.True(t, retry.Duplicate)
	assert.True(t, decimal.NewFromInt(10).Equal(retry.Entry.Delta), "el asiento original manda")
}

func TestApply_DeltaCero(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Apply(context.Background(), purchaseInput("po-zero", 0))
	assert.ErrorIs(t, err, domain.ErrInvalidDelta, "delta cero debe rechazarse")
}

func TestApply_EntradaInvalida(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	casos := []struct {
		nombre string
		mutate func(*ledger.ApplyInput)
	}{
		{"sin source_reference", func(in *ledger.ApplyInput) { in.SourceReference = "" }},
		{"sin usuario", func(in *ledger.ApplyInput) { in.UserID = "" }},
		{"kind desconocido", func(in *ledger.ApplyInput) { in.Kind = "MAGIA" }},
		{"source_kind desconocido", func(in *ledger.ApplyInput) { in.SourceKind = "OTRO" }},
		{"costo negativo", func(in *ledger.ApplyInput) {
			neg := decimal.NewFromInt(-1)
			in.UnitCost = &neg
		}},
	}
	for _, c := range casos {
		t.Run(c.nombre, func(t *testing.T) {
			in := purchaseInput("po-bad", 5)
			c.mutate(&in)
			_, err := engine.Apply(ctx, in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestApply_StockInsuficiente(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Apply(ctx, purchaseInput("po-01", 3))
	require.NoError(t, err)

	_, err = engine.Apply(ctx, saleInput("sale-01", -5))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock, "ningún kind permite stock negativo")

	// El rechazo no deja rastro: ni asiento ni cambio de proyección.
	entries, err := memory.NewLedgerRepository(store).List(testLedgerFilter())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "la venta rechazada no debe dejar asiento")

	projection, err := memory.NewProjectionRepository(store).Get(testTenant, testBranch, testProduct, "")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3).Equal(projection.Quantity), "la proyección no debe cambiar")
}

func TestApply_ProductoInexistente(t *testing.T) {
	engine, _ := newTestEngine(t)

	in := purchaseInput("po-404", 5)
	in.ProductID = "no-existe"
	_, err := engine.Apply(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApply_CruceDeTenant(t *testing.T) {
	engine, store := newTestEngine(t)
	store.SeedProduct(&entity.Product{ID: "product-ajeno", TenantID: testTenant2, Name: "Ajeno", Active: true})
	store.SeedBranch(&entity.Branch{ID: "branch-ajena", TenantID: testTenant2, Name: "Ajena", Active: true})

	in := purchaseInput("po-cross", 5)
	in.ProductID = "product-ajeno"
	_, err := engine.Apply(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrCrossTenant, "producto de otro tenant debe rechazarse")

	in = purchaseInput("po-cross2", 5)
	in.BranchID = "branch-ajena"
	_, err = engine.Apply(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrCrossTenant, "sucursal de otro tenant debe rechazarse")
}

func TestApply_MismaReferenciaEnOtroTenant(t *testing.T) {
	engine, store := newTestEngine(t)
	store.SeedProduct(&entity.Product{ID: "product-b", TenantID: testTenant2, Name: "Ibuprofeno", Active: true})
	store.SeedBranch(&entity.Branch{ID: "branch-b", TenantID: testTenant2, Name: "Sucursal Norte", Active: true})
	ctx := context.Background()

	_, err := engine.Apply(ctx, purchaseInput("po-compartida", 10))
	require.NoError(t, err)

	// La clave de idempotencia incluye el tenant: otra botica puede usar la
	// misma referencia sin colisionar.
	in := ledger.ApplyInput{
		TenantID:        testTenant2,
		BranchID:        "branch-b",
		ProductID:       "product-b",
		Delta:           decimal.NewFromInt(7),
		Kind:            entity.TxKindPurchase,
		SourceKind:      entity.SourceKindPurchaseOrder,
		SourceReference: "po-compartida",
		UserID:          "user-b",
	}
	result, err := engine.Apply(ctx, in)
	require.NoError(t, err)
	assert.False(t, result.Duplicate, "la misma referencia en otro tenant no es duplicado")
}

func TestApply_LotesSeparados(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	expiry := time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC)
	inA := purchaseInput("po-lote-a", 10)
	inA.Batch = entity.BatchKey{Number: "L-001", Expiry: &expiry}
	_, err := engine.Apply(ctx, inA)
	require.NoError(t, err)

	inB := purchaseInput("po-lote-b", 4)
	inB.Batch = entity.BatchKey{Number: "L-002", Expiry: &expiry}
	_, err = engine.Apply(ctx, inB)
	require.NoError(t, err)

	repo := memory.NewProjectionRepository(store)
	pa, err := repo.Get(testTenant, testBranch, testProduct, "L-001|2027-03-31")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(pa.Quantity), "cada lote lleva su propia cantidad")

	pb, err := repo.Get(testTenant, testBranch, testProduct, "L-002|2027-03-31")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4).Equal(pb.Quantity))
}

// TestApply_UltimaUnidadConcurrente el caso clásico de sobreventa: dos ventas
// simultáneas del último blister. El lock por fila serializa y exactamente una
// gana; la otra recibe stock insuficiente.
func TestApply_UltimaUnidadConcurrente(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Apply(ctx, purchaseInput("po-seed", 1))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, ref := range []string{"sale-a", "sale-b"} {
		wg.Add(1)
		go func(idx int, sourceRef string) {
			defer wg.Done()
			_, errs[idx] = engine.Apply(ctx, saleInput(sourceRef, -1))
		}(i, ref)
	}
	wg.Wait()

	exitos := 0
	insuficientes := 0
	for _, err := range errs {
		switch {
		case err == nil:
			exitos++
		case errors.Is(err, domain.ErrInsufficientStock):
			insuficientes++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, 1, exitos, "exactamente una venta debe ganar la última unidad")
	assert.Equal(t, 1, insuficientes, "la otra debe recibir stock insuficiente")

	projection, err := memory.NewProjectionRepository(store).Get(testTenant, testBranch, testProduct, "")
	require.NoError(t, err)
	assert.True(t, projection.Quantity.IsZero(), "el stock final debe ser cero, nunca negativo")
}

// TestApply_CadenaDeAsientos verifica el encadenamiento before/after a lo
// largo de una secuencia de mutaciones.
func TestApply_CadenaDeAsientos(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	pasos := []struct {
		in       ledger.ApplyInput
		esperado int64
	}{
		{purchaseInput("po-1", 20), 20},
		{saleInput("sale-1", -5), 15},
		{saleInput("sale-2", -3), 12},
		{purchaseInput("po-2", 8), 20},
	}
	for _, p := range pasos {
		result, err := engine.Apply(ctx, p.in)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(p.esperado).Equal(result.QuantityAfter))
	}

	entries, err := memory.NewLedgerRepository(store).List(testLedgerFilter())
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for _, e := range entries {
		assert.True(t, e.QuantityAfter.Equal(e.QuantityBefore.Add(e.Delta)),
			"cada asiento debe cumplir after = before + delta")
	}
}

func testLedgerFilter() repository.LedgerFilter {
	return repository.LedgerFilter{TenantID: testTenant, BranchID: testBranch, ProductID: testProduct}
}

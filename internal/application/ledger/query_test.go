package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Kardex-api/internal/application/ledger"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/infrastructure/memory"
)

func newTestQuery(t *testing.T) (*ledger.Engine, *ledger.QueryUseCase, *memory.Store) {
	t.Helper()
	engine, store := newTestEngine(t)
	query := ledger.NewQueryUseCase(
		memory.NewLedgerRepository(store),
		memory.NewProjectionRepository(store),
	)
	return engine, query, store
}

func TestQuantityAsOf_Reconstruccion(t *testing.T) {
	engine, query, _ := newTestQuery(t)
	ctx := context.Background()

	antes := time.Now()
	_, err := engine.Apply(ctx, purchaseInput("po-1", 20))
	require.NoError(t, err)
	entreMedio := time.Now()
	_, err = engine.Apply(ctx, saleInput("sale-1", -5))
	require.NoError(t, err)

	qty, err := query.QuantityAsOf(testTenant, testBranch, testProduct, entity.BatchKey{}, time.Now())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(15).Equal(qty), "al presente debe sumar todos los deltas")

	qty, err = query.QuantityAsOf(testTenant, testBranch, testProduct, entity.BatchKey{}, entreMedio)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(qty), "a mitad de la historia solo cuenta la compra")

	qty, err = query.QuantityAsOf(testTenant, testBranch, testProduct, entity.BatchKey{}, antes)
	require.NoError(t, err)
	assert.True(t, qty.IsZero(), "antes del primer asiento la cantidad es cero")
}

func TestQuantityAsOf_IgnoraDuplicados(t *testing.T) {
	engine, query, _ := newTestQuery(t)
	ctx := context.Background()

	_, err := engine.Apply(ctx, purchaseInput("po-dup", 10))
	require.NoError(t, err)
	_, err = engine.Apply(ctx, purchaseInput("po-dup", 10))
	require.NoError(t, err)

	qty, err := query.QuantityAsOf(testTenant, testBranch, testProduct, entity.BatchKey{}, time.Now())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(qty), "el reintento no debe contarse dos veces")
}

func TestMovementSummary_TotalesPorKind(t *testing.T) {
	engine, query, _ := newTestQuery(t)
	ctx := context.Background()

	_, err := engine.Apply(ctx, purchaseInput("po-1", 20))
	require.NoError(t, err)
	_, err = engine.Apply(ctx, saleInput("sale-1", -5))
	require.NoError(t, err)
	_, err = engine.Apply(ctx, saleInput("sale-2", -3))
	require.NoError(t, err)

	summaries, err := query.MovementSummary(testTenant, testBranch, time.Time{}, time.Now())
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	porKind := make(map[entity.TransactionKind]entity.MovementSummary, len(summaries))
	for _, s := range summaries {
		porKind[s.Kind] = s
	}

	compras := porKind[entity.TxKindPurchase]
	assert.Equal(t, 1, compras.Entries)
	assert.True(t, decimal.NewFromInt(20).Equal(compras.TotalIn))
	assert.True(t, compras.TotalOut.IsZero())

	ventas := porKind[entity.TxKindSale]
	assert.Equal(t, 2, ventas.Entries)
	assert.True(t, decimal.NewFromInt(8).Equal(ventas.TotalOut), "las salidas se reportan en positivo")
	assert.True(t, decimal.NewFromInt(-8).Equal(ventas.NetDelta))
}

func TestListMovements_OrdenYLimite(t *testing.T) {
	engine, query, _ := newTestQuery(t)
	ctx := context.Background()

	_, err := engine.Apply(ctx, purchaseInput("po-1", 10))
	require.NoError(t, err)
	_, err = engine.Apply(ctx, saleInput("sale-1", -2))
	require.NoError(t, err)
	_, err = engine.Apply(ctx, saleInput("sale-2", -1))
	require.NoError(t, err)

	entries, err := query.ListMovements(testLedgerFilter())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "sale-2", entries[0].SourceReference, "el más reciente primero")
	assert.Equal(t, "po-1", entries[2].SourceReference)

	filtro := testLedgerFilter()
	filtro.Limit = 2
	entries, err = query.ListMovements(filtro)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestVerifyProjection_EnSincronia(t *testing.T) {
	engine, query, _ := newTestQuery(t)
	ctx := context.Background()

	_, err := engine.Apply(ctx, purchaseInput("po-1", 20))
	require.NoError(t, err)
	_, err = engine.Apply(ctx, saleInput("sale-1", -5))
	require.NoError(t, err)

	report, err := query.VerifyProjection(testTenant, testBranch, testProduct, entity.BatchKey{})
	require.NoError(t, err)
	assert.True(t, report.InSync, "tras mutaciones normales no debe haber deriva")
	assert.True(t, report.Drift.IsZero())
	assert.True(t, decimal.NewFromInt(15).Equal(report.LedgerQuantity))
}

func TestVerifyProjection_DetectaDeriva(t *testing.T) {
	engine, query, store := newTestQuery(t)
	ctx := context.Background()

	_, err := engine.Apply(ctx, purchaseInput("po-1", 20))
	require.NoError(t, err)

	// Corrupción simulada: se pisa la proyección fuera del motor.
	repo := memory.NewProjectionRepository(store)
	projection, err := repo.Get(testTenant, testBranch, testProduct, "")
	require.NoError(t, err)
	projection.Quantity = decimal.NewFromInt(17)
	require.NoError(t, repo.Upsert(projection))

	report, err := query.VerifyProjection(testTenant, testBranch, testProduct, entity.BatchKey{})
	require.NoError(t, err)
	assert.False(t, report.InSync, "la deriva debe detectarse")
	assert.True(t, decimal.NewFromInt(-3).Equal(report.Drift), "drift = proyección - ledger")
}

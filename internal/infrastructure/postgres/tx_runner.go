package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Kardex-api/internal/application/ledger"
	"github.com/jhoicas/Kardex-api/internal/application/saleedit"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// Asegura que TxRunner implementa ledger.TxRunner y saleedit.TxRunner.
var (
	_ ledger.TxRunner   = (*TxRunner)(nil)
	_ saleedit.TxRunner = (*TxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL con
// lock_timeout acotado: un FOR UPDATE que no adquiere el lock a tiempo
// falla con 55P03 y los repos lo traducen a domain.ErrLockTimeout.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool y el plazo de lock.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace
// Commit o Rollback. Asiento y proyección se persisten juntos o ninguno.
func (r *TxRunner) Run(ctx context.Context, fn func(
	ledgerRepo repository.LedgerRepository,
	projectionRepo repository.StockProjectionRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}

	if err := fn(NewLedgerRepository(tx), NewProjectionRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunSaleEdit inicia una transacción con los repos del flujo de edición de
// ventas (decisión maker-checker + reversión de stock en un solo commit).
func (r *TxRunner) RunSaleEdit(ctx context.Context, fn func(
	ledgerRepo repository.LedgerRepository,
	projectionRepo repository.StockProjectionRepository,
	saleRepo repository.SaleRepository,
	editRepo repository.SaleEditRequestRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}

	err = fn(
		NewLedgerRepository(tx),
		NewProjectionRepository(tx),
		NewSaleRepository(tx),
		NewSaleEditRequestRepository(tx),
	)
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

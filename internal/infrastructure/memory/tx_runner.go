package memory

import (
	"context"
	"time"

	"github.com/jhoicas/Kardex-api/internal/application/ledger"
	"github.com/jhoicas/Kardex-api/internal/application/saleedit"
	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// Asegura que TxRunner implementa los puertos de transacción.
var (
	_ ledger.TxRunner   = (*TxRunner)(nil)
	_ saleedit.TxRunner = (*TxRunner)(nil)
)

// TxRunner transacciones sobre el store en memoria: adquiere el lock de
// transacción (con timeout, análogo a lock_timeout en PostgreSQL), toma un
// snapshot y lo restaura si la función falla. Serializa las transacciones
// entre sí, igual que el FOR UPDATE serializa las mutaciones por clave.
type TxRunner struct {
	s *Store
}

// NewTxRunner construye el runner sobre el store.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

func (r *TxRunner) acquireTx(ctx context.Context) error {
	timer := time.NewTimer(r.s.lockWait)
	defer timer.Stop()
	select {
	case <-r.s.txMu:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return domain.ErrLockTimeout
	}
}

func (r *TxRunner) releaseTx() {
	r.s.txMu <- struct{}{}
}

// Run ejecuta fn con repos de ledger y proyección; rollback por snapshot si falla.
func (r *TxRunner) Run(ctx context.Context, fn func(
	ledgerRepo repository.LedgerRepository,
	projectionRepo repository.StockProjectionRepository,
) error) error {
	if err := r.acquireTx(ctx); err != nil {
		return err
	}
	defer r.releaseTx()

	snap := r.s.snapshot()
	if err := fn(NewLedgerRepository(r.s), NewProjectionRepository(r.s)); err != nil {
		r.s.restore(snap)
		return err
	}
	return nil
}

// RunSaleEdit igual que Run, con los repos del flujo de edición de ventas.
func (r *TxRunner) RunSaleEdit(ctx context.Context, fn func(
	ledgerRepo repository.LedgerRepository,
	projectionRepo repository.StockProjectionRepository,
	saleRepo repository.SaleRepository,
	editRepo repository.SaleEditRequestRepository,
) error) error {
	if err := r.acquireTx(ctx); err != nil {
		return err
	}
	defer r.releaseTx()

	snap := r.s.snapshot()
	err := fn(
		NewLedgerRepository(r.s),
		NewProjectionRepository(r.s),
		NewSaleRepository(r.s),
		NewSaleEditRequestRepository(r.s),
	)
	if err != nil {
		r.s.restore(snap)
		return err
	}
	return nil
}

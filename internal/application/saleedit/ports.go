package saleedit

import (
	"context"

	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// TxRunner transacción del flujo de edición de ventas: además de los repos
// del ledger pasa los de ventas y solicitudes, para que la reversión de
// stock, la edición de la venta y la decisión compartan un solo commit.
type TxRunner interface {
	RunSaleEdit(ctx context.Context, fn func(
		ledgerRepo repository.LedgerRepository,
		projectionRepo repository.StockProjectionRepository,
		saleRepo repository.SaleRepository,
		editRepo repository.SaleEditRequestRepository,
	) error) error
}

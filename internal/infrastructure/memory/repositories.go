package memory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// Asegura que los adaptadores implementan sus puertos.
var (
	_ repository.LedgerRepository          = (*LedgerRepo)(nil)
	_ repository.StockProjectionRepository = (*ProjectionRepo)(nil)
	_ repository.ProductRepository         = (*ProductRepo)(nil)
	_ repository.BranchRepository          = (*BranchRepo)(nil)
	_ repository.SaleRepository            = (*SaleRepo)(nil)
	_ repository.SaleEditRequestRepository = (*SaleEditRequestRepo)(nil)
)

// LedgerRepo adaptador en memoria del ledger (append-only).
type LedgerRepo struct {
	s *Store
}

// NewLedgerRepository construye el adaptador.
func NewLedgerRepository(s *Store) *LedgerRepo {
	return &LedgerRepo{s: s}
}

// Append agrega el asiento; duplica la clave de idempotencia → ErrDuplicateSource.
func (r *LedgerRepo) Append(entry *entity.LedgerEntry) error {
	r.s.lockData()
	defer r.s.unlockData()
	if !entry.IsDuplicate && r.s.findBySource(entry.TenantID, entry.SourceKind, entry.SourceReference) != nil {
		return domain.ErrDuplicateSource
	}
	cp := *entry
	r.s.entries = append(r.s.entries, &cp)
	return nil
}

func (r *LedgerRepo) GetBySource(tenantID string, sourceKind entity.SourceKind, sourceRef string) (*entity.LedgerEntry, error) {
	r.s.lockData()
	defer r.s.unlockData()
	if e := r.s.findBySource(tenantID, sourceKind, sourceRef); e != nil {
		cp := *e
		return &cp, nil
	}
	return nil, nil
}

func (r *LedgerRepo) SumDeltasAsOf(tenantID, branchID, productID, batchKey string, asOf time.Time) (decimal.Decimal, error) {
	r.s.lockData()
	defer r.s.unlockData()
	sum := decimal.Zero
	for _, e := range r.s.entries {
		if e.IsDuplicate || e.TenantID != tenantID || e.BranchID != branchID ||
			e.ProductID != productID || e.BatchKey != batchKey {
			continue
		}
		if e.PerformedAt.After(asOf) {
			continue
		}
		sum = sum.Add(e.Delta)
	}
	return sum, nil
}

func (r *LedgerRepo) List(filter repository.LedgerFilter) ([]*entity.LedgerEntry, error) {
	r.s.lockData()
	defer r.s.unlockData()
	var matched []*entity.LedgerEntry
	for i := len(r.s.entries) - 1; i >= 0; i-- {
		e := r.s.entries[i]
		if e.TenantID != filter.TenantID {
			continue
		}
		if filter.BranchID != "" && e.BranchID != filter.BranchID {
			continue
		}
		if filter.ProductID != "" && e.ProductID != filter.ProductID {
			continue
		}
		if filter.BatchKey != nil && e.BatchKey != *filter.BatchKey {
			continue
		}
		if filter.From != nil && e.PerformedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.PerformedAt.After(*filter.To) {
			continue
		}
		cp := *e
		matched = append(matched, &cp)
	}
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *LedgerRepo) SummaryByKind(tenantID, branchID string, from, to time.Time) ([]entity.MovementSummary, error) {
	r.s.lockData()
	defer r.s.unlockData()
	byKind := make(map[entity.TransactionKind]*entity.MovementSummary)
	var order []entity.TransactionKind
	for _, e := range r.s.entries {
		if e.IsDuplicate || e.TenantID != tenantID || e.BranchID != branchID {
			continue
		}
		if e.PerformedAt.Before(from) || e.PerformedAt.After(to) {
			continue
		}
		sum, ok := byKind[e.Kind]
		if !ok {
			sum = &entity.MovementSummary{
				Kind:     e.Kind,
				TotalIn:  decimal.Zero,
				TotalOut: decimal.Zero,
				NetDelta: decimal.Zero,
			}
			byKind[e.Kind] = sum
			order = append(order, e.Kind)
		}
		sum.Entries++
		if e.Delta.IsPositive() {
			sum.TotalIn = sum.TotalIn.Add(e.Delta)
		} else {
			sum.TotalOut = sum.TotalOut.Add(e.Delta.Neg())
		}
		sum.NetDelta = sum.NetDelta.Add(e.Delta)
	}
	out := make([]entity.MovementSummary, 0, len(order))
	for _, k := range order {
		out = append(out, *byKind[k])
	}
	return out, nil
}

// ProjectionRepo adaptador en memoria de la proyección de stock.
type ProjectionRepo struct {
	s *Store
}

// NewProjectionRepository construye el adaptador.
func NewProjectionRepository(s *Store) *ProjectionRepo {
	return &ProjectionRepo{s: s}
}

func (r *ProjectionRepo) Get(tenantID, branchID, productID, batchKey string) (*entity.StockProjection, error) {
	r.s.lockData()
	defer r.s.unlockData()
	if p, ok := r.s.projections[projectionKey(tenantID, branchID, productID, batchKey)]; ok {
		cp := *p
		return &cp, nil
	}
	return &entity.StockProjection{
		TenantID:  tenantID,
		BranchID:  branchID,
		ProductID: productID,
		BatchKey:  batchKey,
		Quantity:  decimal.Zero,
		Active:    true,
	}, nil
}

// GetForUpdate en memoria: el lock de transacción del TxRunner ya serializa,
// así que solo crea la fila en cero si no existe.
func (r *ProjectionRepo) GetForUpdate(tenantID, branchID, productID, batchKey string) (*entity.StockProjection, error) {
	r.s.lockData()
	defer r.s.unlockData()
	p := r.s.getOrCreateProjection(tenantID, branchID, productID, batchKey)
	cp := *p
	return &cp, nil
}

func (r *ProjectionRepo) Upsert(projection *entity.StockProjection) error {
	r.s.lockData()
	defer r.s.unlockData()
	cp := *projection
	r.s.projections[projectionKey(projection.TenantID, projection.BranchID, projection.ProductID, projection.BatchKey)] = &cp
	return nil
}

// ProductRepo adaptador de consulta de productos.
type ProductRepo struct {
	s *Store
}

// NewProductRepository construye el adaptador.
func NewProductRepository(s *Store) *ProductRepo {
	return &ProductRepo{s: s}
}

func (r *ProductRepo) GetByID(id string) (*entity.Product, error) {
	r.s.lockData()
	defer r.s.unlockData()
	if p, ok := r.s.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

// BranchRepo adaptador de consulta de sucursales.
type BranchRepo struct {
	s *Store
}

// NewBranchRepository construye el adaptador.
func NewBranchRepository(s *Store) *BranchRepo {
	return &BranchRepo{s: s}
}

func (r *BranchRepo) GetByID(id string) (*entity.Branch, error) {
	r.s.lockData()
	defer r.s.unlockData()
	if b, ok := r.s.branches[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

// SaleRepo adaptador de ventas para el flujo maker-checker.
type SaleRepo struct {
	s *Store
}

// NewSaleRepository construye el adaptador.
func NewSaleRepository(s *Store) *SaleRepo {
	return &SaleRepo{s: s}
}

func (r *SaleRepo) GetByID(tenantID, saleID string) (*entity.Sale, error) {
	r.s.lockData()
	defer r.s.unlockData()
	sale, ok := r.s.sales[saleID]
	if !ok || sale.TenantID != tenantID {
		return nil, nil
	}
	return copySale(sale), nil
}

// GetForUpdate en memoria: igual que GetByID, la serialización la da el
// lock de transacción.
func (r *SaleRepo) GetForUpdate(tenantID, saleID string) (*entity.Sale, error) {
	return r.GetByID(tenantID, saleID)
}

func (r *SaleRepo) UpdateLinePrice(line *entity.SaleLine) error {
	r.s.lockData()
	defer r.s.unlockData()
	sale, ok := r.s.sales[line.SaleID]
	if !ok {
		return domain.ErrNotFound
	}
	for _, l := range sale.Lines {
		if l.ID == line.ID {
			l.UnitPrice = line.UnitPrice
			l.Total = line.Total
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *SaleRepo) DeleteLine(tenantID, lineID string) error {
	r.s.lockData()
	defer r.s.unlockData()
	for _, sale := range r.s.sales {
		if sale.TenantID != tenantID {
			continue
		}
		for i, l := range sale.Lines {
			if l.ID == lineID {
				sale.Lines = append(sale.Lines[:i], sale.Lines[i+1:]...)
				return nil
			}
		}
	}
	return domain.ErrNotFound
}

func (r *SaleRepo) UpdateTotals(sale *entity.Sale) error {
	r.s.lockData()
	defer r.s.unlockData()
	stored, ok := r.s.sales[sale.ID]
	if !ok || stored.TenantID != sale.TenantID {
		return domain.ErrNotFound
	}
	stored.Subtotal = sale.Subtotal
	stored.Total = sale.Total
	stored.UpdatedAt = time.Now()
	return nil
}

// SaleEditRequestRepo adaptador de solicitudes de edición.
type SaleEditRequestRepo struct {
	s *Store
}

// NewSaleEditRequestRepository construye el adaptador.
func NewSaleEditRequestRepository(s *Store) *SaleEditRequestRepo {
	return &SaleEditRequestRepo{s: s}
}

func (r *SaleEditRequestRepo) Create(request *entity.SaleEditRequest) error {
	r.s.lockData()
	defer r.s.unlockData()
	cp := *request
	r.s.requests[request.ID] = &cp
	return nil
}

func (r *SaleEditRequestRepo) GetByID(tenantID, requestID string) (*entity.SaleEditRequest, error) {
	r.s.lockData()
	defer r.s.unlockData()
	req, ok := r.s.requests[requestID]
	if !ok || req.TenantID != tenantID {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r *SaleEditRequestRepo) GetForUpdate(tenantID, requestID string) (*entity.SaleEditRequest, error) {
	return r.GetByID(tenantID, requestID)
}

func (r *SaleEditRequestRepo) UpdateDecision(request *entity.SaleEditRequest) error {
	r.s.lockData()
	defer r.s.unlockData()
	stored, ok := r.s.requests[request.ID]
	if !ok || stored.TenantID != request.TenantID {
		return domain.ErrNotFound
	}
	stored.Status = request.Status
	stored.DecidedBy = request.DecidedBy
	stored.RejectionReason = request.RejectionReason
	stored.DecidedAt = request.DecidedAt
	return nil
}

func (r *SaleEditRequestRepo) ListPending(tenantID string, limit, offset int) ([]*entity.SaleEditRequest, error) {
	r.s.lockData()
	defer r.s.unlockData()
	pending := r.s.pendingRequests(tenantID)
	if offset >= len(pending) {
		return nil, nil
	}
	pending = pending[offset:]
	if limit > 0 && limit < len(pending) {
		pending = pending[:limit]
	}
	out := make([]*entity.SaleEditRequest, len(pending))
	for i, p := range pending {
		cp := *p
		out[i] = &cp
	}
	return out, nil
}

func (r *SaleEditRequestRepo) CountPending(tenantID string) (int, error) {
	r.s.lockData()
	defer r.s.unlockData()
	return len(r.s.pendingRequests(tenantID)), nil
}

// Package memory implementa los puertos de persistencia sobre estructuras en
// memoria. Lo usan las pruebas unitarias del motor y del flujo maker-checker:
// mismo contrato que los adaptadores de PostgreSQL (transacciones con
// rollback, serialización de escrituras, timeout de lock), sin base de datos.
package memory

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Kardex-api/internal/domain/entity"
)

// Store contenedor de datos en memoria. Las lecturas/escrituras puntuales se
// protegen con un mutex corto; las transacciones (Run/RunSaleEdit) se
// serializan con un lock de transacción con timeout, análogo al
// SELECT FOR UPDATE + lock_timeout del adaptador PostgreSQL.
type Store struct {
	dataMu chan struct{} // mutex de datos (sección corta)
	txMu   chan struct{} // lock de transacción (sección larga, con timeout)

	lockWait time.Duration

	entries     []*entity.LedgerEntry
	projections map[string]*entity.StockProjection
	products    map[string]*entity.Product
	branches    map[string]*entity.Branch
	sales       map[string]*entity.Sale
	requests    map[string]*entity.SaleEditRequest
}

// NewStore construye el store vacío con el timeout de lock dado.
func NewStore(lockWait time.Duration) *Store {
	if lockWait <= 0 {
		lockWait = 2 * time.Second
	}
	s := &Store{
		dataMu:      make(chan struct{}, 1),
		txMu:        make(chan struct{}, 1),
		lockWait:    lockWait,
		projections: make(map[string]*entity.StockProjection),
		products:    make(map[string]*entity.Product),
		branches:    make(map[string]*entity.Branch),
		sales:       make(map[string]*entity.Sale),
		requests:    make(map[string]*entity.SaleEditRequest),
	}
	s.dataMu <- struct{}{}
	s.txMu <- struct{}{}
	return s
}

func (s *Store) lockData() {
	<-s.dataMu
}

func (s *Store) unlockData() {
	s.dataMu <- struct{}{}
}

func projectionKey(tenantID, branchID, productID, batchKey string) string {
	return tenantID + "/" + branchID + "/" + productID + "/" + batchKey
}

// ── Semillas para pruebas ────────────────────────────────────────────────────

// SeedProduct registra un producto.
func (s *Store) SeedProduct(p *entity.Product) {
	s.lockData()
	defer s.unlockData()
	cp := *p
	s.products[p.ID] = &cp
}

// SeedBranch registra una sucursal.
func (s *Store) SeedBranch(b *entity.Branch) {
	s.lockData()
	defer s.unlockData()
	cp := *b
	s.branches[b.ID] = &cp
}

// SeedSale registra una venta completada con sus líneas.
func (s *Store) SeedSale(sale *entity.Sale) {
	s.lockData()
	defer s.unlockData()
	s.sales[sale.ID] = copySale(sale)
}

// ── Snapshots para rollback ──────────────────────────────────────────────────

type snapshot struct {
	entriesLen  int
	projections map[string]*entity.StockProjection
	sales       map[string]*entity.Sale
	requests    map[string]*entity.SaleEditRequest
}

func (s *Store) snapshot() *snapshot {
	s.lockData()
	defer s.unlockData()
	snap := &snapshot{
		entriesLen:  len(s.entries),
		projections: make(map[string]*entity.StockProjection, len(s.projections)),
		sales:       make(map[string]*entity.Sale, len(s.sales)),
		requests:    make(map[string]*entity.SaleEditRequest, len(s.requests)),
	}
	for k, p := range s.projections {
		cp := *p
		snap.projections[k] = &cp
	}
	for k, sale := range s.sales {
		snap.sales[k] = copySale(sale)
	}
	for k, r := range s.requests {
		cp := *r
		snap.requests[k] = &cp
	}
	return snap
}

func (s *Store) restore(snap *snapshot) {
	s.lockData()
	defer s.unlockData()
	s.entries = s.entries[:snap.entriesLen]
	s.projections = snap.projections
	s.sales = snap.sales
	s.requests = snap.requests
}

func copySale(sale *entity.Sale) *entity.Sale {
	cp := *sale
	cp.Lines = make([]*entity.SaleLine, len(sale.Lines))
	for i, l := range sale.Lines {
		lc := *l
		cp.Lines[i] = &lc
	}
	return &cp
}

// ── Utilidades internas compartidas por los repos ────────────────────────────

func (s *Store) findBySource(tenantID string, kind entity.SourceKind, ref string) *entity.LedgerEntry {
	for _, e := range s.entries {
		if e.TenantID == tenantID && e.SourceKind == kind && e.SourceReference == ref && !e.IsDuplicate {
			return e
		}
	}
	return nil
}

func (s *Store) getOrCreateProjection(tenantID, branchID, productID, batchKey string) *entity.StockProjection {
	key := projectionKey(tenantID, branchID, productID, batchKey)
	if p, ok := s.projections[key]; ok {
		return p
	}
	p := &entity.StockProjection{
		TenantID:  tenantID,
		BranchID:  branchID,
		ProductID: productID,
		BatchKey:  batchKey,
		Quantity:  decimal.Zero,
		Active:    true,
	}
	s.projections[key] = p
	return p
}

func (s *Store) pendingRequests(tenantID string) []*entity.SaleEditRequest {
	var out []*entity.SaleEditRequest
	for _, r := range s.requests {
		if r.TenantID == tenantID && r.Status == entity.EditStatusPending {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out
}

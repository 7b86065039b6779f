package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// EditRequestKind tipo de edición solicitada sobre una venta.
type EditRequestKind string

const (
	EditKindPriceChange EditRequestKind = "PRICE_CHANGE"
	EditKindLineDelete  EditRequestKind = "LINE_DELETE"
)

// IsValid verifica que el kind sea conocido.
func (k EditRequestKind) IsValid() bool {
	return k == EditKindPriceChange || k == EditKindLineDelete
}

// EditRequestStatus estado de la solicitud. PENDING es el único estado no
// terminal: una vez APPROVED o REJECTED la solicitud no vuelve a transicionar.
type EditRequestStatus string

const (
	EditStatusPending  EditRequestStatus = "PENDING"
	EditStatusApproved EditRequestStatus = "APPROVED"
	EditStatusRejected EditRequestStatus = "REJECTED"
)

// SaleEditRequest solicitud maker-checker de edición de venta. La crea un
// maker y la decide exactamente una vez un checker distinto.
type SaleEditRequest struct {
	ID              string
	TenantID        string
	SaleID          string
	LineID          string
	Kind            EditRequestKind
	Status          EditRequestStatus
	ProposedPrice   *decimal.Decimal // solo PRICE_CHANGE
	Reason          string
	RejectionReason string
	RequestedBy     string
	DecidedBy       string
	RequestedAt     time.Time
	DecidedAt       *time.Time
}

// IsTerminal indica si la solicitud ya fue decidida.
func (r *SaleEditRequest) IsTerminal() bool {
	return r.Status != EditStatusPending
}

// Approve marca la solicitud como aprobada. No valida el estado previo:
// esa guarda la aplica el caso de uso bajo el lock de la fila.
func (r *SaleEditRequest) Approve(approverID string, at time.Time) {
	r.Status = EditStatusApproved
	r.DecidedBy = approverID
	r.DecidedAt = &at
}

// Reject marca la solicitud como rechazada con el motivo dado.
func (r *SaleEditRequest) Reject(approverID, reason string, at time.Time) {
	r.Status = EditStatusRejected
	r.DecidedBy = approverID
	r.RejectionReason = reason
	r.DecidedAt = &at
}

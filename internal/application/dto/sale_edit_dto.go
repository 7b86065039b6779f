package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateEditRequest cuerpo de POST /api/sale-edits. ProposedPrice solo aplica
// para kind PRICE_CHANGE.
type CreateEditRequest struct {
	SaleID        string           `json:"sale_id"`
	LineID        string           `json:"line_id"`
	Kind          string           `json:"kind"`
	ProposedPrice *decimal.Decimal `json:"proposed_price,omitempty"`
	Reason        string           `json:"reason"`
}

// DecideEditRequest cuerpo de POST /api/sale-edits/:id/decision.
type DecideEditRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

// EditRequestResponse representación de una solicitud de edición de venta.
type EditRequestResponse struct {
	ID              string           `json:"id"`
	SaleID          string           `json:"sale_id"`
	LineID          string           `json:"line_id"`
	Kind            string           `json:"kind"`
	Status          string           `json:"status"`
	ProposedPrice   *decimal.Decimal `json:"proposed_price,omitempty"`
	Reason          string           `json:"reason"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	RequestedBy     string           `json:"requested_by"`
	RequestedAt     time.Time        `json:"requested_at"`
	DecidedBy       string           `json:"decided_by,omitempty"`
	DecidedAt       *time.Time       `json:"decided_at,omitempty"`
}

// PendingCountResponse cantidad de solicitudes pendientes del tenant.
type PendingCountResponse struct {
	Pending int `json:"pending"`
}

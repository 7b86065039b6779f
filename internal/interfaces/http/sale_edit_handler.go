package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Kardex-api/internal/application/dto"
	"github.com/jhoicas/Kardex-api/internal/application/saleedit"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
)

// SaleEditHandler maneja el flujo maker-checker de ediciones de venta (protegido).
type SaleEditHandler struct {
	uc *saleedit.UseCase
}

// NewSaleEditHandler construye el handler.
func NewSaleEditHandler(uc *saleedit.UseCase) *SaleEditHandler {
	return &SaleEditHandler{uc: uc}
}

// Create godoc
// @Summary      Solicitar edición de venta
// @Description  Registra una solicitud PENDING sobre una línea de venta completada.
//
//	La decide después un usuario distinto con rol aprobador.
//
// @Tags         sale-edits
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateEditRequest  true  "sale_id, line_id, kind, reason (proposed_price para PRICE_CHANGE)"
// @Success      201   {object}  dto.EditRequestResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sale-edits [post]
func (h *SaleEditHandler) Create(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	userID := GetUserID(c)
	if tenantID == "" || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.CreateEditRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	request, err := h.uc.Create(saleedit.CreateInput{
		TenantID:      tenantID,
		SaleID:        in.SaleID,
		LineID:        in.LineID,
		Kind:          entity.EditRequestKind(in.Kind),
		ProposedPrice: in.ProposedPrice,
		Reason:        in.Reason,
		RequestedBy:   userID,
	})
	if err != nil {
		return mapStockError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toEditRequestResponse(request))
}

// Decide godoc
// @Summary      Decidir solicitud de edición
// @Description  Aprueba o rechaza una solicitud pendiente. El aprobador debe ser
//
//	distinto de quien la pidió. Una solicitud ya decidida responde 409.
//
// @Tags         sale-edits
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID de la solicitud"
// @Param        body  body  dto.DecideEditRequest  true  "approve y, si se rechaza, reason"
// @Success      200   {object}  dto.EditRequestResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/sale-edits/{id}/decision [post]
func (h *SaleEditHandler) Decide(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	userID := GetUserID(c)
	if tenantID == "" || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.DecideEditRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	request, err := h.uc.Decide(c.Context(), saleedit.DecideInput{
		TenantID:        tenantID,
		RequestID:       c.Params("id"),
		ApproverID:      userID,
		Approved:        in.Approve,
		RejectionReason: in.Reason,
	})
	if err != nil {
		return mapStockError(c, err)
	}
	return c.JSON(toEditRequestResponse(request))
}

// ListPending godoc
// @Summary      Solicitudes pendientes
// @Tags         sale-edits
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Máximo de filas (default 50, tope 200)"
// @Param        offset  query  int  false  "Desplazamiento"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/sale-edits/pending [get]
func (h *SaleEditHandler) ListPending(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}

	requests, err := h.uc.ListPending(tenantID, c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		return mapStockError(c, err)
	}

	out := make([]dto.EditRequestResponse, 0, len(requests))
	for _, r := range requests {
		out = append(out, toEditRequestResponse(r))
	}
	return c.JSON(fiber.Map{"total": len(out), "requests": out})
}

// PendingCount godoc
// @Summary      Cantidad de solicitudes pendientes
// @Tags         sale-edits
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.PendingCountResponse
// @Router       /api/sale-edits/pending/count [get]
func (h *SaleEditHandler) PendingCount(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}

	count, err := h.uc.PendingCount(tenantID)
	if err != nil {
		return mapStockError(c, err)
	}
	return c.JSON(dto.PendingCountResponse{Pending: count})
}

func toEditRequestResponse(r *entity.SaleEditRequest) dto.EditRequestResponse {
	return dto.EditRequestResponse{
		ID:              r.ID,
		SaleID:          r.SaleID,
		LineID:          r.LineID,
		Kind:            string(r.Kind),
		Status:          string(r.Status),
		ProposedPrice:   r.ProposedPrice,
		Reason:          r.Reason,
		RejectionReason: r.RejectionReason,
		RequestedBy:     r.RequestedBy,
		RequestedAt:     r.RequestedAt,
		DecidedBy:       r.DecidedBy,
		DecidedAt:       r.DecidedAt,
	}
}

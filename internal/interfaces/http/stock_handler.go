package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Kardex-api/internal/application/dto"
	"github.com/jhoicas/Kardex-api/internal/application/ledger"
	"github.com/jhoicas/Kardex-api/internal/domain"
	"github.com/jhoicas/Kardex-api/internal/domain/entity"
	"github.com/jhoicas/Kardex-api/internal/domain/repository"
)

// StockHandler maneja las mutaciones de stock y las consultas sobre el ledger (protegido).
type StockHandler struct {
	engine *ledger.Engine
	query  *ledger.QueryUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(engine *ledger.Engine, query *ledger.QueryUseCase) *StockHandler {
	return &StockHandler{engine: engine, query: query}
}

// RegisterMutation godoc
// @Summary      Registrar mutación de stock
// @Description  Aplica un delta con signo sobre (sucursal, producto, lote). Reintentos con el
//
//	mismo (source_kind, source_reference) son idempotentes: devuelven el asiento
//	original con duplicate=true y status 200.
//
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMutationRequest  true  "branch_id, product_id, kind, delta, source_kind, source_reference"
// @Success      201   {object}  dto.MutationResponse
// @Success      200   {object}  dto.MutationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/stock/mutations [post]
func (h *StockHandler) RegisterMutation(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	userID := GetUserID(c)
	if tenantID == "" || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.RegisterMutationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	result, err := h.engine.Apply(c.Context(), ledger.ApplyInput{
		TenantID:        tenantID,
		BranchID:        in.BranchID,
		ProductID:       in.ProductID,
		Batch:           entity.BatchKey{Number: in.BatchNumber, Expiry: in.BatchExpiry},
		Delta:           in.Delta,
		Kind:            entity.TransactionKind(in.Kind),
		SourceKind:      entity.SourceKind(in.SourceKind),
		SourceReference: in.SourceReference,
		UserID:          userID,
		UnitCost:        in.UnitCost,
		SellingPrice:    in.SellingPrice,
	})
	if err != nil {
		return mapStockError(c, err)
	}

	status := fiber.StatusCreated
	if result.Duplicate {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(dto.MutationResponse{
		EntryID:        result.Entry.ID,
		QuantityBefore: result.QuantityBefore,
		QuantityAfter:  result.QuantityAfter,
		Duplicate:      result.Duplicate,
	})
}

// QuantityAsOf godoc
// @Summary      Cantidad reconstruida a un instante
// @Description  Recalcula la cantidad de (sucursal, producto, lote) sumando los deltas del
//
//	ledger hasta el instante dado. Sin as_of usa el momento actual.
//
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        branch_id   query  string  true   "Sucursal (UUID)"
// @Param        product_id  query  string  true   "Producto (UUID)"
// @Param        batch_key   query  string  false  "Clave de lote normalizada"
// @Param        as_of       query  string  false  "Instante RFC3339"
// @Success      200  {object}  dto.QuantityAsOfResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/quantity-asof [get]
func (h *StockHandler) QuantityAsOf(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	branchID := c.Query("branch_id")
	productID := c.Query("product_id")
	if branchID == "" || productID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "branch_id y product_id son requeridos"})
	}

	asOf := time.Now().UTC()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "as_of debe ser RFC3339"})
		}
		asOf = parsed
	}

	qty, err := h.query.QuantityAsOf(tenantID, branchID, productID, entity.BatchKey{Number: c.Query("batch_key")}, asOf)
	if err != nil {
		return mapStockError(c, err)
	}
	return c.JSON(dto.QuantityAsOfResponse{Quantity: qty, AsOf: asOf})
}

// ListMovements godoc
// @Summary      Historial de movimientos
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        branch_id   query  string  false  "Filtrar por sucursal"
// @Param        product_id  query  string  false  "Filtrar por producto"
// @Param        batch_key   query  string  false  "Filtrar por lote"
// @Param        from        query  string  false  "Desde (RFC3339)"
// @Param        to          query  string  false  "Hasta (RFC3339)"
// @Param        limit       query  int     false  "Máximo de filas (default 100, tope 500)"
// @Param        offset      query  int     false  "Desplazamiento"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/movements [get]
func (h *StockHandler) ListMovements(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}

	filter := repository.LedgerFilter{
		TenantID:  tenantID,
		BranchID:  c.Query("branch_id"),
		ProductID: c.Query("product_id"),
		Limit:     c.QueryInt("limit"),
		Offset:    c.QueryInt("offset"),
	}
	if bk := c.Query("batch_key"); bk != "" {
		filter.BatchKey = &bk
	}
	var err error
	if filter.From, err = parseTimeQuery(c, "from"); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from debe ser RFC3339"})
	}
	if filter.To, err = parseTimeQuery(c, "to"); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to debe ser RFC3339"})
	}

	entries, err := h.query.ListMovements(filter)
	if err != nil {
		return mapStockError(c, err)
	}

	out := make([]dto.LedgerEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, toLedgerEntryDTO(e))
	}
	return c.JSON(fiber.Map{"total": len(out), "movements": out})
}

// MovementSummary godoc
// @Summary      Resumen de movimientos por tipo
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        branch_id   query  string  false  "Filtrar por sucursal"
// @Param        from        query  string  false  "Desde (RFC3339)"
// @Param        to          query  string  false  "Hasta (RFC3339)"
// @Success      200  {array}   dto.MovementSummaryDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/movements/summary [get]
func (h *StockHandler) MovementSummary(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}

	fromPtr, err := parseTimeQuery(c, "from")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from debe ser RFC3339"})
	}
	toPtr, err := parseTimeQuery(c, "to")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to debe ser RFC3339"})
	}
	from := time.Time{}
	if fromPtr != nil {
		from = *fromPtr
	}
	to := time.Now().UTC()
	if toPtr != nil {
		to = *toPtr
	}

	summaries, err := h.query.MovementSummary(tenantID, c.Query("branch_id"), from, to)
	if err != nil {
		return mapStockError(c, err)
	}

	out := make([]dto.MovementSummaryDTO, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, dto.MovementSummaryDTO{
			Kind:     string(s.Kind),
			Entries:  s.Entries,
			TotalIn:  s.TotalIn,
			TotalOut: s.TotalOut,
			NetDelta: s.NetDelta,
		})
	}
	return c.JSON(out)
}

// Verify godoc
// @Summary      Verificar proyección contra ledger
// @Description  Compara la cantidad materializada en la proyección con la suma de deltas
//
//	del ledger para (sucursal, producto, lote) y reporta la deriva.
//
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        branch_id   query  string  true   "Sucursal (UUID)"
// @Param        product_id  query  string  true   "Producto (UUID)"
// @Param        batch_key   query  string  false  "Clave de lote normalizada"
// @Success      200  {object}  dto.DriftReportDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/verify [get]
func (h *StockHandler) Verify(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	branchID := c.Query("branch_id")
	productID := c.Query("product_id")
	if branchID == "" || productID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "branch_id y product_id son requeridos"})
	}

	report, err := h.query.VerifyProjection(tenantID, branchID, productID, entity.BatchKey{Number: c.Query("batch_key")})
	if err != nil {
		return mapStockError(c, err)
	}
	return c.JSON(dto.DriftReportDTO{
		LedgerQuantity:     report.LedgerQuantity,
		ProjectionQuantity: report.ProjectionQuantity,
		Drift:              report.Drift,
		InSync:             report.InSync,
	})
}

func toLedgerEntryDTO(e *entity.LedgerEntry) dto.LedgerEntryDTO {
	return dto.LedgerEntryDTO{
		ID:              e.ID,
		BranchID:        e.BranchID,
		ProductID:       e.ProductID,
		BatchKey:        e.BatchKey,
		Kind:            string(e.Kind),
		Delta:           e.Delta,
		QuantityBefore:  e.QuantityBefore,
		QuantityAfter:   e.QuantityAfter,
		SourceKind:      string(e.SourceKind),
		SourceReference: e.SourceReference,
		PerformedBy:     e.PerformedBy,
		PerformedAt:     e.PerformedAt,
	}
}

func parseTimeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// mapStockError traduce errores de dominio a respuestas HTTP.
func mapStockError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidDelta), errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrCrossTenant), errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente"})
	case errors.Is(err, domain.ErrInvalidState):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INVALID_STATE", Message: "estado inválido para la operación"})
	case errors.Is(err, domain.ErrLockTimeout):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "LOCK_TIMEOUT", Message: "recurso bloqueado, reintente"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}

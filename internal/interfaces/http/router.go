package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/Kardex-api/internal/application/ledger"
	"github.com/jhoicas/Kardex-api/internal/application/saleedit"
)

// Roles con permiso para decidir ediciones de venta.
const (
	RoleAdmin      = "admin"
	RoleSupervisor = "supervisor"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine     *ledger.Engine
	Query      *ledger.QueryUseCase
	SaleEditUC *saleedit.UseCase
	JWTSecret  string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Stock: mutaciones y consultas sobre el ledger (protegido)
	stock := protected.Group("/stock")
	stockHandler := NewStockHandler(deps.Engine, deps.Query)
	stock.Post("/mutations", stockHandler.RegisterMutation)
	stock.Get("/quantity-asof", stockHandler.QuantityAsOf)
	stock.Get("/movements", stockHandler.ListMovements)
	stock.Get("/movements/summary", stockHandler.MovementSummary)
	stock.Get("/verify", stockHandler.Verify)

	// Ediciones de venta maker-checker (protegido; la decisión exige rol aprobador)
	saleEdits := protected.Group("/sale-edits")
	saleEditHandler := NewSaleEditHandler(deps.SaleEditUC)
	saleEdits.Post("/", saleEditHandler.Create)
	saleEdits.Get("/pending", saleEditHandler.ListPending)
	saleEdits.Get("/pending/count", saleEditHandler.PendingCount)
	saleEdits.Post("/:id/decision", RequireRole(RoleAdmin, RoleSupervisor), saleEditHandler.Decide)
}

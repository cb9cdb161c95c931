// handlers/market_routes.go
package handlers

import (
	"mission-engine/middleware"
	"mission-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMarketRoutes(app *fiber.App, marketService *services.MarketService) {
	// Catalog is public (behind gateway auth); purchases need user context.
	app.Get("/market/items", marketService.GetItems)

	secured := app.Group("/", middleware.UserContextMiddleware())
	secured.Post("/market/items/:id/purchase", marketService.HandlePurchase)
}

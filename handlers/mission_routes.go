// handlers/mission_routes.go
package handlers

import (
	"mission-engine/middleware"
	"mission-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupMissionRoutes(
	app *fiber.App,
	catalog *services.CatalogService,
	verification *services.VerificationService,
	placement *services.PlacementService,
	ledger *services.LedgerService,
) {
	// 🔓 Public routes — *no user context*, but **still require Gateway auth**
	app.Get("/missions", catalog.GetMissions)
	app.Get("/missions/:id", catalog.GetMissionByID)

	// 🔐 Secured routes — require user context (wallet identity)
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Quiz / hunt verification
	secured.Post("/missions/:id/attempt", verification.HandleStartAttempt)
	secured.Post("/missions/:id/submit", verification.HandleSubmit)
	secured.Get("/missions/:id/lockout", verification.HandleLockout)

	// Placement puzzles
	secured.Post("/missions/:id/placement/start", placement.HandleStart)
	secured.Post("/placement/:session_id/drop", placement.HandleDrop)
	secured.Get("/placement/:session_id/score/stream", placement.StreamScoreSSE)

	// Share bonus
	secured.Post("/missions/:id/share", func(c *fiber.Ctx) error {
		wallet := c.Locals("user_id").(string)

		result, err := ledger.ShareCompletion(wallet, c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "share failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})
}

// handlers/progression_routes.go
package handlers

import (
	"mission-engine/middleware"
	"mission-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(
	app *fiber.App,
	profileService *services.ProfileService,
	leaderboardService *services.LeaderboardService,
	ledgerService *services.LedgerService,
) {
	// 🔐 Secured routes — require user context (wallet identity)
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/user/profile", profileService.GetProfile)
	secured.Patch("/user/profile", profileService.UpdateProfile)
	secured.Get("/leaderboard", leaderboardService.GetStandings)

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	adminGroup.Post("/points/grant", func(c *fiber.Ctx) error {
		type Req struct {
			Wallet string `json:"wallet" validate:"required"`
			Points int64  `json:"points" validate:"required,min=1"`
			Reason string `json:"reason" validate:"max=255"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		prof, err := ledgerService.GrantPoints(req.Wallet, req.Points, req.Reason)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "points grant failed",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"message": "points granted successfully",
			"wallet":  prof.Wallet,
			"points":  prof.Points,
		})
	})
}

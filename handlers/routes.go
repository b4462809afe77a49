package handlers

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the health check and the /api/v1 routes on app
func RegisterRoutes(app *fiber.App, offerings *OfferingHandler, refresh *RefreshHandler, performance *PerformanceHandler) {
	app.Get("/health", Health)

	api := app.Group("/api/v1")
	api.Get("/health", Health)

	// Offering routes
	api.Get("/offerings", offerings.GetOfferings)
	api.Get("/stats", offerings.GetStats)

	// Refresh routes
	api.Post("/refresh", refresh.TriggerRefresh)
	api.Get("/refresh/status", refresh.GetRefreshStatus)

	// Performance routes
	if performance != nil {
		api.Get("/metrics", performance.GetPerformanceMetrics)
		api.Get("/metrics/benchmark", performance.RunPerformanceTest)
	}
}

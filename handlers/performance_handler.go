package handlers

import (
	"time"

	"github.com/fenilmodi00/gmp-tracker/models"
	"github.com/fenilmodi00/gmp-tracker/services"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultBenchmarkIterations = 10
	maxBenchmarkIterations     = 200
)

type PerformanceHandler struct {
	Dashboard *services.DashboardService
	Status    StatusReporter
}

func NewPerformanceHandler(dashboard *services.DashboardService, status StatusReporter) *PerformanceHandler {
	return &PerformanceHandler{
		Dashboard: dashboard,
		Status:    status,
	}
}

// GetPerformanceMetrics returns gateway and parsing counters plus the timing of one default view
func (h *PerformanceHandler) GetPerformanceMetrics(c *fiber.Ctx) error {
	metrics := make(map[string]interface{})

	start := time.Now()
	view, err := h.Dashboard.BuildView(c.UserContext(), models.ViewQuery{})
	if err != nil {
		return respondWithError(c, err)
	}
	metrics["build_view"] = fiber.Map{
		"duration_ms": time.Since(start).Milliseconds(),
		"count":       view.MatchedCount,
		"snapshot_id": view.Snapshot.ID,
	}

	status := h.Status.Status()
	metrics["gateway"] = fiber.Map{
		"state":   status.State,
		"stale":   status.Stale,
		"service": status.Metrics,
		"http":    status.HTTP,
	}
	metrics["utility"] = h.Dashboard.Utility.GetServiceMetrics().GetSnapshot()

	return c.JSON(fiber.Map{
		"success": true,
		"data":    metrics,
	})
}

// RunPerformanceTest builds the default view repeatedly against the cached snapshot.
// The first iteration pays for the upstream fetch when no snapshot exists yet.
func (h *PerformanceHandler) RunPerformanceTest(c *fiber.Ctx) error {
	iterations := c.QueryInt("iterations", defaultBenchmarkIterations)
	if iterations <= 0 {
		iterations = defaultBenchmarkIterations
	}
	if iterations > maxBenchmarkIterations {
		iterations = maxBenchmarkIterations
	}

	query := models.ViewQuery{
		Search: c.Query("search"),
		SortBy: c.Query("sort_by"),
		Order:  c.Query("order"),
	}

	var firstDuration, totalDuration time.Duration
	for i := 0; i < iterations; i++ {
		start := time.Now()
		if _, err := h.Dashboard.BuildView(c.UserContext(), query); err != nil {
			return respondWithError(c, err)
		}
		elapsed := time.Since(start)
		if i == 0 {
			firstDuration = elapsed
		}
		totalDuration += elapsed
	}

	avgDuration := totalDuration / time.Duration(iterations)
	results := fiber.Map{
		"iterations":        iterations,
		"first_duration_ms": firstDuration.Milliseconds(),
		"total_duration_ms": totalDuration.Milliseconds(),
		"avg_duration_us":   avgDuration.Microseconds(),
	}
	if totalDuration > 0 {
		results["views_per_sec"] = float64(iterations) / totalDuration.Seconds()
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    results,
	})
}

package handlers

import (
	"time"

	"github.com/fenilmodi00/gmp-tracker/services"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// StatusReporter exposes gateway state for the status endpoint
type StatusReporter interface {
	Status() services.GatewayStatus
}

type RefreshHandler struct {
	Dashboard *services.DashboardService
	Status    StatusReporter
}

func NewRefreshHandler(dashboard *services.DashboardService, status StatusReporter) *RefreshHandler {
	return &RefreshHandler{
		Dashboard: dashboard,
		Status:    status,
	}
}

// TriggerRefresh forces an upstream fetch. A refresh already in flight yields 409.
func (h *RefreshHandler) TriggerRefresh(c *fiber.Ctx) error {
	startTime := time.Now()

	info, stats, err := h.Dashboard.Refresh(c.UserContext())
	if err != nil {
		return respondWithError(c, err)
	}

	logrus.WithFields(logrus.Fields{
		"component":    "RefreshHandler",
		"snapshot_id":  info.ID,
		"record_count": info.RecordCount,
		"duration":     time.Since(startTime),
	}).Info("Manual refresh completed")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Snapshot refreshed",
		"data": fiber.Map{
			"snapshot": info,
			"stats":    h.Dashboard.Formatter.FormatStats(stats),
		},
	})
}

// GetRefreshStatus reports the refresh state machine and snapshot metadata
func (h *RefreshHandler) GetRefreshStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.Status.Status(),
	})
}

// Health reports liveness; it never calls the upstream
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now(),
	})
}

package handlers

import (
	"errors"

	"github.com/fenilmodi00/gmp-tracker/models"
	"github.com/fenilmodi00/gmp-tracker/services"
	"github.com/fenilmodi00/gmp-tracker/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type OfferingHandler struct {
	Dashboard *services.DashboardService
}

func NewOfferingHandler(dashboard *services.DashboardService) *OfferingHandler {
	return &OfferingHandler{Dashboard: dashboard}
}

// GetOfferings returns the filtered, sorted offerings with stats over the whole snapshot
func (h *OfferingHandler) GetOfferings(c *fiber.Ctx) error {
	query := models.ViewQuery{
		Search: c.Query("search"),
		SortBy: c.Query("sort_by"),
		Order:  c.Query("order"),
	}

	view, err := h.Dashboard.BuildView(c.UserContext(), query)
	if err != nil {
		return respondWithError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    view,
	})
}

// GetStats returns derived stats for the current snapshot
func (h *OfferingHandler) GetStats(c *fiber.Ctx) error {
	info, stats, err := h.Dashboard.CurrentStats(c.UserContext())
	if err != nil {
		return respondWithError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"snapshot":  info,
			"stats":     h.Dashboard.Formatter.FormatStats(stats),
			"raw_stats": stats,
		},
	})
}

// respondWithError maps pipeline and gateway errors onto HTTP statuses
func respondWithError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal error"

	switch {
	case errors.Is(err, shared.ErrUnknownSortColumn), errors.Is(err, shared.ErrUnknownSortDirection):
		status = fiber.StatusBadRequest
		message = err.Error()
	case errors.Is(err, shared.ErrRefreshInProgress):
		status = fiber.StatusConflict
		message = "Refresh already in progress"
	case shared.IsGatewayError(err):
		status = fiber.StatusBadGateway
		message = "Failed to fetch GMP data"
	}

	logrus.WithFields(logrus.Fields{
		"component": "OfferingHandler",
		"path":      c.Path(),
		"status":    status,
	}).WithError(err).Warn("Request failed")

	body := fiber.Map{
		"success": false,
		"error":   message,
	}
	var serviceErr *shared.ServiceError
	if errors.As(err, &serviceErr) {
		body["code"] = serviceErr.Code
	}
	return c.Status(status).JSON(body)
}

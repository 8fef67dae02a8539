package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"docreview/internal/lifecycle"
	"docreview/internal/models"
)

// StatusCounter counts submissions by status.
type StatusCounter interface {
	CountByStatus(ctx context.Context, ownerID *uuid.UUID) (models.StatusCounts, error)
}

// DashboardHandler serves the dashboard summary and staff overview.
type DashboardHandler struct {
	engine  *lifecycle.Engine
	counter StatusCounter
}

// NewDashboardHandler creates a new API dashboard handler.
func NewDashboardHandler(engine *lifecycle.Engine, counter StatusCounter) *DashboardHandler {
	return &DashboardHandler{engine: engine, counter: counter}
}

// Summary returns the current user and submission counts. Students see their
// own counts; staff see totals across all owners.
func (h *DashboardHandler) Summary(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var owner *uuid.UUID
	if !user.IsStaff() {
		owner = &user.ID
	}

	counts, err := h.counter.CountByStatus(c.Context(), owner)
	if err != nil {
		slog.Error("failed to count submissions", "user_id", user.ID, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to load dashboard")
	}

	return jsonSuccess(c, models.DashboardSummary{
		User:   user.Summary(),
		Role:   user.Role,
		Counts: counts,
	})
}

// Submissions returns every submission for the staff dashboard.
func (h *DashboardHandler) Submissions(c fiber.Ctx) error {
	subs, err := h.engine.ListAll(c.Context())
	if err != nil {
		return lifecycleError(c, err)
	}
	return jsonSuccess(c, subs)
}

package api

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"docreview/internal/models"
)

// PreferenceStore persists notification preferences.
type PreferenceStore interface {
	UpdatePreferences(ctx context.Context, id uuid.UUID, prefs models.Preferences) (*models.User, error)
}

// PreferencesHandler lets a user read and change their notification opt-ins.
type PreferencesHandler struct {
	store PreferenceStore
}

// NewPreferencesHandler creates a new API preferences handler.
func NewPreferencesHandler(store PreferenceStore) *PreferencesHandler {
	return &PreferencesHandler{store: store}
}

func preferencesOf(u *models.User) models.Preferences {
	newSub, decision := u.NotifyOnNewSubmission, u.NotifyOnReviewDecision
	return models.Preferences{
		NotifyOnNewSubmission:  &newSub,
		NotifyOnReviewDecision: &decision,
	}
}

// Get returns the current user's preferences.
func (h *PreferencesHandler) Get(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return jsonSuccess(c, preferencesOf(user))
}

// Update applies the provided fields; omitted fields are left unchanged.
func (h *PreferencesHandler) Update(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var body models.Preferences
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if body.NotifyOnNewSubmission == nil && body.NotifyOnReviewDecision == nil {
		return jsonError(c, fiber.StatusBadRequest, "no preferences provided")
	}

	updated, err := h.store.UpdatePreferences(c.Context(), user.ID, body)
	if err != nil {
		slog.Error("failed to update preferences", "user_id", user.ID, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to update preferences")
	}

	return jsonSuccess(c, preferencesOf(updated))
}

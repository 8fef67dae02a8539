package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"docreview/internal/lifecycle"
	"docreview/internal/validation"
)

// ReviewHandler handles the reviewer queue and review decisions.
type ReviewHandler struct {
	engine *lifecycle.Engine
}

// NewReviewHandler creates a new API review handler.
func NewReviewHandler(engine *lifecycle.Engine) *ReviewHandler {
	return &ReviewHandler{engine: engine}
}

// Pending returns submissions awaiting review.
func (h *ReviewHandler) Pending(c fiber.Ctx) error {
	subs, err := h.engine.ListPending(c.Context())
	if err != nil {
		return lifecycleError(c, err)
	}
	return jsonSuccess(c, subs)
}

type reviewRequest struct {
	Approved *bool  `json:"approved" validate:"required"`
	Comments string `json:"comments" validate:"max=5000"`
}

// Create records an approve or reject decision on a submission.
func (h *ReviewHandler) Create(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	var body reviewRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(body); err != nil {
		return jsonValidationError(c, err)
	}

	result, err := h.engine.ApplyReview(c.Context(), id, user.ID, *body.Approved, body.Comments)
	if err != nil {
		return lifecycleError(c, err)
	}
	return jsonCreated(c, result)
}

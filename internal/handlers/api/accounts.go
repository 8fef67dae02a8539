package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"golang.org/x/crypto/bcrypt"

	"docreview/internal/config"
	"docreview/internal/db"
	"docreview/internal/middleware"
	"docreview/internal/models"
	"docreview/internal/validation"
)

// AccountStore creates and looks up accounts for password sign-in.
type AccountStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// AccountHandler handles self-registration and password sign-in.
type AccountHandler struct {
	store   AccountStore
	yamlCfg *config.YAMLConfig
}

// NewAccountHandler creates a new API account handler. yamlCfg may be nil.
func NewAccountHandler(store AccountStore, yamlCfg *config.YAMLConfig) *AccountHandler {
	return &AccountHandler{store: store, yamlCfg: yamlCfg}
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"notblank,max=100"`
	LastName  string `json:"last_name" validate:"notblank,max=100"`
}

// Register creates a student account and signs it in.
func (h *AccountHandler) Register(c fiber.Ctx) error {
	var body registerRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	body.Email = validation.NormalizeEmail(body.Email)
	if err := validation.Struct(body); err != nil {
		return jsonValidationError(c, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "registration failed")
	}

	onNew, onDecision := h.yamlCfg.NotifyDefaults()
	user := &models.User{
		Email:                  body.Email,
		FirstName:              body.FirstName,
		LastName:               body.LastName,
		Role:                   models.RoleStudent,
		PasswordHash:           string(hash),
		NotifyOnNewSubmission:  onNew,
		NotifyOnReviewDecision: onDecision,
	}
	if err := h.store.CreateUser(c.Context(), user); err != nil {
		if errors.Is(err, db.ErrDuplicateEmail) {
			return jsonError(c, fiber.StatusBadRequest, "A user with that email already exists.")
		}
		slog.Error("failed to register user", "email", body.Email, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "registration failed")
	}

	if err := middleware.SignIn(c, user.ID); err != nil {
		slog.Error("failed to start session", "user_id", user.ID, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "registration failed")
	}

	return jsonCreated(c, user)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login verifies the password and starts a session.
func (h *AccountHandler) Login(c fiber.Ctx) error {
	var body loginRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(body); err != nil {
		return jsonValidationError(c, err)
	}

	user, err := h.store.GetUserByEmail(c.Context(), validation.NormalizeEmail(body.Email))
	if err != nil {
		if !errors.Is(err, db.ErrUserNotFound) {
			slog.Error("failed to look up user", "error", err)
			return jsonError(c, fiber.StatusInternalServerError, "login failed")
		}
		return jsonError(c, fiber.StatusUnauthorized, "invalid email or password")
	}

	// SSO-only accounts have no password hash and never match.
	if user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)) != nil {
		return jsonError(c, fiber.StatusUnauthorized, "invalid email or password")
	}

	if err := middleware.SignIn(c, user.ID); err != nil {
		slog.Error("failed to start session", "user_id", user.ID, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "login failed")
	}

	return jsonSuccess(c, user)
}

// Logout ends the current session.
func (h *AccountHandler) Logout(c fiber.Ctx) error {
	if err := middleware.SignOut(c); err != nil {
		slog.Warn("failed to destroy session", "error", err)
	}
	return jsonSuccess(c, fiber.Map{"message": "logged out"})
}

// Me returns the signed-in user.
func (h *AccountHandler) Me(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return jsonSuccess(c, user)
}

package api

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"docreview/internal/db"
	"docreview/internal/models"
	"docreview/internal/validation"
)

const (
	tempPasswordLength  = 12
	tempPasswordCharset = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789!@#$%^&*"
)

// UserStore is the account storage used by admin endpoints.
type UserStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUserRole(ctx context.Context, id uuid.UUID, role models.Role) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// UserHandler handles user management operations via JSON API.
type UserHandler struct {
	store UserStore
}

// NewUserHandler creates a new API user handler.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// generateTempPassword returns a random password drawn from a charset
// without look-alike characters.
func generateTempPassword() (string, error) {
	buf := make([]byte, tempPasswordLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = tempPasswordCharset[int(b)%len(tempPasswordCharset)]
	}
	return string(buf), nil
}

// newTempPassword generates a temp password and its bcrypt hash.
func newTempPassword() (plain, hash string, err error) {
	plain, err = generateTempPassword()
	if err != nil {
		return "", "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return plain, string(hashed), nil
}

// List returns all users.
func (h *UserHandler) List(c fiber.Ctx) error {
	users, err := h.store.ListUsers(c.Context())
	if err != nil {
		slog.Error("failed to list users", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch users")
	}
	return jsonSuccess(c, users)
}

type createUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Role      string `json:"role" validate:"omitempty,role"`
}

// Create adds an account with a generated temporary password. The password
// is only ever returned in this response.
func (h *UserHandler) Create(c fiber.Ctx) error {
	var body createUserRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	body.Email = validation.NormalizeEmail(body.Email)
	if err := validation.Struct(body); err != nil {
		return jsonValidationError(c, err)
	}

	role := models.RoleStudent
	if body.Role != "" {
		role, _ = models.ParseRole(body.Role)
	}

	temp, hash, err := newTempPassword()
	if err != nil {
		slog.Error("failed to generate temp password", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to create user")
	}

	user := &models.User{
		Email:        body.Email,
		FirstName:    body.FirstName,
		LastName:     body.LastName,
		Role:         role,
		PasswordHash: hash,
	}
	if err := h.store.CreateUser(c.Context(), user); err != nil {
		if errors.Is(err, db.ErrDuplicateEmail) {
			return jsonError(c, fiber.StatusBadRequest, "A user with that email already exists.")
		}
		slog.Error("failed to create user", "email", body.Email, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to create user")
	}

	return jsonCreated(c, models.TempPasswordResponse{
		ID:           user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TempPassword: temp,
	})
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

// UpdateRole changes a user's role.
func (h *UserHandler) UpdateRole(c fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid user id")
	}

	var body updateRoleRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := validation.Struct(body); err != nil {
		return jsonValidationError(c, err)
	}
	role, _ := models.ParseRole(body.Role)

	if err := h.store.UpdateUserRole(c.Context(), userID, role); err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return jsonError(c, fiber.StatusNotFound, "user not found")
		}
		slog.Error("failed to update role", "user_id", userID, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to update role")
	}

	return jsonSuccess(c, fiber.Map{
		"id":   userID,
		"role": role,
	})
}

// ResetPassword replaces a user's password with a new temporary one.
func (h *UserHandler) ResetPassword(c fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid user id")
	}

	temp, hash, err := newTempPassword()
	if err != nil {
		slog.Error("failed to generate temp password", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to reset password")
	}

	if err := h.store.UpdatePasswordHash(c.Context(), userID, hash); err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return jsonError(c, fiber.StatusNotFound, "user not found")
		}
		slog.Error("failed to reset password", "user_id", userID, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to reset password")
	}

	return jsonSuccess(c, models.TempPasswordResponse{
		ID:           userID,
		TempPassword: temp,
	})
}

// Delete removes a user along with their submissions and reviews.
func (h *UserHandler) Delete(c fiber.Ctx) error {
	admin, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid user id")
	}

	if userID == admin.ID {
		return jsonError(c, fiber.StatusBadRequest, "You cannot delete your own account.")
	}

	if err := h.store.DeleteUser(c.Context(), userID); err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return jsonError(c, fiber.StatusNotFound, "user not found")
		}
		slog.Error("failed to delete user", "user_id", userID, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to delete user")
	}

	return jsonSuccess(c, fiber.Map{
		"id":      userID,
		"deleted": true,
	})
}

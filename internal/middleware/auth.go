package middleware

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"
	"github.com/google/uuid"

	"docreview/internal/models"
)

// SessionUserKey is the session key holding the signed-in user's id.
const SessionUserKey = "user_id"

// UserLoader loads the signed-in user on each request.
type UserLoader interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AuthMiddleware handles user authentication via sessions.
type AuthMiddleware struct {
	users UserLoader
}

// NewAuthMiddleware creates a new auth middleware instance.
func NewAuthMiddleware(users UserLoader) *AuthMiddleware {
	return &AuthMiddleware{users: users}
}

// RequireAuth ensures the user is authenticated, responding 401 if not.
func (m *AuthMiddleware) RequireAuth(c fiber.Ctx) error {
	user := m.loadUser(c)
	if user == nil {
		return deny(c, fiber.StatusUnauthorized, "authentication required")
	}
	c.Locals("user", user)
	return c.Next()
}

// OptionalAuth loads the user if authenticated, but doesn't require authentication.
func (m *AuthMiddleware) OptionalAuth(c fiber.Ctx) error {
	if user := m.loadUser(c); user != nil {
		c.Locals("user", user)
	}
	return c.Next()
}

func (m *AuthMiddleware) loadUser(c fiber.Ctx) *models.User {
	sess := session.FromContext(c)
	if sess == nil {
		return nil
	}

	raw, ok := sess.Get(SessionUserKey).(string)
	if !ok || raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		sess.Delete(SessionUserKey)
		return nil
	}

	user, err := m.users.GetUserByID(c.Context(), id)
	if err != nil {
		// Account removed or store unavailable; force a fresh login.
		sess.Destroy()
		return nil
	}
	return user
}

// RequireRole allows the request through when the current user's role passes
// allowed. It must run after RequireAuth.
func RequireRole(allowed func(models.Role) bool) fiber.Handler {
	return func(c fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return deny(c, fiber.StatusUnauthorized, "authentication required")
		}
		if !allowed(user.Role) {
			return deny(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

// CurrentUser returns the user loaded by RequireAuth or OptionalAuth.
func CurrentUser(c fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}

// SignIn stores the user's id in a fresh session.
func SignIn(c fiber.Ctx, userID uuid.UUID) error {
	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(SessionUserKey, userID.String())
	return nil
}

// SignOut destroys the current session.
func SignOut(c fiber.Ctx) error {
	sess := session.FromContext(c)
	if sess == nil {
		return nil
	}
	return sess.Destroy()
}

func deny(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}

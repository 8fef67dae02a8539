package server

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docreview/internal/config"
	"docreview/internal/db"
	"docreview/internal/handlers"
	"docreview/internal/handlers/api"
	"docreview/internal/lifecycle"
	"docreview/internal/middleware"
	"docreview/internal/models"
	"docreview/internal/storage"
)

// Deps are the services the HTTP routes are built on.
type Deps struct {
	DB      *db.DB
	Engine  *lifecycle.Engine
	Files   storage.Store
	YAMLCfg *config.YAMLConfig
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(ctx context.Context, deps Deps) error {
	authMiddleware := middleware.NewAuthMiddleware(deps.DB)
	requireAuth := authMiddleware.RequireAuth
	staffOnly := middleware.RequireRole(models.Role.IsStaff)
	adminOnly := middleware.RequireRole(models.Role.IsAdmin)
	canSubmit := middleware.RequireRole(models.Role.CanSubmit)

	indexHandler := handlers.NewIndexHandler(s.Cfg)
	accountHandler := api.NewAccountHandler(deps.DB, deps.YAMLCfg)
	submissionHandler := api.NewSubmissionHandler(deps.Engine, deps.Files)
	reviewHandler := api.NewReviewHandler(deps.Engine)
	dashboardHandler := api.NewDashboardHandler(deps.Engine, deps.DB)
	preferencesHandler := api.NewPreferencesHandler(deps.DB)
	userHandler := api.NewUserHandler(deps.DB)
	healthHandler := api.NewHealthHandler(deps.DB)

	// OIDC sign-in is optional; password accounts always work.
	if s.Cfg.IsOIDCEnabled() {
		authHandler, err := handlers.NewAuthHandler(ctx, s.Cfg, deps.DB)
		if err != nil {
			log.Printf("Warning: Failed to initialize OIDC auth: %v", err)
			log.Println("OIDC authentication is disabled.")
		} else {
			s.App.Get("/auth/login", authHandler.Login)
			s.App.Get("/auth/callback", authHandler.Callback)
			s.App.Get("/auth/logout", authHandler.Logout)
		}
	} else {
		log.Println("OIDC authentication is disabled. Set OIDC_ISSUER to enable.")
	}

	// Operational routes
	s.App.Get("/healthz", healthHandler.Check)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	apiGroup := s.App.Group("/api")
	apiGroup.Get("/", indexHandler.Routes)

	auth := apiGroup.Group("/auth")
	auth.Post("/register", accountHandler.Register)
	auth.Post("/login", accountHandler.Login)
	auth.Post("/logout", requireAuth, accountHandler.Logout)
	auth.Get("/me", requireAuth, accountHandler.Me)

	submissions := apiGroup.Group("/submissions", requireAuth)
	submissions.Post("/", canSubmit, submissionHandler.Create)
	submissions.Get("/my-submissions", submissionHandler.Mine)
	submissions.Get("/all", staffOnly, submissionHandler.All)
	submissions.Get("/:id", submissionHandler.Get)
	submissions.Get("/:id/attachments/:attachmentID", submissionHandler.Download)

	reviews := apiGroup.Group("/reviews", requireAuth, staffOnly)
	reviews.Get("/pending", reviewHandler.Pending)
	reviews.Post("/:id", reviewHandler.Create)

	dashboard := apiGroup.Group("/dashboard", requireAuth)
	dashboard.Get("/summary", dashboardHandler.Summary)
	dashboard.Get("/submissions", staffOnly, dashboardHandler.Submissions)

	users := apiGroup.Group("/users", requireAuth)
	users.Get("/preferences", preferencesHandler.Get)
	users.Patch("/preferences", preferencesHandler.Update)

	admin := apiGroup.Group("/admin", requireAuth, adminOnly)
	admin.Get("/users", userHandler.List)
	admin.Post("/users", userHandler.Create)
	admin.Patch("/users/:id/role", userHandler.UpdateRole)
	admin.Post("/users/:id/reset-password", userHandler.ResetPassword)
	admin.Delete("/users/:id", userHandler.Delete)

	return nil
}

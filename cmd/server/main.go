package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"docreview/internal/config"
	"docreview/internal/db"
	"docreview/internal/email"
	"docreview/internal/jobs"
	"docreview/internal/lifecycle"
	"docreview/internal/metrics"
	"docreview/internal/models"
	"docreview/internal/server"
	"docreview/internal/storage"
)

// defaultSeedUsers are created in development when config.yaml has none.
var defaultSeedUsers = []db.SeedUser{
	{Email: "teststudent@example.com", FirstName: "Test", LastName: "Student", Role: models.RoleStudent, Password: "test"},
	{Email: "testreviewer@example.com", FirstName: "Test", LastName: "Reviewer", Role: models.RoleReviewer, Password: "test"},
	{Email: "testadmin@example.com", FirstName: "Test", LastName: "Admin", Role: models.RoleAdmin, Password: "test"},
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	setupLogging(cfg)

	yamlCfg, err := config.LoadYAMLConfig()
	if err != nil {
		log.Fatalf("Failed to load config file: %v", err)
	}

	// Initialize database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")

	if cfg.IsDev() {
		seeds := seedUsersFrom(yamlCfg)
		if err := database.SeedUsers(ctx, seeds); err != nil {
			log.Fatalf("Failed to seed users: %v", err)
		}
		log.Printf("Seeded %d development users", len(seeds))
	}

	metrics.Init(database)

	files, err := storage.NewLocalDisk(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize upload storage: %v", err)
	}

	notifier := email.NewNotifier(cfg, email.NewSender(cfg), database)
	engine := lifecycle.NewEngine(database, database, notifier)

	sweeper := jobs.NewUploadSweeper(database, files, cfg.SweepInterval, cfg.SweepMinAge)
	go sweeper.Start(ctx)

	srv := server.New(cfg)
	if err := srv.RegisterRoutes(ctx, server.Deps{
		DB:      database,
		Engine:  engine,
		Files:   files,
		YAMLCfg: yamlCfg,
	}); err != nil {
		log.Fatalf("Failed to register routes: %v", err)
	}

	// Graceful shutdown
	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Server started on %s", cfg.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()
	if err := srv.Shutdown(); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	notifier.Wait()
	log.Println("Server exited")
}

// setupLogging installs the default slog handler: text in development, JSON elsewhere.
func setupLogging(cfg *config.Config) {
	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(handler))
}

// seedUsersFrom converts the YAML seed list, falling back to the built-in
// test accounts. Entries with an unknown role are skipped.
func seedUsersFrom(yamlCfg *config.YAMLConfig) []db.SeedUser {
	if yamlCfg == nil || len(yamlCfg.SeedUsers) == 0 {
		return defaultSeedUsers
	}

	seeds := make([]db.SeedUser, 0, len(yamlCfg.SeedUsers))
	for _, u := range yamlCfg.SeedUsers {
		role, err := models.ParseRole(u.Role)
		if err != nil {
			log.Printf("Warning: skipping seed user %s: %v", u.Email, err)
			continue
		}
		seeds = append(seeds, db.SeedUser{
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Role:      role,
			Password:  u.Password,
		})
	}
	return seeds
}

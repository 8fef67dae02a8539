// Package testutil provides test utilities and helpers.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"docreview/internal/db"
	"docreview/internal/models"
)

// TestDB creates a test database connection and returns a cleanup function.
// The test is skipped when TEST_DATABASE_URL is not set.
func TestDB(t *testing.T) (*db.DB, func()) {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	database, err := db.New(ctx, connString)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	if err := database.RunMigrations(connString); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	cleanupTestData(ctx, database.Pool)

	cleanup := func() {
		cleanupTestData(ctx, database.Pool)
		database.Close()
	}

	return database, cleanup
}

// cleanupTestData removes all test data from the database.
func cleanupTestData(ctx context.Context, pool *pgxpool.Pool) {
	// Delete in order to respect foreign keys
	pool.Exec(ctx, "DELETE FROM reviews")
	pool.Exec(ctx, "DELETE FROM attachments")
	pool.Exec(ctx, "DELETE FROM submissions")
	pool.Exec(ctx, "DELETE FROM users")
}

// CreateTestUser inserts a user with the given role and returns it.
func CreateTestUser(t *testing.T, database *db.DB, email string, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		Email:                  email,
		FirstName:              "Test",
		LastName:               string(role),
		Role:                   role,
		NotifyOnNewSubmission:  true,
		NotifyOnReviewDecision: true,
	}
	if err := database.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

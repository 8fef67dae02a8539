package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"docreview/internal/models"
)

const userColumns = `id, email, first_name, last_name, role, password_hash,
	notify_on_new_submission, notify_on_review_decision, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.PasswordHash,
		&user.NotifyOnNewSubmission,
		&user.NotifyOnReviewDecision,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func collectUsers(rows pgx.Rows) ([]models.User, error) {
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// CreateUser inserts a new user. ID and timestamps are set on the passed user.
func (d *DB) CreateUser(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleStudent
	}

	query := `
		INSERT INTO users (email, first_name, last_name, role, password_hash,
			notify_on_new_submission, notify_on_review_decision)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := d.Pool.QueryRow(ctx, query,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Role,
		user.PasswordHash,
		user.NotifyOnNewSubmission,
		user.NotifyOnReviewDecision,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if uniqueViolation(err, "users_email_key") {
		return ErrDuplicateEmail
	}
	return err
}

// UpsertUserByEmail creates a student account for a first-time SSO login or
// refreshes the names of an existing one. Role and password are never changed.
func (d *DB) UpsertUserByEmail(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, first_name, last_name, role)
		VALUES ($1, $2, $3, 'STUDENT')
		ON CONFLICT (email) DO UPDATE SET
			first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), users.first_name),
			last_name = COALESCE(NULLIF(EXCLUDED.last_name, ''), users.last_name),
			updated_at = NOW()
		RETURNING ` + userColumns

	fetched, err := scanUser(d.Pool.QueryRow(ctx, query, user.Email, user.FirstName, user.LastName))
	if err != nil {
		return err
	}
	*user = *fetched
	return nil
}

// GetUserByID retrieves a user by their UUID.
func (d *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(d.Pool.QueryRow(ctx, query, id))
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (d *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(d.Pool.QueryRow(ctx, query, strings.TrimSpace(email)))
}

// ListUsers returns every user ordered by creation time.
func (d *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, email`

	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

// FindUsers returns the users matching every non-zero field of the filter.
func (d *DB) FindUsers(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	var (
		conds []string
		args  []any
	)

	if len(filter.Roles) > 0 {
		roles := make([]string, len(filter.Roles))
		for i, r := range filter.Roles {
			roles[i] = string(r)
		}
		args = append(args, roles)
		conds = append(conds, fmt.Sprintf("role = ANY($%d)", len(args)))
	}
	if filter.NotifyOnNewSubmission != nil {
		args = append(args, *filter.NotifyOnNewSubmission)
		conds = append(conds, fmt.Sprintf("notify_on_new_submission = $%d", len(args)))
	}
	if filter.NotifyOnReviewDecision != nil {
		args = append(args, *filter.NotifyOnReviewDecision)
		conds = append(conds, fmt.Sprintf("notify_on_review_decision = $%d", len(args)))
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY email"

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

// UpdateUserRole changes a user's role.
func (d *DB) UpdateUserRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	result, err := d.Pool.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`,
		id, role,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePasswordHash replaces a user's stored password hash.
func (d *DB) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	result, err := d.Pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		id, hash,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePreferences applies the non-nil notification preferences and returns
// the updated user.
func (d *DB) UpdatePreferences(ctx context.Context, id uuid.UUID, prefs models.Preferences) (*models.User, error) {
	query := `
		UPDATE users SET
			notify_on_new_submission = COALESCE($2, notify_on_new_submission),
			notify_on_review_decision = COALESCE($3, notify_on_review_decision),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUser(d.Pool.QueryRow(ctx, query, id, prefs.NotifyOnNewSubmission, prefs.NotifyOnReviewDecision))
}

// DeleteUser removes a user. Their submissions, attachments and the reviews
// they wrote are removed by foreign key cascades.
func (d *DB) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result, err := d.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

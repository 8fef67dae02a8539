package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Domain-level database error sentinels.
var (
	// User errors
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("a user with that email already exists")

	// Submission errors
	ErrSubmissionNotFound      = errors.New("submission not found")
	ErrPendingSubmissionExists = errors.New("you already have a submission under review")
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// uniqueViolation reports whether err is a unique violation on the named
// constraint or index. An empty name matches any unique violation.
func uniqueViolation(err error, name string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return name == "" || pgErr.ConstraintName == name
}

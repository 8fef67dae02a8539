package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"docreview/internal/models"
)

// DecideFunc inspects the locked submission's current status and returns the
// status to store with the new review. Returning an error aborts the review
// and nothing is written.
type DecideFunc func(current models.Status) (models.Status, error)

// AppendReview records a review and updates the submission status in one
// transaction. The submission row is locked for the duration so concurrent
// reviews observe each other's committed status. review.ID and
// review.ReviewedAt are set on success; the updated submission is returned.
func (d *DB) AppendReview(ctx context.Context, review *models.Review, decide DecideFunc) (*models.Submission, error) {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	sub, err := appendReview(ctx, tx, review, decide)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return sub, nil
}

// appendReview does the work of AppendReview inside tx. The submission is
// read back before commit so a stored decision always has a result.
func appendReview(ctx context.Context, tx pgx.Tx, review *models.Review, decide DecideFunc) (*models.Submission, error) {
	var current models.Status
	err := tx.QueryRow(ctx,
		`SELECT status FROM submissions WHERE id = $1 FOR UPDATE`,
		review.SubmissionID,
	).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}

	next, err := decide(current)
	if err != nil {
		return nil, err
	}

	// clock_timestamp, not NOW: reviews are ordered by when the lock was
	// held, not by when the transaction began.
	err = tx.QueryRow(ctx, `
		INSERT INTO reviews (submission_id, reviewer_id, approved, comments, reviewed_at)
		VALUES ($1, $2, $3, $4, clock_timestamp())
		RETURNING id, reviewed_at
	`, review.SubmissionID, review.ReviewerID, review.Approved, review.Comments).Scan(&review.ID, &review.ReviewedAt)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE submissions SET status = $2 WHERE id = $1`,
		review.SubmissionID, next,
	); err != nil {
		return nil, err
	}

	return getSubmission(ctx, tx, review.SubmissionID)
}

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

// pendingIndex is the partial unique index allowing one PENDING submission per owner.
const pendingIndex = "submissions_one_pending_per_owner"

const submissionColumns = `s.id, s.title, s.owner_id, s.status, s.created_at,
	u.email, u.first_name, u.last_name`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var (
		sub   models.Submission
		owner models.UserSummary
	)
	err := row.Scan(
		&sub.ID,
		&sub.Title,
		&sub.OwnerID,
		&sub.Status,
		&sub.CreatedAt,
		&owner.Email,
		&owner.FirstName,
		&owner.LastName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	owner.ID = sub.OwnerID
	sub.Owner = &owner
	sub.Attachments = []models.Attachment{}
	return &sub, nil
}

// HasPendingSubmission reports whether the owner has a submission awaiting review.
func (d *DB) HasPendingSubmission(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	var exists bool
	err := d.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM submissions WHERE owner_id = $1 AND status = 'PENDING')`,
		ownerID,
	).Scan(&exists)
	return exists, err
}

// CreateSubmission inserts a PENDING submission and its attachments in one
// transaction. ID, status, timestamps and attachments are set on sub.
func (d *DB) CreateSubmission(ctx context.Context, sub *models.Submission, refs []models.AttachmentRef) error {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO submissions (title, owner_id, status)
		VALUES ($1, $2, 'PENDING')
		RETURNING id, status, created_at
	`, sub.Title, sub.OwnerID).Scan(&sub.ID, &sub.Status, &sub.CreatedAt)
	if uniqueViolation(err, pendingIndex) {
		return ErrPendingSubmissionExists
	}
	if err != nil {
		return err
	}

	sub.Attachments = make([]models.Attachment, 0, len(refs))
	for i, ref := range refs {
		a := models.Attachment{
			SubmissionID: sub.ID,
			Filename:     ref.Filename,
			OriginalName: ref.OriginalName,
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO attachments (submission_id, position, filename, original_name)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, sub.ID, i, ref.Filename, ref.OriginalName).Scan(&a.ID)
		if err != nil {
			return err
		}
		sub.Attachments = append(sub.Attachments, a)
	}

	return tx.Commit(ctx)
}

// GetSubmission retrieves a submission with its owner, attachments and full
// review history.
func (d *DB) GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	return getSubmission(ctx, d.Pool, id)
}

func getSubmission(ctx context.Context, q querier, id uuid.UUID) (*models.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions s
		JOIN users u ON u.id = s.owner_id
		WHERE s.id = $1
	`

	sub, err := scanSubmission(q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	subs := []models.Submission{*sub}
	if err := loadDetails(ctx, q, subs); err != nil {
		return nil, err
	}
	return &subs[0], nil
}

// SubmissionFilter narrows ListSubmissions. Zero values do not filter.
type SubmissionFilter struct {
	OwnerID *uuid.UUID
	Status  *models.Status
}

// ListSubmissions returns submissions newest first with owner, attachments
// and reviews populated.
func (d *DB) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	var (
		conds []string
		args  []any
	)
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		conds = append(conds, fmt.Sprintf("s.owner_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("s.status = $%d", len(args)))
	}

	query := `
		SELECT ` + submissionColumns + `
		FROM submissions s
		JOIN users u ON u.id = s.owner_id
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY s.created_at DESC, s.id"

	rows, err := d.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []models.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := loadDetails(ctx, d.Pool, subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// ListSubmissionsByOwner returns an owner's submissions newest first.
func (d *DB) ListSubmissionsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Submission, error) {
	return d.ListSubmissions(ctx, SubmissionFilter{OwnerID: &ownerID})
}

// ListAllSubmissions returns every submission newest first.
func (d *DB) ListAllSubmissions(ctx context.Context) ([]models.Submission, error) {
	return d.ListSubmissions(ctx, SubmissionFilter{})
}

// ListPendingSubmissions returns submissions awaiting review newest first.
func (d *DB) ListPendingSubmissions(ctx context.Context) ([]models.Submission, error) {
	status := models.StatusPending
	return d.ListSubmissions(ctx, SubmissionFilter{Status: &status})
}

// loadDetails fills attachments and reviews for the given submissions with
// one query each.
func loadDetails(ctx context.Context, q querier, subs []models.Submission) error {
	if len(subs) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(subs))
	index := make(map[uuid.UUID]int, len(subs))
	for i, s := range subs {
		ids[i] = s.ID
		index[s.ID] = i
	}

	rows, err := q.Query(ctx, `
		SELECT id, submission_id, filename, original_name
		FROM attachments
		WHERE submission_id = ANY($1)
		ORDER BY submission_id, position
	`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.SubmissionID, &a.Filename, &a.OriginalName); err != nil {
			rows.Close()
			return err
		}
		i := index[a.SubmissionID]
		subs[i].Attachments = append(subs[i].Attachments, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.Query(ctx, `
		SELECT id, submission_id, reviewer_id, approved, comments, reviewed_at
		FROM reviews
		WHERE submission_id = ANY($1)
		ORDER BY submission_id, reviewed_at, id
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.SubmissionID, &r.ReviewerID, &r.Approved, &r.Comments, &r.ReviewedAt); err != nil {
			return err
		}
		i := index[r.SubmissionID]
		subs[i].Reviews = append(subs[i].Reviews, r)
	}
	return rows.Err()
}

// CountByStatus counts submissions per status, limited to one owner when
// ownerID is non-nil.
func (d *DB) CountByStatus(ctx context.Context, ownerID *uuid.UUID) (models.StatusCounts, error) {
	var counts models.StatusCounts

	rows, err := d.Pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM submissions
		WHERE $1::uuid IS NULL OR owner_id = $1
		GROUP BY status
	`, ownerID)
	if err != nil {
		return counts, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status models.Status
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return counts, err
		}
		switch status {
		case models.StatusPending:
			counts.Pending = n
		case models.StatusApproved:
			counts.Approved = n
		case models.StatusRejected:
			counts.Rejected = n
		}
	}
	return counts, rows.Err()
}

// AttachmentFilenames returns the storage keys of every persisted attachment.
func (d *DB) AttachmentFilenames(ctx context.Context) (map[string]struct{}, error) {
	rows, err := d.Pool.Query(ctx, `SELECT filename FROM attachments`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = struct{}{}
	}
	return names, rows.Err()
}

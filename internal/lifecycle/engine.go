// Package lifecycle owns the submission state machine: who may submit, when a
// review may be recorded, and which status a review decision produces.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"docreview/internal/db"
	"docreview/internal/metrics"
	"docreview/internal/models"
)

// Client-facing messages for the two lifecycle conflicts.
const (
	MsgPendingExists   = "You already have a submission under review."
	MsgAlreadyApproved = "Submission already approved. No further reviews allowed."
)

// Store persists submissions, their attachments and reviews.
type Store interface {
	HasPendingSubmission(ctx context.Context, ownerID uuid.UUID) (bool, error)
	CreateSubmission(ctx context.Context, sub *models.Submission, refs []models.AttachmentRef) error
	GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	ListSubmissionsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Submission, error)
	ListAllSubmissions(ctx context.Context) ([]models.Submission, error)
	ListPendingSubmissions(ctx context.Context) ([]models.Submission, error)
	AppendReview(ctx context.Context, review *models.Review, decide db.DecideFunc) (*models.Submission, error)
}

// UserDirectory resolves user ids.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Notifier receives lifecycle events. Implementations must not block.
type Notifier interface {
	SubmissionCreated(ctx context.Context, sub *models.Submission, owner *models.User)
	ReviewDecided(ctx context.Context, sub *models.Submission, owner *models.User, review *models.Review)
}

// Transition returns the status produced by a review decision.
func Transition(approved bool) models.Status {
	if approved {
		return models.StatusApproved
	}
	return models.StatusRejected
}

// Engine applies submission lifecycle rules on top of a Store.
type Engine struct {
	store    Store
	users    UserDirectory
	notifier Notifier
}

// NewEngine creates a lifecycle engine. A nil notifier disables notifications.
func NewEngine(store Store, users UserDirectory, notifier Notifier) *Engine {
	return &Engine{store: store, users: users, notifier: notifier}
}

// CreateSubmission validates and stores a new PENDING submission for owner.
func (e *Engine) CreateSubmission(ctx context.Context, ownerID uuid.UUID, title string, refs []models.AttachmentRef) (*models.Submission, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationError("title is required")
	}
	if len(refs) == 0 {
		return nil, validationError("at least one document is required")
	}
	for _, ref := range refs {
		if strings.TrimSpace(ref.Filename) == "" {
			return nil, validationError("attachment filename is required")
		}
	}

	owner, err := e.users.GetUserByID(ctx, ownerID)
	if errors.Is(err, db.ErrUserNotFound) {
		return nil, notFoundError("user not found", err)
	}
	if err != nil {
		return nil, internalError("get owner", err)
	}
	if !owner.Role.CanSubmit() {
		return nil, forbiddenError("only students and admins can submit documents")
	}

	pending, err := e.store.HasPendingSubmission(ctx, ownerID)
	if err != nil {
		return nil, internalError("check pending", err)
	}
	if pending {
		return nil, conflictError(MsgPendingExists, db.ErrPendingSubmissionExists)
	}

	sub := &models.Submission{Title: title, OwnerID: ownerID}
	err = e.store.CreateSubmission(ctx, sub, refs)
	if errors.Is(err, db.ErrPendingSubmissionExists) {
		return nil, conflictError(MsgPendingExists, err)
	}
	if err != nil {
		return nil, internalError("create submission", err)
	}

	if sub.Owner == nil {
		summary := owner.Summary()
		sub.Owner = &summary
	}

	if e.notifier != nil {
		e.notifier.SubmissionCreated(ctx, sub, owner)
	}

	return sub, nil
}

// ApplyReview records a reviewer's decision and moves the submission to the
// resulting status. Approved submissions accept no further reviews.
func (e *Engine) ApplyReview(ctx context.Context, submissionID, reviewerID uuid.UUID, approved bool, comments string) (*models.ReviewResult, error) {
	reviewer, err := e.users.GetUserByID(ctx, reviewerID)
	if errors.Is(err, db.ErrUserNotFound) {
		return nil, notFoundError("reviewer not found", err)
	}
	if err != nil {
		return nil, internalError("get reviewer", err)
	}
	if !reviewer.Role.CanReview() {
		return nil, forbiddenError("only reviewers and admins can review submissions")
	}

	review := &models.Review{
		SubmissionID: submissionID,
		ReviewerID:   reviewerID,
		Approved:     approved,
	}
	if c := strings.TrimSpace(comments); c != "" {
		review.Comments = &c
	}

	sub, err := e.store.AppendReview(ctx, review, func(current models.Status) (models.Status, error) {
		if current.IsTerminal() {
			return "", conflictError(MsgAlreadyApproved, nil)
		}
		return Transition(approved), nil
	})
	if err != nil {
		var le *Error
		switch {
		case errors.As(err, &le):
			return nil, err
		case errors.Is(err, db.ErrSubmissionNotFound):
			return nil, notFoundError("submission not found", err)
		default:
			return nil, internalError("append review", err)
		}
	}

	metrics.RecordReview(sub.Status)

	// The stored history is authoritative; sub.Status follows its latest entry.
	latest := sub.LatestReview()
	if latest == nil {
		latest = review
	}

	if e.notifier != nil {
		owner, err := e.users.GetUserByID(ctx, sub.OwnerID)
		if err != nil {
			slog.Error("failed to load submission owner for notification", "submission_id", sub.ID, "error", err)
		} else {
			e.notifier.ReviewDecided(ctx, sub, owner, latest)
		}
	}

	return &models.ReviewResult{
		SubmissionID: sub.ID,
		ReviewID:     latest.ID,
		Status:       sub.Status,
		Message:      "Review recorded.",
	}, nil
}

// ListForOwner returns the owner's submissions with reviews, newest first.
func (e *Engine) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Submission, error) {
	subs, err := e.store.ListSubmissionsByOwner(ctx, ownerID)
	if err != nil {
		return nil, internalError("list owner submissions", err)
	}
	return subs, nil
}

// ListAll returns every submission with owner summary and reviews, newest first.
func (e *Engine) ListAll(ctx context.Context) ([]models.Submission, error) {
	subs, err := e.store.ListAllSubmissions(ctx)
	if err != nil {
		return nil, internalError("list submissions", err)
	}
	return subs, nil
}

// ListPending returns submissions awaiting review, newest first.
func (e *Engine) ListPending(ctx context.Context) ([]models.Submission, error) {
	subs, err := e.store.ListPendingSubmissions(ctx)
	if err != nil {
		return nil, internalError("list pending submissions", err)
	}
	return subs, nil
}

// GetByID returns one submission with its full review history. Students may
// only read their own submissions; staff may read any.
func (e *Engine) GetByID(ctx context.Context, submissionID uuid.UUID, requester *models.User) (*models.Submission, error) {
	sub, err := e.store.GetSubmission(ctx, submissionID)
	if errors.Is(err, db.ErrSubmissionNotFound) {
		return nil, notFoundError("submission not found", err)
	}
	if err != nil {
		return nil, internalError("get submission", err)
	}

	if requester == nil || (!requester.Role.IsStaff() && sub.OwnerID != requester.ID) {
		return nil, forbiddenError("you do not have access to this submission")
	}

	return sub, nil
}

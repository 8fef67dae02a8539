package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the review state of a submission.
type Status string

// Status constants
const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// IsTerminal reports whether no further reviews may be recorded.
// Only APPROVED is terminal; a rejected submission can still be approved.
func (s Status) IsTerminal() bool { return s == StatusApproved }

// Submission is a document set handed in by its owner for review.
type Submission struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	OwnerID     uuid.UUID    `json:"owner_id"`
	Status      Status       `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	Attachments []Attachment `json:"attachments"`

	// Populated by listing queries
	Reviews []Review     `json:"reviews,omitempty"`
	Owner   *UserSummary `json:"owner,omitempty"`
}

// LatestReview returns the most recently recorded review, or nil.
func (s *Submission) LatestReview() *Review {
	var latest *Review
	for i := range s.Reviews {
		if latest == nil || s.Reviews[i].ReviewedAt.After(latest.ReviewedAt) {
			latest = &s.Reviews[i]
		}
	}
	return latest
}

// AttachmentNames returns the display names of all attachments in order.
func (s *Submission) AttachmentNames() []string {
	names := make([]string, len(s.Attachments))
	for i, a := range s.Attachments {
		names[i] = a.OriginalName
	}
	return names
}

// AttachmentRef is an opaque reference to a stored file.
type AttachmentRef struct {
	Filename     string `json:"filename"`      // storage key
	OriginalName string `json:"original_name"` // display name
}

// Attachment is a file reference persisted with a submission.
type Attachment struct {
	ID           uuid.UUID `json:"id"`
	SubmissionID uuid.UUID `json:"submission_id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
}

// Review is an append-only decision on a submission.
type Review struct {
	ID           uuid.UUID `json:"id"`
	SubmissionID uuid.UUID `json:"submission_id"`
	ReviewerID   uuid.UUID `json:"reviewer_id"`
	Approved     bool      `json:"approved"`
	Comments     *string   `json:"comments"`
	ReviewedAt   time.Time `json:"reviewed_at"`
}

// StatusCounts is the number of submissions per status.
type StatusCounts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// Total returns the sum across all statuses.
func (c StatusCounts) Total() int {
	return c.Pending + c.Approved + c.Rejected
}

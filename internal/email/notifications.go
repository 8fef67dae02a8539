package email

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"docreview/internal/config"
	"docreview/internal/metrics"
	"docreview/internal/models"
)

// Notification event names used in logs and metrics.
const (
	EventSubmissionCreated = "submission_created"
	EventReviewDecided     = "review_decided"
)

// sendTimeout bounds a single background dispatch.
const sendTimeout = 30 * time.Second

// RecipientLookup finds the users to notify.
type RecipientLookup interface {
	FindUsers(ctx context.Context, filter models.UserFilter) ([]models.User, error)
}

// Notifier sends email notifications for submission events. Every method
// returns immediately; delivery happens on a background goroutine and
// failures are only logged.
type Notifier struct {
	sender    Sender
	templates *Templates
	users     RecipientLookup
	wg        sync.WaitGroup
}

// NewNotifier creates a new email notifier.
func NewNotifier(cfg *config.Config, sender Sender, users RecipientLookup) *Notifier {
	if sender == nil {
		sender = NopSender{}
	}
	return &Notifier{
		sender:    sender,
		templates: NewTemplates(cfg),
		users:     users,
	}
}

// SubmissionCreated tells every opted-in reviewer and admin about a new submission.
func (n *Notifier) SubmissionCreated(ctx context.Context, sub *models.Submission, owner *models.User) {
	n.dispatch(ctx, EventSubmissionCreated, func(ctx context.Context) ([]string, string, string, string, error) {
		notify := true
		staff, err := n.users.FindUsers(ctx, models.UserFilter{
			Roles:                 []models.Role{models.RoleReviewer, models.RoleAdmin},
			NotifyOnNewSubmission: &notify,
		})
		if err != nil {
			return nil, "", "", "", err
		}

		to := make([]string, 0, len(staff))
		for _, u := range staff {
			if u.Email != "" {
				to = append(to, u.Email)
			}
		}

		subject, htmlBody, textBody := n.templates.SubmissionCreated(sub, owner)
		return to, subject, htmlBody, textBody, nil
	})
}

// ReviewDecided tells the owner about a review decision if they opted in.
func (n *Notifier) ReviewDecided(ctx context.Context, sub *models.Submission, owner *models.User, review *models.Review) {
	if !owner.NotifyOnReviewDecision || owner.Email == "" {
		metrics.RecordNotification(EventReviewDecided, "skipped")
		return
	}
	n.dispatch(ctx, EventReviewDecided, func(context.Context) ([]string, string, string, string, error) {
		subject, htmlBody, textBody := n.templates.ReviewDecided(sub, review)
		return []string{owner.Email}, subject, htmlBody, textBody, nil
	})
}

// Wait blocks until all in-flight notifications have finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

type buildFunc func(ctx context.Context) (to []string, subject, htmlBody, textBody string, err error)

// dispatch runs build and send on a goroutine whose context outlives the request.
func (n *Notifier) dispatch(ctx context.Context, event string, build buildFunc) {
	ctx = context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()

		to, subject, htmlBody, textBody, err := build(ctx)
		if err != nil {
			slog.Error("failed to prepare notification", "event", event, "error", err)
			metrics.RecordNotification(event, "failed")
			return
		}
		if len(to) == 0 {
			slog.Debug("no recipients for notification", "event", event)
			metrics.RecordNotification(event, "skipped")
			return
		}

		// One message per recipient so addresses are not disclosed to each other.
		failed := 0
		for _, addr := range to {
			if err := n.sender.Send([]string{addr}, subject, htmlBody, textBody); err != nil {
				slog.Error("failed to send notification", "event", event, "recipient", addr, "error", err)
				metrics.RecordNotification(event, "failed")
				failed++
				continue
			}
			metrics.RecordNotification(event, "sent")
		}
		slog.Info("notification sent", "event", event, "recipients", len(to)-failed, "failed", failed, "subject", subject)
	}()
}

package email

import (
	"fmt"
	"html"
	"strings"
	"time"

	"docreview/internal/config"
	"docreview/internal/models"
)

// Templates provides email template generation.
type Templates struct {
	cfg *config.Config
}

// NewTemplates creates a new templates instance.
func NewTemplates(cfg *config.Config) *Templates {
	return &Templates{cfg: cfg}
}

// baseHTML wraps content in a consistent HTML email template.
func (t *Templates) baseHTML(title, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #0f766e; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
        .header h1 { margin: 0; font-size: 22px; }
        .content { background: #f9fafb; padding: 20px; border: 1px solid #e5e7eb; }
        .footer { background: #f3f4f6; padding: 15px; text-align: center; font-size: 12px; color: #6b7280; border-radius: 0 0 8px 8px; border: 1px solid #e5e7eb; border-top: none; }
        .info-box { background: white; border: 1px solid #e5e7eb; border-radius: 6px; padding: 15px; margin: 15px 0; }
        .label { font-weight: 600; color: #374151; }
        .approved { color: #059669; }
        .rejected { color: #dc2626; }
        ul { margin: 4px 0; padding-left: 20px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>%s</h1>
    </div>
    <div class="content">
        %s
    </div>
    <div class="footer">
        <p>This email was sent by %s</p>
        <p><a href="%s">%s</a></p>
    </div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(title), content, html.EscapeString(t.cfg.SiteTitle), t.cfg.BaseURL, t.cfg.BaseURL)
}

func (t *Templates) footerText() string {
	return fmt.Sprintf("--\n%s\n%s", t.cfg.SiteTitle, t.cfg.BaseURL)
}

// SubmissionCreated generates the email sent to staff when a submission awaits review.
func (t *Templates) SubmissionCreated(sub *models.Submission, owner *models.User) (subject, htmlBody, textBody string) {
	subject = fmt.Sprintf("[New Submission] %s", sub.Title)
	submitted := sub.CreatedAt.Format(time.RFC1123)
	names := sub.AttachmentNames()

	var items strings.Builder
	for _, n := range names {
		items.WriteString("<li>" + html.EscapeString(n) + "</li>")
	}

	content := fmt.Sprintf(`
        <p>A new submission is waiting for review.</p>

        <div class="info-box">
            <p><span class="label">Title:</span> %s</p>
            <p><span class="label">Submitted by:</span> %s (%s)</p>
            <p><span class="label">Submitted at:</span> %s</p>
            <p><span class="label">Documents:</span></p>
            <ul>%s</ul>
        </div>
    `,
		html.EscapeString(sub.Title),
		html.EscapeString(owner.DisplayName()),
		html.EscapeString(owner.Email),
		submitted,
		items.String(),
	)

	htmlBody = t.baseHTML(subject, content)

	textBody = fmt.Sprintf(`New submission awaiting review

Title: %s
Submitted by: %s (%s)
Submitted at: %s
Documents: %s

%s`,
		sub.Title,
		owner.DisplayName(),
		owner.Email,
		submitted,
		strings.Join(names, ", "),
		t.footerText(),
	)

	return subject, htmlBody, textBody
}

// ReviewDecided generates the email sent to the owner when a review is recorded.
func (t *Templates) ReviewDecided(sub *models.Submission, review *models.Review) (subject, htmlBody, textBody string) {
	outcome, class := "Rejected", "rejected"
	if review.Approved {
		outcome, class = "Approved", "approved"
	}
	subject = fmt.Sprintf("[Submission %s] %s", outcome, sub.Title)

	comments := "No comments provided."
	if review.Comments != nil && strings.TrimSpace(*review.Comments) != "" {
		comments = *review.Comments
	}

	content := fmt.Sprintf(`
        <p>Your submission has been reviewed.</p>

        <div class="info-box">
            <p><span class="label">Title:</span> %s</p>
            <p><span class="label">Status:</span> <span class="%s">%s</span></p>
            <p><span class="label">Comments:</span> %s</p>
        </div>
    `,
		html.EscapeString(sub.Title),
		class,
		html.EscapeString(string(sub.Status)),
		html.EscapeString(comments),
	)

	htmlBody = t.baseHTML(subject, content)

	textBody = fmt.Sprintf(`Your submission has been reviewed

Title: %s
Status: %s
Comments: %s

%s`,
		sub.Title,
		sub.Status,
		comments,
		t.footerText(),
	)

	return subject, htmlBody, textBody
}

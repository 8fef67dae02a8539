package models

import "github.com/google/uuid"

// ReviewResult confirms a recorded review and the submission's resulting status.
type ReviewResult struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	ReviewID     uuid.UUID `json:"review_id"`
	Status       Status    `json:"status"`
	Message      string    `json:"message"`
}

// DashboardSummary is the lightweight identity + counts payload for the dashboard.
type DashboardSummary struct {
	User   UserSummary  `json:"user"`
	Role   Role         `json:"role"`
	Counts StatusCounts `json:"counts"`
}

// TempPasswordResponse is returned once when an admin creates or resets an account.
type TempPasswordResponse struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email,omitempty"`
	Role         Role      `json:"role,omitempty"`
	TempPassword string    `json:"temp_password"`
}

package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is one of the closed set of account roles.
type Role string

// Role constants
const (
	RoleStudent  Role = "STUDENT"
	RoleReviewer Role = "REVIEWER"
	RoleAdmin    Role = "ADMIN"
)

// Roles lists every valid role.
var Roles = []Role{RoleStudent, RoleReviewer, RoleAdmin}

var ErrInvalidRole = errors.New("invalid role; use ADMIN, REVIEWER, or STUDENT")

// ParseRole converts a string into a Role. Matching is case-insensitive.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, valid := range Roles {
		if r == valid {
			return r, nil
		}
	}
	return "", ErrInvalidRole
}

// IsStudent returns true for the student role.
func (r Role) IsStudent() bool { return r == RoleStudent }

// IsAdmin returns true for the admin role.
func (r Role) IsAdmin() bool { return r == RoleAdmin }

// IsStaff returns true for roles that can review (reviewer or admin).
func (r Role) IsStaff() bool { return r == RoleReviewer || r == RoleAdmin }

// CanSubmit returns true for roles allowed to create submissions.
func (r Role) CanSubmit() bool { return r == RoleStudent || r == RoleAdmin }

// CanReview returns true for roles allowed to record review decisions.
func (r Role) CanReview() bool { return r.IsStaff() }

// User represents an account.
type User struct {
	ID                     uuid.UUID `json:"id"`
	Email                  string    `json:"email"`
	FirstName              string    `json:"first_name"`
	LastName               string    `json:"last_name"`
	Role                   Role      `json:"role"`
	PasswordHash           string    `json:"-"`
	NotifyOnNewSubmission  bool      `json:"notify_on_new_submission"`
	NotifyOnReviewDecision bool      `json:"notify_on_review_decision"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// IsStudent returns true if the user has the student role.
func (u *User) IsStudent() bool { return u.Role.IsStudent() }

// IsStaff returns true if the user is a reviewer or admin.
func (u *User) IsStaff() bool { return u.Role.IsStaff() }

// IsAdmin returns true if the user is an admin.
func (u *User) IsAdmin() bool { return u.Role.IsAdmin() }

// DisplayName returns "First Last", falling back to the email address.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Summary returns the public subset of the user shown next to submissions.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// UserSummary is the owner information attached to staff listings.
type UserSummary struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
}

// UserFilter narrows FindUsers. Zero values do not filter.
type UserFilter struct {
	Roles                  []Role
	NotifyOnNewSubmission  *bool
	NotifyOnReviewDecision *bool
}

// Preferences holds the notification opt-ins a user can change for themselves.
type Preferences struct {
	NotifyOnNewSubmission  *bool `json:"notify_on_new_submission"`
	NotifyOnReviewDecision *bool `json:"notify_on_review_decision"`
}

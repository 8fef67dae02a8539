package testutil

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docreview/internal/db"
	"docreview/internal/models"
)

// MemStore is an in-memory stand-in for *db.DB. It returns the same sentinel
// errors and enforces the same uniqueness rules.
type MemStore struct {
	mu          sync.Mutex
	users       map[uuid.UUID]*models.User
	submissions map[uuid.UUID]*models.Submission
	clock       time.Time

	// Err, when set, is returned by every method.
	Err error
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		users:       make(map[uuid.UUID]*models.User),
		submissions: make(map[uuid.UUID]*models.Submission),
		clock:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so newest-first ordering is stable.
func (m *MemStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// AddUser stores a copy of u with defaults applied and returns the stored copy.
func (m *MemStore) AddUser(u models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = models.RoleStudent
	}
	u.CreatedAt = m.tick()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = &u
	out := u
	return &out
}

// CreateUser implements the db user store.
func (m *MemStore) CreateUser(_ context.Context, user *models.User) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			m.mu.Unlock()
			return db.ErrDuplicateEmail
		}
	}
	m.mu.Unlock()

	*user = *m.AddUser(*user)
	return nil
}

// UpsertUserByEmail implements the db user store.
func (m *MemStore) UpsertUserByEmail(ctx context.Context, user *models.User) error {
	existing, err := m.GetUserByEmail(ctx, user.Email)
	if err == nil {
		m.mu.Lock()
		stored := m.users[existing.ID]
		if user.FirstName != "" {
			stored.FirstName = user.FirstName
		}
		if user.LastName != "" {
			stored.LastName = user.LastName
		}
		*user = *stored
		m.mu.Unlock()
		return nil
	}
	user.Role = models.RoleStudent
	return m.CreateUser(ctx, user)
}

// GetUserByID implements the db user store.
func (m *MemStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

// GetUserByEmail implements the db user store.
func (m *MemStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			out := *u
			return &out, nil
		}
	}
	return nil, db.ErrUserNotFound
}

// ListUsers implements the db user store.
func (m *MemStore) ListUsers(ctx context.Context) ([]models.User, error) {
	return m.FindUsers(ctx, models.UserFilter{})
}

// FindUsers implements the db user store.
func (m *MemStore) FindUsers(_ context.Context, filter models.UserFilter) ([]models.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.User
	for _, u := range m.users {
		if len(filter.Roles) > 0 && !slices.Contains(filter.Roles, u.Role) {
			continue
		}
		if filter.NotifyOnNewSubmission != nil && u.NotifyOnNewSubmission != *filter.NotifyOnNewSubmission {
			continue
		}
		if filter.NotifyOnReviewDecision != nil && u.NotifyOnReviewDecision != *filter.NotifyOnReviewDecision {
			continue
		}
		out = append(out, *u)
	}
	slices.SortFunc(out, func(a, b models.User) int { return strings.Compare(a.Email, b.Email) })
	return out, nil
}

func (m *MemStore) updateUser(id uuid.UUID, fn func(u *models.User)) (*models.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, db.ErrUserNotFound
	}
	fn(u)
	u.UpdatedAt = m.tick()
	out := *u
	return &out, nil
}

// UpdateUserRole implements the db user store.
func (m *MemStore) UpdateUserRole(_ context.Context, id uuid.UUID, role models.Role) error {
	_, err := m.updateUser(id, func(u *models.User) { u.Role = role })
	return err
}

// UpdatePasswordHash implements the db user store.
func (m *MemStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	_, err := m.updateUser(id, func(u *models.User) { u.PasswordHash = hash })
	return err
}

// UpdatePreferences implements the db user store.
func (m *MemStore) UpdatePreferences(_ context.Context, id uuid.UUID, prefs models.Preferences) (*models.User, error) {
	return m.updateUser(id, func(u *models.User) {
		if prefs.NotifyOnNewSubmission != nil {
			u.NotifyOnNewSubmission = *prefs.NotifyOnNewSubmission
		}
		if prefs.NotifyOnReviewDecision != nil {
			u.NotifyOnReviewDecision = *prefs.NotifyOnReviewDecision
		}
	})
}

// DeleteUser removes the user, their submissions and the reviews they wrote.
func (m *MemStore) DeleteUser(_ context.Context, id uuid.UUID) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return db.ErrUserNotFound
	}
	delete(m.users, id)
	for sid, s := range m.submissions {
		if s.OwnerID == id {
			delete(m.submissions, sid)
			continue
		}
		s.Reviews = slices.DeleteFunc(s.Reviews, func(r models.Review) bool { return r.ReviewerID == id })
	}
	return nil
}

// HasPendingSubmission implements lifecycle.Store.
func (m *MemStore) HasPendingSubmission(_ context.Context, ownerID uuid.UUID) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasPending(ownerID), nil
}

func (m *MemStore) hasPending(ownerID uuid.UUID) bool {
	for _, s := range m.submissions {
		if s.OwnerID == ownerID && s.Status == models.StatusPending {
			return true
		}
	}
	return false
}

// CreateSubmission implements lifecycle.Store, including the one-pending rule.
func (m *MemStore) CreateSubmission(_ context.Context, sub *models.Submission, refs []models.AttachmentRef) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hasPending(sub.OwnerID) {
		return db.ErrPendingSubmissionExists
	}

	sub.ID = uuid.New()
	sub.Status = models.StatusPending
	sub.CreatedAt = m.tick()
	sub.Attachments = make([]models.Attachment, 0, len(refs))
	for _, ref := range refs {
		sub.Attachments = append(sub.Attachments, models.Attachment{
			ID:           uuid.New(),
			SubmissionID: sub.ID,
			Filename:     ref.Filename,
			OriginalName: ref.OriginalName,
		})
	}

	stored := *sub
	stored.Attachments = slices.Clone(sub.Attachments)
	m.submissions[sub.ID] = &stored
	return nil
}

func (m *MemStore) snapshot(s *models.Submission) models.Submission {
	out := *s
	out.Attachments = slices.Clone(s.Attachments)
	out.Reviews = slices.Clone(s.Reviews)
	if owner, ok := m.users[s.OwnerID]; ok {
		summary := owner.Summary()
		out.Owner = &summary
	}
	return out
}

// GetSubmission implements lifecycle.Store.
func (m *MemStore) GetSubmission(_ context.Context, id uuid.UUID) (*models.Submission, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.submissions[id]
	if !ok {
		return nil, db.ErrSubmissionNotFound
	}
	out := m.snapshot(s)
	return &out, nil
}

func (m *MemStore) list(keep func(*models.Submission) bool) ([]models.Submission, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Submission{}
	for _, s := range m.submissions {
		if keep(s) {
			out = append(out, m.snapshot(s))
		}
	}
	slices.SortFunc(out, func(a, b models.Submission) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

// ListSubmissionsByOwner implements lifecycle.Store.
func (m *MemStore) ListSubmissionsByOwner(_ context.Context, ownerID uuid.UUID) ([]models.Submission, error) {
	return m.list(func(s *models.Submission) bool { return s.OwnerID == ownerID })
}

// ListAllSubmissions implements lifecycle.Store.
func (m *MemStore) ListAllSubmissions(context.Context) ([]models.Submission, error) {
	return m.list(func(*models.Submission) bool { return true })
}

// ListPendingSubmissions implements lifecycle.Store.
func (m *MemStore) ListPendingSubmissions(context.Context) ([]models.Submission, error) {
	return m.list(func(s *models.Submission) bool { return s.Status == models.StatusPending })
}

// AppendReview implements lifecycle.Store. The store lock plays the role of
// the row lock: decide, insert and status update happen atomically.
func (m *MemStore) AppendReview(_ context.Context, review *models.Review, decide db.DecideFunc) (*models.Submission, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.submissions[review.SubmissionID]
	if !ok {
		return nil, db.ErrSubmissionNotFound
	}

	next, err := decide(s.Status)
	if err != nil {
		return nil, err
	}

	review.ID = uuid.New()
	review.ReviewedAt = m.tick()
	s.Reviews = append(s.Reviews, *review)
	s.Status = next

	out := m.snapshot(s)
	return &out, nil
}

// CountByStatus implements the dashboard and metrics counter.
func (m *MemStore) CountByStatus(_ context.Context, ownerID *uuid.UUID) (models.StatusCounts, error) {
	var counts models.StatusCounts
	if m.Err != nil {
		return counts, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.submissions {
		if ownerID != nil && s.OwnerID != *ownerID {
			continue
		}
		switch s.Status {
		case models.StatusPending:
			counts.Pending++
		case models.StatusApproved:
			counts.Approved++
		case models.StatusRejected:
			counts.Rejected++
		}
	}
	return counts, nil
}

// AttachmentFilenames implements the upload sweeper's reference lookup.
func (m *MemStore) AttachmentFilenames(context.Context) (map[string]struct{}, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make(map[string]struct{})
	for _, s := range m.submissions {
		for _, a := range s.Attachments {
			names[a.Filename] = struct{}{}
		}
	}
	return names, nil
}

// SetStatus forces a submission's status. It exists to set up test fixtures.
func (m *MemStore) SetStatus(id uuid.UUID, status models.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.submissions[id]; ok {
		s.Status = status
	}
}

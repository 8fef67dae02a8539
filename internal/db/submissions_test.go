package db

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"docreview/internal/models"
)

func createTestSubmission(t *testing.T, db *DB, ownerID uuid.UUID, title string) *models.Submission {
	t.Helper()
	sub := &models.Submission{Title: title, OwnerID: ownerID}
	refs := []models.AttachmentRef{
		{Filename: fmt.Sprintf("%d-%s.pdf", time.Now().UnixNano(), title), OriginalName: title + ".pdf"},
	}
	if err := db.CreateSubmission(context.Background(), sub, refs); err != nil {
		t.Fatalf("CreateSubmission(%q) error = %v", title, err)
	}
	return sub
}

func appendTestReview(t *testing.T, db *DB, subID, reviewerID uuid.UUID, approved bool) *models.Submission {
	t.Helper()
	review := &models.Review{SubmissionID: subID, ReviewerID: reviewerID, Approved: approved}
	sub, err := db.AppendReview(context.Background(), review, func(models.Status) (models.Status, error) {
		if approved {
			return models.StatusApproved, nil
		}
		return models.StatusRejected, nil
	})
	if err != nil {
		t.Fatalf("AppendReview() error = %v", err)
	}
	return sub
}

func TestCreateSubmission(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner := createTestUser(t, db, "owner@example.com", models.RoleStudent)

	sub := &models.Submission{Title: "Thesis", OwnerID: owner.ID}
	refs := []models.AttachmentRef{
		{Filename: "1700000000000-a.pdf", OriginalName: "a.pdf"},
		{Filename: "1700000000001-b.docx", OriginalName: "b.docx"},
	}
	if err := db.CreateSubmission(ctx, sub, refs); err != nil {
		t.Fatalf("CreateSubmission() error = %v", err)
	}
	if sub.Status != models.StatusPending {
		t.Errorf("CreateSubmission() status = %q, want %q", sub.Status, models.StatusPending)
	}

	fetched, err := db.GetSubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetSubmission() error = %v", err)
	}
	names := fetched.AttachmentNames()
	if len(names) != 2 || names[0] != "a.pdf" || names[1] != "b.docx" {
		t.Errorf("attachments = %v, want [a.pdf b.docx] in order", names)
	}
	if fetched.Owner == nil || fetched.Owner.Email != "owner@example.com" {
		t.Errorf("owner = %+v, want owner@example.com", fetched.Owner)
	}
}

func TestCreateSubmission_OnePendingPerOwner(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner := createTestUser(t, db, "busy@example.com", models.RoleStudent)
	createTestSubmission(t, db, owner.ID, "First")

	second := &models.Submission{Title: "Second", OwnerID: owner.ID}
	err := db.CreateSubmission(ctx, second, []models.AttachmentRef{{Filename: "second.pdf", OriginalName: "second.pdf"}})
	if !errors.Is(err, ErrPendingSubmissionExists) {
		t.Errorf("CreateSubmission() error = %v, want %v", err, ErrPendingSubmissionExists)
	}

	pending, err := db.HasPendingSubmission(ctx, owner.ID)
	if err != nil || !pending {
		t.Errorf("HasPendingSubmission() = %v, %v; want true, nil", pending, err)
	}
}

func TestCreateSubmission_ConcurrentSingleWinner(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner := createTestUser(t, db, "racer@example.com", models.RoleStudent)

	const n = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sub := &models.Submission{Title: fmt.Sprintf("Race %d", i), OwnerID: owner.ID}
			err := db.CreateSubmission(ctx, sub, []models.AttachmentRef{
				{Filename: fmt.Sprintf("race-%d.pdf", i), OriginalName: "race.pdf"},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrPendingSubmissionExists):
				conflicts++
			default:
				t.Errorf("CreateSubmission() unexpected error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 || conflicts != n-1 {
		t.Errorf("successes = %d, conflicts = %d; want 1 and %d", successes, conflicts, n-1)
	}
}

func TestAppendReview(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	owner := createTestUser(t, db, "reviewed@example.com", models.RoleStudent)
	reviewer := createTestUser(t, db, "reviewer@example.com", models.RoleReviewer)
	sub := createTestSubmission(t, db, owner.ID, "Draft")

	rejected := appendTestReview(t, db, sub.ID, reviewer.ID, false)
	if rejected.Status != models.StatusRejected {
		t.Errorf("status after rejection = %q, want %q", rejected.Status, models.StatusRejected)
	}

	approved := appendTestReview(t, db, sub.ID, reviewer.ID, true)
	if approved.Status != models.StatusApproved {
		t.Errorf("status after approval = %q, want %q", approved.Status, models.StatusApproved)
	}
	if len(approved.Reviews) != 2 {
		t.Fatalf("reviews = %d, want 2", len(approved.Reviews))
	}
	if latest := approved.LatestReview(); latest == nil || !latest.Approved {
		t.Errorf("LatestReview() = %+v, want the approval", latest)
	}
}

func TestAppendReview_DecideErrorWritesNothing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner := createTestUser(t, db, "locked@example.com", models.RoleStudent)
	reviewer := createTestUser(t, db, "reviewer@example.com", models.RoleReviewer)
	sub := createTestSubmission(t, db, owner.ID, "Final")

	refused := errors.New("refused")
	review := &models.Review{SubmissionID: sub.ID, ReviewerID: reviewer.ID, Approved: true}
	_, err := db.AppendReview(ctx, review, func(models.Status) (models.Status, error) {
		return "", refused
	})
	if !errors.Is(err, refused) {
		t.Fatalf("AppendReview() error = %v, want %v", err, refused)
	}

	fetched, err := db.GetSubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetSubmission() error = %v", err)
	}
	if fetched.Status != models.StatusPending || len(fetched.Reviews) != 0 {
		t.Errorf("after refused review: status = %q, reviews = %d", fetched.Status, len(fetched.Reviews))
	}
}

func TestAppendReview_NotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	reviewer := createTestUser(t, db, "reviewer@example.com", models.RoleReviewer)
	review := &models.Review{SubmissionID: uuid.New(), ReviewerID: reviewer.ID}
	_, err := db.AppendReview(context.Background(), review, func(s models.Status) (models.Status, error) {
		return models.StatusApproved, nil
	})
	if !errors.Is(err, ErrSubmissionNotFound) {
		t.Errorf("AppendReview() error = %v, want %v", err, ErrSubmissionNotFound)
	}
}

// A transaction that began before another review committed, but took the
// row lock after it, must be ordered after that review.
func TestAppendReview_OrderFollowsLockOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner := createTestUser(t, db, "order@example.com", models.RoleStudent)
	first := createTestUser(t, db, "first@example.com", models.RoleReviewer)
	second := createTestUser(t, db, "second@example.com", models.RoleReviewer)
	sub := createTestSubmission(t, db, owner.ID, "Ordered")

	txLate, err := db.Pool.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer txLate.Rollback(ctx)

	var started time.Time
	if err := txLate.QueryRow(ctx, `SELECT now()`).Scan(&started); err != nil {
		t.Fatalf("SELECT now() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	appendTestReview(t, db, sub.ID, first.ID, false)

	late := &models.Review{SubmissionID: sub.ID, ReviewerID: second.ID, Approved: true}
	var seen models.Status
	got, err := appendReview(ctx, txLate, late, func(current models.Status) (models.Status, error) {
		seen = current
		return models.StatusApproved, nil
	})
	if err != nil {
		t.Fatalf("appendReview() error = %v", err)
	}
	if seen != models.StatusRejected {
		t.Errorf("decide saw status %q, want %q", seen, models.StatusRejected)
	}
	if got.Status != models.StatusApproved || len(got.Reviews) != 2 {
		t.Errorf("appendReview() status = %q, reviews = %d, want %q, 2", got.Status, len(got.Reviews), models.StatusApproved)
	}
	if err := txLate.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if !late.ReviewedAt.After(started) {
		t.Errorf("ReviewedAt = %v, want after transaction start %v", late.ReviewedAt, started)
	}

	fetched, err := db.GetSubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetSubmission() error = %v", err)
	}
	if fetched.Status != models.StatusApproved {
		t.Errorf("Status = %q, want %q", fetched.Status, models.StatusApproved)
	}
	if latest := fetched.LatestReview(); latest == nil || latest.ID != late.ID {
		t.Errorf("LatestReview() = %+v, want review %v", latest, late.ID)
	}
	if len(fetched.Reviews) != 2 || fetched.Reviews[1].ID != late.ID {
		t.Errorf("Reviews order = %+v, want the late review last", fetched.Reviews)
	}
}

func TestListSubmissionsAndCounts(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestUser(t, db, "alice@example.com", models.RoleStudent)
	bob := createTestUser(t, db, "bob@example.com", models.RoleStudent)
	reviewer := createTestUser(t, db, "reviewer@example.com", models.RoleReviewer)

	first := createTestSubmission(t, db, alice.ID, "Alice 1")
	appendTestReview(t, db, first.ID, reviewer.ID, true)
	second := createTestSubmission(t, db, alice.ID, "Alice 2")
	createTestSubmission(t, db, bob.ID, "Bob 1")

	mine, err := db.ListSubmissionsByOwner(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListSubmissionsByOwner() error = %v", err)
	}
	if len(mine) != 2 || mine[0].ID != second.ID {
		t.Errorf("ListSubmissionsByOwner() = %d items, first %v; want 2, newest first", len(mine), mine)
	}
	if len(mine[1].Reviews) != 1 {
		t.Errorf("older submission reviews = %d, want 1", len(mine[1].Reviews))
	}

	all, err := db.ListAllSubmissions(ctx)
	if err != nil {
		t.Fatalf("ListAllSubmissions() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListAllSubmissions() count = %d, want 3", len(all))
	}

	pending, err := db.ListPendingSubmissions(ctx)
	if err != nil {
		t.Fatalf("ListPendingSubmissions() error = %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("ListPendingSubmissions() count = %d, want 2", len(pending))
	}

	counts, err := db.CountByStatus(ctx, nil)
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if counts != (models.StatusCounts{Pending: 2, Approved: 1}) {
		t.Errorf("CountByStatus(nil) = %+v", counts)
	}

	aliceCounts, err := db.CountByStatus(ctx, &alice.ID)
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if aliceCounts != (models.StatusCounts{Pending: 1, Approved: 1}) {
		t.Errorf("CountByStatus(alice) = %+v", aliceCounts)
	}

	names, err := db.AttachmentFilenames(ctx)
	if err != nil {
		t.Fatalf("AttachmentFilenames() error = %v", err)
	}
	if len(names) != 3 {
		t.Errorf("AttachmentFilenames() count = %d, want 3", len(names))
	}
}

package query_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nhle/club-portal/internal/lifecycle"
	"github.com/nhle/club-portal/internal/model"
	"github.com/nhle/club-portal/internal/query"
	"github.com/nhle/club-portal/internal/store"
	"github.com/nhle/club-portal/tests/testutil"
)

func TestList_FlagsAndOrdering(t *testing.T) {
	st := testutil.NewTestStore(t)
	eng := lifecycle.NewEngine(st, nil)
	svc := query.NewService(st)
	ctx := context.Background()

	coord := testutil.SeedUser(t, st, "c1", model.RoleCoordinator)
	member := testutil.SeedUser(t, st, "m1", model.RoleMember)

	late, err := eng.Create(ctx, coord, lifecycle.CreateTaskInput{
		Title: "Later", DueDate: "2026-12-01",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	soon, err := eng.Create(ctx, coord, lifecycle.CreateTaskInput{
		Title: "Sooner", DueDate: "2026-09-05", IsOpen: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	undated, err := eng.Create(ctx, coord, lifecycle.CreateTaskInput{Title: "Whenever"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := eng.Claim(ctx, member, soon); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	summaries, err := svc.List(ctx, member)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("got %d summaries, want 3", len(summaries))
	}

	// Due dates ascending, undated last.
	if summaries[0].ID != soon || summaries[1].ID != late || summaries[2].ID != undated {
		t.Errorf("order = %s, %s, %s; want soon, late, undated",
			summaries[0].ID, summaries[1].ID, summaries[2].ID)
	}

	got := summaries[0]
	if !got.IsAssignedToMe {
		t.Error("IsAssignedToMe = false for claimed task")
	}
	if got.IsCreator {
		t.Error("IsCreator = true for non-creator viewer")
	}
	if got.ShortDate != "Sep 05" {
		t.Errorf("ShortDate = %q, want 'Sep 05'", got.ShortDate)
	}
	if got.DueDate != "2026-09-05" {
		t.Errorf("DueDate = %q, want 2026-09-05", got.DueDate)
	}
	if len(got.Assignees) != 1 || got.Assignees[0].Name != "User m1" {
		t.Errorf("Assignees = %v, want the claimer with display name", got.Assignees)
	}
	if got.Status != model.StatusInProgress {
		t.Errorf("Status = %q, want in-progress after claim", got.Status)
	}

	// The creator's view of the same list.
	summaries, err = svc.List(ctx, coord)
	if err != nil {
		t.Fatalf("List as creator: %v", err)
	}
	if !summaries[0].IsCreator {
		t.Error("IsCreator = false for creator viewer")
	}
	if summaries[0].IsAssignedToMe {
		t.Error("IsAssignedToMe = true for non-assignee viewer")
	}
}

func TestListForUser(t *testing.T) {
	st := testutil.NewTestStore(t)
	eng := lifecycle.NewEngine(st, nil)
	svc := query.NewService(st)
	ctx := context.Background()

	coord := testutil.SeedUser(t, st, "c1", model.RoleCoordinator)
	member := testutil.SeedUser(t, st, "m1", model.RoleMember)

	mine, err := eng.Create(ctx, coord, lifecycle.CreateTaskInput{
		Title: "Mine", AssigneeIDs: []string{"m1"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := eng.Create(ctx, coord, lifecycle.CreateTaskInput{Title: "Not mine"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	summaries, err := svc.ListForUser(ctx, member)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != mine {
		t.Errorf("ListForUser = %v, want only the assigned task", summaries)
	}
}

func TestDetail(t *testing.T) {
	st := testutil.NewTestStore(t)
	eng := lifecycle.NewEngine(st, nil)
	svc := query.NewService(st)
	ctx := context.Background()

	coord := testutil.SeedUser(t, st, "c1", model.RoleCoordinator)
	member := testutil.SeedUser(t, st, "m1", model.RoleMember)

	due := time.Now().UTC().AddDate(0, 0, 10).Format("2006-01-02")
	id, err := eng.Create(ctx, coord, lifecycle.CreateTaskInput{
		Title:   "Detailed",
		Tags:    []string{"alpha", "beta"},
		IsOpen:  true,
		DueDate: due,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := eng.Claim(ctx, member, id); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if _, err := eng.AttachResource(ctx, member, id, "Draft", "https://example.com/draft"); err != nil {
		t.Fatalf("AttachResource: %v", err)
	}

	strPtr := func(s string) *string { return &s }
	if _, err := eng.EditFields(ctx, member, id, lifecycle.EditTaskInput{
		SubmissionLink:  strPtr("https://example.com/final"),
		SubmissionNotes: strPtr("done early"),
	}); err != nil {
		t.Fatalf("EditFields: %v", err)
	}

	detail, err := svc.Detail(ctx, member, id)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}

	if detail.SubmissionLink != "https://example.com/final" || detail.SubmissionNotes != "done early" {
		t.Errorf("submission = %q / %q", detail.SubmissionLink, detail.SubmissionNotes)
	}
	if len(detail.Tags) != 2 {
		t.Errorf("Tags = %v, want 2", detail.Tags)
	}
	if len(detail.Resources) != 1 || detail.Resources[0].Title != "Draft" {
		t.Errorf("Resources = %v, want the attached draft", detail.Resources)
	}
	if detail.ResourceCount != 1 {
		t.Errorf("ResourceCount = %d, want 1", detail.ResourceCount)
	}

	// Claim produced two audit entries in occurrence order, rendered
	// with the actor's display name.
	if len(detail.AuditLog) != 2 {
		t.Fatalf("AuditLog = %d entries, want 2", len(detail.AuditLog))
	}
	if detail.AuditLog[0].Details != "Auto-started upon claim" {
		t.Errorf("first audit line = %q", detail.AuditLog[0].Details)
	}
	if detail.AuditLog[1].Action != model.AuditClaimed || detail.AuditLog[1].User != "User m1" {
		t.Errorf("second audit line = %+v", detail.AuditLog[1])
	}

	if _, err := svc.Detail(ctx, member, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Detail(missing): err = %v, want ErrNotFound", err)
	}
}

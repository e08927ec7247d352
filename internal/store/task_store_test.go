package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nhle/club-portal/internal/model"
	"github.com/nhle/club-portal/internal/store"
	"github.com/nhle/club-portal/tests/testutil"
)

func seedTask(t *testing.T, s *store.SQLiteStore, task *model.Task) {
	t.Helper()
	err := s.RunInTx(context.Background(), func(tx store.Tx) error {
		return tx.CreateTask(context.Background(), task)
	})
	if err != nil {
		t.Fatalf("seeding task: %v", err)
	}
}

func TestTaskRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	testutil.SeedUser(t, s, "c1", model.RoleCoordinator)

	max := 3
	due := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	task := &model.Task{
		Title:           "Prepare demo",
		Description:     "For the open day",
		IsOpen:          true,
		MaxParticipants: &max,
		Priority:        model.PriorityHigh,
		Tags:            []string{"demo", "open-day"},
		DueDate:         &due,
		CreatedBy:       "c1",
	}
	seedTask(t, s, task)
	if task.ID == "" {
		t.Fatal("CreateTask did not assign an id")
	}

	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Title != task.Title || !got.IsOpen || got.Priority != model.PriorityHigh {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.MaxParticipants == nil || *got.MaxParticipants != 3 {
		t.Errorf("MaxParticipants = %v, want 3", got.MaxParticipants)
	}
	if got.Status != model.StatusPending {
		t.Errorf("Status = %q, want default pending", got.Status)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "demo" {
		t.Errorf("Tags = %v, want [demo open-day]", got.Tags)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("DueDate = %v, want %v", got.DueDate, due)
	}

	if _, err := s.GetTask(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetTask(missing): err = %v, want ErrNotFound", err)
	}
}

func TestListTasks_Ordering(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	testutil.SeedUser(t, s, "c1", model.RoleCoordinator)

	day := func(d int) *time.Time {
		dt := time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC)
		return &dt
	}
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Insertion order deliberately scrambled.
	seedTask(t, s, &model.Task{ID: "no-due-old", Title: "x", CreatedBy: "c1", CreatedAt: base})
	seedTask(t, s, &model.Task{ID: "due-20", Title: "x", CreatedBy: "c1", DueDate: day(20), CreatedAt: base.Add(time.Hour)})
	seedTask(t, s, &model.Task{ID: "no-due-new", Title: "x", CreatedBy: "c1", CreatedAt: base.Add(2 * time.Hour)})
	seedTask(t, s, &model.Task{ID: "due-05", Title: "x", CreatedBy: "c1", DueDate: day(5), CreatedAt: base.Add(3 * time.Hour)})

	tasks, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}

	want := []string{"due-05", "due-20", "no-due-new", "no-due-old"}
	if len(tasks) != len(want) {
		t.Fatalf("got %d tasks, want %d", len(tasks), len(want))
	}
	for i, id := range want {
		if tasks[i].ID != id {
			t.Errorf("tasks[%d] = %s, want %s", i, tasks[i].ID, id)
		}
	}
}

func TestAssigneeLinks(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	testutil.SeedUser(t, s, "c1", model.RoleCoordinator)
	testutil.SeedUser(t, s, "a", model.RoleMember)
	testutil.SeedUser(t, s, "b", model.RoleMember)

	task := &model.Task{Title: "x", CreatedBy: "c1"}
	seedTask(t, s, task)

	err := s.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.AddAssignee(ctx, task.ID, "a"); err != nil {
			return err
		}
		return tx.AddAssignee(ctx, task.ID, "b")
	})
	if err != nil {
		t.Fatalf("adding assignees: %v", err)
	}

	// Duplicate link violates the (task, user) primary key.
	err = s.RunInTx(ctx, func(tx store.Tx) error {
		return tx.AddAssignee(ctx, task.ID, "a")
	})
	if err == nil {
		t.Error("duplicate AddAssignee succeeded, want constraint violation")
	}

	var removed bool
	err = s.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		removed, err = tx.RemoveAssignee(ctx, task.ID, "a")
		return err
	})
	if err != nil {
		t.Fatalf("RemoveAssignee: %v", err)
	}
	if !removed {
		t.Error("RemoveAssignee = false, want true")
	}

	err = s.RunInTx(ctx, func(tx store.Tx) error {
		var err error
		removed, err = tx.RemoveAssignee(ctx, task.ID, "a")
		return err
	})
	if err != nil {
		t.Fatalf("second RemoveAssignee: %v", err)
	}
	if removed {
		t.Error("second RemoveAssignee = true, want false")
	}

	ids, err := s.ListAssigneeIDs(ctx, task.ID)
	if err != nil {
		t.Fatalf("ListAssigneeIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != "b" {
		t.Errorf("assignees = %v, want [b]", ids)
	}

	tasks, err := s.ListTasksByUser(ctx, "b")
	if err != nil {
		t.Fatalf("ListTasksByUser: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Errorf("ListTasksByUser = %v, want the seeded task", tasks)
	}
}

func TestDeleteTask_Cascade(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	testutil.SeedUser(t, s, "c1", model.RoleCoordinator)
	testutil.SeedUser(t, s, "a", model.RoleMember)

	task := &model.Task{Title: "x", CreatedBy: "c1"}
	seedTask(t, s, task)

	err := s.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.AddAssignee(ctx, task.ID, "a"); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, model.AuditEntry{
			TaskID: task.ID, UserID: "a", Action: model.AuditClaimed, Details: "User claimed the task",
		}); err != nil {
			return err
		}
		return tx.CreateResource(ctx, &model.Resource{
			UserID: "a", Title: "Doc", URL: "https://example.com", TaskID: &task.ID,
		})
	})
	if err != nil {
		t.Fatalf("seeding children: %v", err)
	}

	err = s.RunInTx(ctx, func(tx store.Tx) error {
		return tx.DeleteTask(ctx, task.ID)
	})
	if err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}

	ids, err := s.ListAssigneeIDs(ctx, task.ID)
	if err != nil {
		t.Fatalf("ListAssigneeIDs: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("assignee links survived delete: %v", ids)
	}

	err = s.RunInTx(ctx, func(tx store.Tx) error {
		entries, err := tx.ListAudit(ctx, task.ID)
		if err != nil {
			return err
		}
		if len(entries) != 0 {
			t.Errorf("audit entries survived delete: %d", len(entries))
		}
		resources, err := tx.ListResources(ctx, task.ID)
		if err != nil {
			return err
		}
		if len(resources) != 0 {
			t.Errorf("resources survived delete: %d", len(resources))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("checking children: %v", err)
	}
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	testutil.SeedUser(t, s, "c1", model.RoleCoordinator)

	sentinel := errors.New("abort")
	task := &model.Task{Title: "ghost", CreatedBy: "c1"}
	err := s.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateTask(ctx, task); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("RunInTx err = %v, want the callback error unchanged", err)
	}

	if _, err := s.GetTask(ctx, task.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("task visible after rollback: err = %v, want ErrNotFound", err)
	}
}

func TestReplaceAssignees_Atomic(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	testutil.SeedUser(t, s, "c1", model.RoleCoordinator)
	testutil.SeedUser(t, s, "a", model.RoleMember)
	testutil.SeedUser(t, s, "b", model.RoleMember)
	testutil.SeedUser(t, s, "c", model.RoleMember)

	task := &model.Task{Title: "x", CreatedBy: "c1"}
	seedTask(t, s, task)

	err := s.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.ReplaceAssignees(ctx, task.ID, []string{"a", "b"}); err != nil {
			return err
		}
		return tx.ReplaceAssignees(ctx, task.ID, []string{"b", "c"})
	})
	if err != nil {
		t.Fatalf("ReplaceAssignees: %v", err)
	}

	ids, err := s.ListAssigneeIDs(ctx, task.ID)
	if err != nil {
		t.Fatalf("ListAssigneeIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("assignees = %v, want [b c]", ids)
	}
	for _, id := range ids {
		if id != "b" && id != "c" {
			t.Errorf("unexpected assignee %s", id)
		}
	}
}

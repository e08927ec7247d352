// Package query provides read-only task projections for presentation:
// a list view with per-viewer flags and a detail view with the full
// audit history. Neither projection mutates state; each reads inside
// one store transaction so it sees a consistent snapshot.
package query

import (
	"context"

	"github.com/nhle/club-portal/internal/model"
	"github.com/nhle/club-portal/internal/policy"
	"github.com/nhle/club-portal/internal/store"
)

const (
	shortDateLayout = "Jan 02"
	dateLayout      = "2006-01-02"
	auditTimeLayout = "2006-01-02 15:04"
)

// Service builds task projections. It is read-only and stateless.
type Service struct {
	store store.Store
}

// NewService creates a query service on top of the given store.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// AssigneeView is the per-assignee slice of a projection.
type AssigneeView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AvatarColor string `json:"avatar_color"`
}

// TaskSummary is the list projection of a task.
type TaskSummary struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Status          model.Status   `json:"status"`
	Priority        string         `json:"priority"`
	IsOpen          bool           `json:"is_open"`
	MaxParticipants *int           `json:"max_participants,omitempty"`
	DueDate         string         `json:"due_date,omitempty"`   // YYYY-MM-DD
	ShortDate       string         `json:"short_date,omitempty"` // e.g. "Jan 02"
	Tags            []string       `json:"tags,omitempty"`
	Assignees       []AssigneeView `json:"assignees"`
	IsAssignedToMe  bool           `json:"is_assigned_to_me"`
	IsCreator       bool           `json:"is_creator"`
	ResourceCount   int            `json:"resources_count"`
}

// AuditView is one rendered audit log line.
type AuditView struct {
	User    string            `json:"user"`
	Action  model.AuditAction `json:"action"`
	Details string            `json:"details"`
	Time    string            `json:"time"`
}

// TaskDetail is the detail projection: the summary plus submission
// fields, attached resources, and the full audit history in
// occurrence order.
type TaskDetail struct {
	TaskSummary
	SubmissionLink  string           `json:"submission_link"`
	SubmissionNotes string           `json:"submission_notes"`
	Resources       []model.Resource `json:"resources"`
	AuditLog        []AuditView      `json:"audit_logs"`
}

// List returns all tasks as summaries for the given viewer, ordered by
// due date ascending with missing due dates last, then newest first.
func (s *Service) List(ctx context.Context, viewer model.Actor) ([]TaskSummary, error) {
	var out []TaskSummary
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		tasks, err := tx.ListTasks(ctx)
		if err != nil {
			return err
		}
		for i := range tasks {
			summary, err := buildSummary(ctx, tx, &tasks[i], viewer)
			if err != nil {
				return err
			}
			out = append(out, summary)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListForUser returns summaries of the tasks the viewer is assigned to.
func (s *Service) ListForUser(ctx context.Context, viewer model.Actor) ([]TaskSummary, error) {
	var out []TaskSummary
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		tasks, err := tx.ListTasksByUser(ctx, viewer.ID)
		if err != nil {
			return err
		}
		for i := range tasks {
			summary, err := buildSummary(ctx, tx, &tasks[i], viewer)
			if err != nil {
				return err
			}
			out = append(out, summary)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Detail returns the full projection of one task.
// Returns store.ErrNotFound if the task does not exist.
func (s *Service) Detail(ctx context.Context, viewer model.Actor, taskID string) (*TaskDetail, error) {
	var out *TaskDetail
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}

		summary, err := buildSummary(ctx, tx, task, viewer)
		if err != nil {
			return err
		}

		resources, err := tx.ListResources(ctx, taskID)
		if err != nil {
			return err
		}

		entries, err := tx.ListAudit(ctx, taskID)
		if err != nil {
			return err
		}
		auditLog, err := renderAudit(ctx, tx, entries)
		if err != nil {
			return err
		}

		out = &TaskDetail{
			TaskSummary:     summary,
			SubmissionLink:  task.SubmissionLink,
			SubmissionNotes: task.SubmissionNotes,
			Resources:       resources,
			AuditLog:        auditLog,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func buildSummary(ctx context.Context, tx store.Tx, task *model.Task, viewer model.Actor) (TaskSummary, error) {
	assigneeIDs, err := tx.ListAssigneeIDs(ctx, task.ID)
	if err != nil {
		return TaskSummary{}, err
	}
	users, err := tx.GetUsers(ctx, assigneeIDs)
	if err != nil {
		return TaskSummary{}, err
	}
	resourceCount, err := tx.CountResources(ctx, task.ID)
	if err != nil {
		return TaskSummary{}, err
	}

	assignees := make([]AssigneeView, 0, len(users))
	for _, u := range users {
		assignees = append(assignees, AssigneeView{
			ID:          u.ID,
			Name:        u.Name,
			AvatarColor: u.AvatarColor,
		})
	}

	summary := TaskSummary{
		ID:              task.ID,
		Title:           task.Title,
		Description:     task.Description,
		Status:          task.Status,
		Priority:        task.Priority,
		IsOpen:          task.IsOpen,
		MaxParticipants: task.MaxParticipants,
		Tags:            task.Tags,
		Assignees:       assignees,
		IsAssignedToMe:  policy.IsAssignee(viewer, assigneeIDs),
		IsCreator:       task.CreatedBy == viewer.ID,
		ResourceCount:   resourceCount,
	}
	if task.DueDate != nil {
		summary.DueDate = task.DueDate.Format(dateLayout)
		summary.ShortDate = task.DueDate.Format(shortDateLayout)
	}
	return summary, nil
}

// renderAudit resolves actor names and formats timestamps for a run of
// audit entries. Unknown users (e.g. deleted accounts) render by id.
func renderAudit(ctx context.Context, tx store.Tx, entries []model.AuditEntry) ([]AuditView, error) {
	ids := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.UserID]; ok {
			continue
		}
		seen[e.UserID] = struct{}{}
		ids = append(ids, e.UserID)
	}

	users, err := tx.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	views := make([]AuditView, 0, len(entries))
	for _, e := range entries {
		name := names[e.UserID]
		if name == "" {
			name = e.UserID
		}
		views = append(views, AuditView{
			User:    name,
			Action:  e.Action,
			Details: e.Details,
			Time:    e.CreatedAt.Format(auditTimeLayout),
		})
	}
	return views, nil
}

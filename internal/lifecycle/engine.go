// Package lifecycle implements the task state machine: status
// transitions, claim/unclaim, assignee-set replacement, field edits,
// and the audit trail recording every state change.
//
// Every mutating operation runs as a single store transaction. Guards
// that depend on current state (capacity, membership, the unclaim
// window) are evaluated inside that transaction immediately before the
// write, so concurrent requests cannot corrupt the capacity invariant
// or the status/assignee-set coupling.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/nhle/club-portal/internal/model"
	"github.com/nhle/club-portal/internal/policy"
	"github.com/nhle/club-portal/internal/store"
)

// dateLayout is the wire format for due dates.
const dateLayout = "2006-01-02"

// transitions is the permitted edge set of the status state machine.
var transitions = map[model.Status]model.Status{
	model.StatusPending:    model.StatusInProgress,
	model.StatusInProgress: model.StatusReview,
	model.StatusReview:     model.StatusDone,
	model.StatusDone:       model.StatusInProgress, // reopen
}

// canTransition reports whether from -> to is a permitted edge.
func canTransition(from, to model.Status) bool {
	return transitions[from] == to
}

// Engine owns the task lifecycle. All state lives in the store; the
// engine itself is stateless and safe for concurrent use.
type Engine struct {
	store store.Store
	log   *slog.Logger

	// now is the clock used for the unclaim window; replaced in tests.
	now func() time.Time
}

// NewEngine creates a lifecycle engine on top of the given store.
// A nil logger falls back to slog.Default().
func NewEngine(st store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, log: logger, now: time.Now}
}

// run executes fn in a store transaction and normalizes the error:
// business-rule errors and store.ErrNotFound pass through verbatim,
// anything else is a storage fault and is wrapped and logged.
func (e *Engine) run(ctx context.Context, op string, fn func(tx store.Tx) error) error {
	err := e.store.RunInTx(ctx, fn)
	if err == nil || isBusinessErr(err) {
		return err
	}

	var se *StorageError
	if !errors.As(err, &se) {
		err = &StorageError{Op: op, Err: err}
	}
	e.log.Error("task storage failure", "op", op, "error", err)
	return err
}

func isBusinessErr(err error) bool {
	for _, target := range []error{
		ErrPermissionDenied, ErrInvalidTransition, ErrTaskNotOpen,
		ErrTaskFull, ErrAlreadyClaimed, ErrNotAssigned,
		ErrReversalWindowClosed, ErrValidation, store.ErrNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// parseDueDate parses an optional YYYY-MM-DD string to UTC midnight.
func parseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid due date %q, want YYYY-MM-DD", ErrValidation, s)
	}
	d = d.UTC()
	return &d, nil
}

// daysUntil returns the whole calendar days between today and due.
func (e *Engine) daysUntil(due time.Time) int {
	now := e.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	return int(dueDay.Sub(today).Hours() / 24)
}

// dedupe returns ids with duplicates removed, preserving order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// CreateTaskInput carries the fields for a new task.
type CreateTaskInput struct {
	Title           string
	Description     string
	Priority        string
	Tags            []string
	IsOpen          bool
	MaxParticipants *int
	DueDate         string // optional, YYYY-MM-DD
	AssigneeIDs     []string
}

// Create makes a new pending task, optionally with an initial assignee
// set. Requires work-assignment authority.
func (e *Engine) Create(ctx context.Context, actor model.Actor, in CreateTaskInput) (string, error) {
	if !policy.HasWorkAssignmentAuthority(actor.Role) {
		return "", fmt.Errorf("%w: only coordinators can create tasks", ErrPermissionDenied)
	}
	if strings.TrimSpace(in.Title) == "" {
		return "", fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.Priority != "" && !validPriority(in.Priority) {
		return "", fmt.Errorf("%w: unknown priority %q", ErrValidation, in.Priority)
	}
	due, err := parseDueDate(in.DueDate)
	if err != nil {
		return "", err
	}

	task := &model.Task{
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Priority:        in.Priority,
		Tags:            in.Tags,
		IsOpen:          in.IsOpen,
		MaxParticipants: in.MaxParticipants,
		DueDate:         due,
		Status:          model.StatusPending,
		CreatedBy:       actor.ID,
	}

	err = e.run(ctx, "create", func(tx store.Tx) error {
		if err := tx.CreateTask(ctx, task); err != nil {
			return err
		}
		for _, uid := range dedupe(in.AssigneeIDs) {
			if err := tx.AddAssignee(ctx, task.ID, uid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	e.log.Info("task created", "task", task.ID, "actor", actor.ID)
	return task.ID, nil
}

func validPriority(p string) bool {
	return p == model.PriorityLow || p == model.PriorityMedium || p == model.PriorityHigh
}

// Transition moves a task along the state machine. Guards:
//
//   - to done: work-assignment authority
//   - to review: current assignee
//   - done back to in-progress: work-assignment authority
//   - any other permitted edge: authority or task creator
//
// A request outside the edge set (including the current status itself)
// fails with ErrInvalidTransition and changes nothing.
func (e *Engine) Transition(ctx context.Context, actor model.Actor, taskID string, target model.Status) (model.Status, error) {
	err := e.run(ctx, "transition", func(tx store.Tx) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if !canTransition(task.Status, target) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, task.Status, target)
		}

		switch {
		case target == model.StatusDone:
			if !policy.HasWorkAssignmentAuthority(actor.Role) {
				return fmt.Errorf("%w: only coordinators can approve tasks", ErrPermissionDenied)
			}
		case target == model.StatusReview:
			assignees, err := tx.ListAssigneeIDs(ctx, taskID)
			if err != nil {
				return err
			}
			if !policy.IsAssignee(actor, assignees) {
				return fmt.Errorf("%w: only assignees can submit for review", ErrPermissionDenied)
			}
		case task.Status == model.StatusDone:
			if !policy.HasWorkAssignmentAuthority(actor.Role) {
				return fmt.Errorf("%w: only coordinators can re-open tasks", ErrPermissionDenied)
			}
		default:
			if !policy.CanManage(actor, task) {
				return ErrPermissionDenied
			}
		}

		if err := tx.SetTaskStatus(ctx, taskID, target); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, model.AuditEntry{
			TaskID:  taskID,
			UserID:  actor.ID,
			Action:  model.AuditStatusChange,
			Details: fmt.Sprintf("Changed status from %s to %s", task.Status, target),
		})
	})
	if err != nil {
		return "", err
	}

	e.log.Info("task status changed", "task", taskID, "status", target, "actor", actor.ID)
	return target, nil
}

// Claim self-assigns the actor to an open task. A pending task
// auto-advances to in-progress. Returns the updated assignee set.
func (e *Engine) Claim(ctx context.Context, actor model.Actor, taskID string) ([]string, error) {
	var assignees []string
	err := e.run(ctx, "claim", func(tx store.Tx) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if !task.IsOpen {
			return ErrTaskNotOpen
		}

		// Capacity and membership are rechecked here, inside the
		// transaction, so simultaneous claims on a near-full task
		// cannot both pass.
		current, err := tx.ListAssigneeIDs(ctx, taskID)
		if err != nil {
			return err
		}
		if task.MaxParticipants != nil && *task.MaxParticipants > 0 &&
			len(current) >= *task.MaxParticipants {
			return ErrTaskFull
		}
		if slices.Contains(current, actor.ID) {
			return ErrAlreadyClaimed
		}

		if err := tx.AddAssignee(ctx, taskID, actor.ID); err != nil {
			return err
		}

		if task.Status == model.StatusPending {
			if err := tx.SetTaskStatus(ctx, taskID, model.StatusInProgress); err != nil {
				return err
			}
			err := tx.AppendAudit(ctx, model.AuditEntry{
				TaskID:  taskID,
				UserID:  actor.ID,
				Action:  model.AuditStatusChange,
				Details: "Auto-started upon claim",
			})
			if err != nil {
				return err
			}
		}

		err = tx.AppendAudit(ctx, model.AuditEntry{
			TaskID:  taskID,
			UserID:  actor.ID,
			Action:  model.AuditClaimed,
			Details: "User claimed the task",
		})
		if err != nil {
			return err
		}

		assignees, err = tx.ListAssigneeIDs(ctx, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return assignees, nil
}

// Unclaim removes the actor from a task's assignee set. Within 24
// hours of the due date self-removal is blocked; a coordinator must
// reassign instead. If the assignee set empties, the task drops back
// to pending. Returns the updated assignee set.
func (e *Engine) Unclaim(ctx context.Context, actor model.Actor, taskID string) ([]string, error) {
	var assignees []string
	err := e.run(ctx, "unclaim", func(tx store.Tx) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if task.DueDate != nil && e.daysUntil(*task.DueDate) < 1 {
			return ErrReversalWindowClosed
		}

		removed, err := tx.RemoveAssignee(ctx, taskID, actor.ID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrNotAssigned
		}

		err = tx.AppendAudit(ctx, model.AuditEntry{
			TaskID:  taskID,
			UserID:  actor.ID,
			Action:  model.AuditReverted,
			Details: "User reverted the task",
		})
		if err != nil {
			return err
		}

		// Recount after the delete, in the same transaction. Counting
		// before the delete would reset the status while other
		// assignees remain.
		remaining, err := tx.CountAssignees(ctx, taskID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if err := tx.SetTaskStatus(ctx, taskID, model.StatusPending); err != nil {
				return err
			}
		}

		assignees, err = tx.ListAssigneeIDs(ctx, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return assignees, nil
}

// EditTaskInput carries a partial field set for EditFields. Nil fields
// are left untouched. An empty DueDate string clears the due date.
type EditTaskInput struct {
	Title           *string
	Description     *string
	Priority        *string
	Tags            *[]string
	DueDate         *string // YYYY-MM-DD or "" to clear
	SubmissionLink  *string
	SubmissionNotes *string
}

func (in EditTaskInput) touchesCore() bool {
	return in.Title != nil || in.Description != nil || in.Priority != nil ||
		in.Tags != nil || in.DueDate != nil
}

func (in EditTaskInput) touchesSubmission() bool {
	return in.SubmissionLink != nil || in.SubmissionNotes != nil
}

// EditFields applies a partial edit to a task. Core fields require
// manage rights (authority or creator); submission fields are also
// open to current assignees. Plain field edits are not audited, only
// status and assignee-set changes are.
func (e *Engine) EditFields(ctx context.Context, actor model.Actor, taskID string, in EditTaskInput) (*model.Task, error) {
	var result *model.Task
	err := e.run(ctx, "edit", func(tx store.Tx) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		assignees, err := tx.ListAssigneeIDs(ctx, taskID)
		if err != nil {
			return err
		}

		if in.touchesCore() && !policy.CanManage(actor, task) {
			return fmt.Errorf("%w: only coordinators or the creator can edit this task", ErrPermissionDenied)
		}
		if in.touchesSubmission() && !policy.CanSubmit(actor, task, assignees) {
			return fmt.Errorf("%w: only assignees can edit the submission", ErrPermissionDenied)
		}

		if in.Title != nil {
			if strings.TrimSpace(*in.Title) == "" {
				return fmt.Errorf("%w: title is required", ErrValidation)
			}
			task.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			task.Description = *in.Description
		}
		if in.Priority != nil {
			if !validPriority(*in.Priority) {
				return fmt.Errorf("%w: unknown priority %q", ErrValidation, *in.Priority)
			}
			task.Priority = *in.Priority
		}
		if in.Tags != nil {
			task.Tags = *in.Tags
		}
		if in.DueDate != nil {
			due, err := parseDueDate(*in.DueDate)
			if err != nil {
				return err
			}
			task.DueDate = due
		}
		if in.SubmissionLink != nil {
			task.SubmissionLink = *in.SubmissionLink
		}
		if in.SubmissionNotes != nil {
			task.SubmissionNotes = *in.SubmissionNotes
		}

		if err := tx.UpdateTask(ctx, task); err != nil {
			return err
		}
		result = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReplaceAssignees swaps a task's assignee set for newIDs. Requires
// work-assignment authority. Emits one `assigned` audit entry if any
// user was added and one `unassigned` entry if any was removed; an
// identical set is a no-op with no audit. Returns the updated set.
func (e *Engine) ReplaceAssignees(ctx context.Context, actor model.Actor, taskID string, newIDs []string) ([]string, error) {
	var assignees []string
	err := e.run(ctx, "replace-assignees", func(tx store.Tx) error {
		if _, err := tx.GetTask(ctx, taskID); err != nil {
			return err
		}
		if !policy.HasWorkAssignmentAuthority(actor.Role) {
			return fmt.Errorf("%w: only coordinators can reassign tasks", ErrPermissionDenied)
		}

		oldIDs, err := tx.ListAssigneeIDs(ctx, taskID)
		if err != nil {
			return err
		}

		ids := dedupe(newIDs)
		added := diff(ids, oldIDs)
		removed := diff(oldIDs, ids)
		if len(added) == 0 && len(removed) == 0 {
			assignees = oldIDs
			return nil
		}

		if err := tx.ReplaceAssignees(ctx, taskID, ids); err != nil {
			return err
		}

		if len(added) > 0 {
			err := tx.AppendAudit(ctx, model.AuditEntry{
				TaskID:  taskID,
				UserID:  actor.ID,
				Action:  model.AuditAssigned,
				Details: fmt.Sprintf("Assigned user IDs: %s", strings.Join(added, ", ")),
			})
			if err != nil {
				return err
			}
		}
		if len(removed) > 0 {
			err := tx.AppendAudit(ctx, model.AuditEntry{
				TaskID:  taskID,
				UserID:  actor.ID,
				Action:  model.AuditUnassigned,
				Details: fmt.Sprintf("Removed user IDs: %s", strings.Join(removed, ", ")),
			})
			if err != nil {
				return err
			}
		}

		assignees, err = tx.ListAssigneeIDs(ctx, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return assignees, nil
}

// diff returns the elements of a that are not in b, sorted.
func diff(a, b []string) []string {
	var out []string
	for _, x := range a {
		if !slices.Contains(b, x) {
			out = append(out, x)
		}
	}
	slices.Sort(out)
	return out
}

// Delete hard-deletes a task. Assignee links, audit log entries, and
// attached resources cascade in the same transaction. Requires
// work-assignment authority.
func (e *Engine) Delete(ctx context.Context, actor model.Actor, taskID string) error {
	err := e.run(ctx, "delete", func(tx store.Tx) error {
		if _, err := tx.GetTask(ctx, taskID); err != nil {
			return err
		}
		if !policy.HasWorkAssignmentAuthority(actor.Role) {
			return fmt.Errorf("%w: only coordinators can delete tasks", ErrPermissionDenied)
		}
		return tx.DeleteTask(ctx, taskID)
	})
	if err != nil {
		return err
	}

	e.log.Info("task deleted", "task", taskID, "actor", actor.ID)
	return nil
}

// AttachResource attaches a link resource to a task. The resource is
// deleted along with the task.
func (e *Engine) AttachResource(ctx context.Context, actor model.Actor, taskID, title, url string) (*model.Resource, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: url is required", ErrValidation)
	}
	if strings.TrimSpace(title) == "" {
		title = "Attachment"
	}

	res := &model.Resource{
		UserID:       actor.ID,
		Title:        title,
		URL:          url,
		ResourceType: model.ResourceTypeLink,
		TaskID:       &taskID,
	}

	err := e.run(ctx, "attach-resource", func(tx store.Tx) error {
		if _, err := tx.GetTask(ctx, taskID); err != nil {
			return err
		}
		return tx.CreateResource(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Package policy holds the pure permission predicates for task
// operations. Policy functions take everything they need as arguments
// and never touch storage, so they are deterministic and testable in
// isolation.
package policy

import (
	"slices"

	"github.com/nhle/club-portal/internal/model"
)

// HasWorkAssignmentAuthority reports whether the role may create,
// approve, and reassign tasks.
func HasWorkAssignmentAuthority(role model.Role) bool {
	return role.CanAssignWork()
}

// CanManage reports whether the actor may edit a task's fields and
// drive its status: work-assignment authority or being the creator.
func CanManage(actor model.Actor, task *model.Task) bool {
	return HasWorkAssignmentAuthority(actor.Role) || actor.ID == task.CreatedBy
}

// IsAssignee reports whether the actor appears in the assignee id set.
func IsAssignee(actor model.Actor, assigneeIDs []string) bool {
	return slices.Contains(assigneeIDs, actor.ID)
}

// CanSubmit reports whether the actor may fill in submission fields:
// any current assignee, or anyone who can manage the task.
func CanSubmit(actor model.Actor, task *model.Task, assigneeIDs []string) bool {
	return IsAssignee(actor, assigneeIDs) || CanManage(actor, task)
}

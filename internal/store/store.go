// Package store provides the transactional SQLite repository for
// tasks, their assignee links, audit log entries, and attached
// resources.
//
// Reads that do not need transactional consistency go through the
// Store methods directly. Every mutation, and any read that must see
// a single consistent snapshot, runs inside RunInTx.
package store

import (
	"context"
	"errors"

	"github.com/nhle/club-portal/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Tx exposes the repository operations available inside a single
// database transaction. Guards that depend on current state (capacity,
// membership) must be evaluated through a Tx immediately before the
// corresponding write, not against state read earlier in the request.
type Tx interface {
	// Task row
	GetTask(ctx context.Context, id string) (*model.Task, error)
	CreateTask(ctx context.Context, t *model.Task) error
	UpdateTask(ctx context.Context, t *model.Task) error
	SetTaskStatus(ctx context.Context, taskID string, status model.Status) error
	DeleteTask(ctx context.Context, taskID string) error
	ListTasks(ctx context.Context) ([]model.Task, error)
	ListTasksByUser(ctx context.Context, userID string) ([]model.Task, error)

	// Assignee links
	ListAssigneeIDs(ctx context.Context, taskID string) ([]string, error)
	CountAssignees(ctx context.Context, taskID string) (int, error)
	AddAssignee(ctx context.Context, taskID, userID string) error
	// RemoveAssignee reports whether a link actually existed.
	RemoveAssignee(ctx context.Context, taskID, userID string) (bool, error)
	ReplaceAssignees(ctx context.Context, taskID string, userIDs []string) error

	// Audit log
	AppendAudit(ctx context.Context, e model.AuditEntry) error
	ListAudit(ctx context.Context, taskID string) ([]model.AuditEntry, error)

	// Resources
	CreateResource(ctx context.Context, r *model.Resource) error
	ListResources(ctx context.Context, taskID string) ([]model.Resource, error)
	CountResources(ctx context.Context, taskID string) (int, error)

	// Users (read-only inside a task transaction)
	GetUsers(ctx context.Context, ids []string) ([]model.User, error)
}

// Store is the persistence interface consumed by the lifecycle engine
// and the query service.
type Store interface {
	// RunInTx executes fn inside a single database transaction.
	// The transaction commits when fn returns nil and rolls back
	// otherwise.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error

	// Non-transactional reads.
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context) ([]model.Task, error)
	ListTasksByUser(ctx context.Context, userID string) ([]model.Task, error)
	ListAssigneeIDs(ctx context.Context, taskID string) ([]string, error)

	// Users
	CreateUser(ctx context.Context, u model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)

	Close() error
}

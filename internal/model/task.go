package model

import "time"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// ValidStatus reports whether s is one of the four defined states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// Priority constants for tasks.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task is a unit of work tracked by the club.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id" db:"id"`

	// Title is the human-readable summary.
	Title string `json:"title" db:"title"`

	// Description is the full body text.
	Description string `json:"description" db:"description"`

	// IsOpen marks the task as claimable by any member. Closed tasks
	// receive assignees only through admin assignment.
	IsOpen bool `json:"is_open" db:"is_open"`

	// MaxParticipants caps the assignee set of an open task.
	// Nil means unlimited. Has no effect when IsOpen is false.
	MaxParticipants *int `json:"max_participants,omitempty" db:"max_participants"`

	// Priority is one of the Priority* constants.
	Priority string `json:"priority" db:"priority"`

	// Tags is a free-form label list (stored comma-joined).
	Tags []string `json:"tags,omitempty" db:"-"`

	// Status is the current lifecycle state (use Status* constants).
	Status Status `json:"status" db:"status"`

	// DueDate is the optional calendar deadline, held at UTC midnight.
	DueDate *time.Time `json:"due_date,omitempty" db:"due_date"`

	// CreatedBy is the id of the user who created the task.
	CreatedBy string `json:"created_by" db:"created_by"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// SubmissionLink and SubmissionNotes are filled in by assignees
	// when the task moves to review.
	SubmissionLink  string `json:"submission_link" db:"submission_link"`
	SubmissionNotes string `json:"submission_notes" db:"submission_notes"`
}

// TaskAssignee links one user to one task's assignee set.
// Unique per (task, user); its lifecycle is bound to the parent task.
type TaskAssignee struct {
	TaskID     string    `json:"task_id" db:"task_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	AssignedAt time.Time `json:"assigned_at" db:"assigned_at"`
}

// AuditAction tags an audit log entry with the kind of change it records.
type AuditAction string

const (
	AuditStatusChange AuditAction = "status_change"
	AuditClaimed      AuditAction = "claimed"
	AuditReverted     AuditAction = "reverted"
	AuditAssigned     AuditAction = "assigned"
	AuditUnassigned   AuditAction = "unassigned"
)

// AuditEntry is an immutable record of a state-changing action on a
// task. Entries are append-only; their creation order is the canonical
// task history.
type AuditEntry struct {
	ID        string      `json:"id" db:"id"`
	TaskID    string      `json:"task_id" db:"task_id"`
	UserID    string      `json:"user_id" db:"user_id"`
	Action    AuditAction `json:"action" db:"action"`
	Details   string      `json:"details" db:"details"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/club-portal/internal/model"
)

// taskColumns is the canonical select list for the tasks table.
const taskColumns = `id, title, description, is_open, max_participants, priority, tags,
	status, due_date, created_by, created_at, submission_link, submission_notes`

// rowScanner is satisfied by both *sqlx.Row and *sqlx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask scans one task row.
func scanTask(row rowScanner) (model.Task, error) {
	var (
		t       model.Task
		isOpen  int
		maxPart sql.NullInt64
		tags    string
		status  string
		dueDate sql.NullTime
	)

	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &isOpen, &maxPart, &t.Priority, &tags,
		&status, &dueDate, &t.CreatedBy, &t.CreatedAt,
		&t.SubmissionLink, &t.SubmissionNotes,
	)
	if err != nil {
		return model.Task{}, err
	}

	t.IsOpen = isOpen != 0
	if maxPart.Valid {
		n := int(maxPart.Int64)
		t.MaxParticipants = &n
	}
	t.Tags = splitTags(tags)
	t.Status = model.Status(status)
	if dueDate.Valid {
		d := dueDate.Time.UTC()
		t.DueDate = &d
	}

	return t, nil
}

// joinTags serializes a tag list to the comma-joined storage form.
func joinTags(tags []string) string {
	var kept []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			kept = append(kept, tag)
		}
	}
	return strings.Join(kept, ",")
}

// splitTags parses the comma-joined storage form back into a list.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func getTask(ctx context.Context, q sqlx.ExtContext, id string) (*model.Task, error) {
	row := q.QueryRowxContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return &t, nil
}

func createTask(ctx context.Context, q sqlx.ExtContext, t *model.Task) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if t.Status == "" {
		t.Status = model.StatusPending
	}

	var maxPart any
	if t.MaxParticipants != nil {
		maxPart = *t.MaxParticipants
	}
	var dueDate any
	if t.DueDate != nil {
		dueDate = t.DueDate.UTC()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO tasks (
			id, title, description, is_open, max_participants, priority, tags,
			status, due_date, created_by, created_at, submission_link, submission_notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, boolToInt(t.IsOpen), maxPart, t.Priority, joinTags(t.Tags),
		string(t.Status), dueDate, t.CreatedBy, t.CreatedAt.UTC(),
		t.SubmissionLink, t.SubmissionNotes,
	)
	if err != nil {
		return fmt.Errorf("creating task %s: %w", t.ID, err)
	}
	return nil
}

func updateTask(ctx context.Context, q sqlx.ExtContext, t *model.Task) error {
	var maxPart any
	if t.MaxParticipants != nil {
		maxPart = *t.MaxParticipants
	}
	var dueDate any
	if t.DueDate != nil {
		dueDate = t.DueDate.UTC()
	}

	result, err := q.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, description = ?, is_open = ?, max_participants = ?,
			priority = ?, tags = ?, status = ?, due_date = ?,
			submission_link = ?, submission_notes = ?
		WHERE id = ?`,
		t.Title, t.Description, boolToInt(t.IsOpen), maxPart,
		t.Priority, joinTags(t.Tags), string(t.Status), dueDate,
		t.SubmissionLink, t.SubmissionNotes,
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", t.ID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func setTaskStatus(ctx context.Context, q sqlx.ExtContext, taskID string, status model.Status) error {
	result, err := q.ExecContext(ctx,
		"UPDATE tasks SET status = ? WHERE id = ?", string(status), taskID,
	)
	if err != nil {
		return fmt.Errorf("setting status of task %s: %w", taskID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// deleteTask removes the task row. Assignee links, audit entries, and
// attached resources go with it via foreign key cascade.
func deleteTask(ctx context.Context, q sqlx.ExtContext, taskID string) error {
	result, err := q.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", taskID)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", taskID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// listTasks returns all tasks ordered by due date ascending with
// missing due dates last, then newest first.
func listTasks(ctx context.Context, q sqlx.ExtContext) ([]model.Task, error) {
	rows, err := q.QueryxContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		ORDER BY due_date IS NULL, due_date ASC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// listTasksByUser returns the tasks a user is assigned to, in the
// same order as listTasks.
func listTasksByUser(ctx context.Context, q sqlx.ExtContext, userID string) ([]model.Task, error) {
	rows, err := q.QueryxContext(ctx, `
		SELECT `+taskColumnsPrefixed("t")+` FROM tasks t
		JOIN task_assignees ta ON ta.task_id = t.id
		WHERE ta.user_id = ?
		ORDER BY t.due_date IS NULL, t.due_date ASC, t.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying tasks for user %s: %w", userID, err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

func collectTasks(rows *sqlx.Rows) ([]model.Task, error) {
	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// taskColumnsPrefixed qualifies the task select list with a table alias.
func taskColumnsPrefixed(alias string) string {
	cols := strings.Split(taskColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func listAssigneeIDs(ctx context.Context, q sqlx.ExtContext, taskID string) ([]string, error) {
	rows, err := q.QueryxContext(ctx, `
		SELECT user_id FROM task_assignees
		WHERE task_id = ? ORDER BY assigned_at ASC, user_id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("querying assignees of task %s: %w", taskID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning assignee row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func countAssignees(ctx context.Context, q sqlx.ExtContext, taskID string) (int, error) {
	var count int
	err := q.QueryRowxContext(ctx,
		"SELECT COUNT(*) FROM task_assignees WHERE task_id = ?", taskID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting assignees of task %s: %w", taskID, err)
	}
	return count, nil
}

func addAssignee(ctx context.Context, q sqlx.ExtContext, taskID, userID string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO task_assignees (task_id, user_id, assigned_at)
		VALUES (?, ?, ?)`,
		taskID, userID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("adding assignee %s to task %s: %w", userID, taskID, err)
	}
	return nil
}

func removeAssignee(ctx context.Context, q sqlx.ExtContext, taskID, userID string) (bool, error) {
	result, err := q.ExecContext(ctx,
		"DELETE FROM task_assignees WHERE task_id = ? AND user_id = ?", taskID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("removing assignee %s from task %s: %w", userID, taskID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("removing assignee %s from task %s: %w", userID, taskID, err)
	}
	return rows > 0, nil
}

func replaceAssignees(ctx context.Context, q sqlx.ExtContext, taskID string, userIDs []string) error {
	if _, err := q.ExecContext(ctx,
		"DELETE FROM task_assignees WHERE task_id = ?", taskID,
	); err != nil {
		return fmt.Errorf("clearing assignees of task %s: %w", taskID, err)
	}

	for _, uid := range userIDs {
		if err := addAssignee(ctx, q, taskID, uid); err != nil {
			return err
		}
	}
	return nil
}

func appendAudit(ctx context.Context, q sqlx.ExtContext, e model.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO task_audit_logs (id, task_id, user_id, action, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.TaskID, e.UserID, string(e.Action), e.Details, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("appending audit entry for task %s: %w", e.TaskID, err)
	}
	return nil
}

// listAudit returns a task's audit history in occurrence order. Rowid
// breaks ties between entries written in the same transaction.
func listAudit(ctx context.Context, q sqlx.ExtContext, taskID string) ([]model.AuditEntry, error) {
	rows, err := q.QueryxContext(ctx, `
		SELECT id, task_id, user_id, action, details, created_at
		FROM task_audit_logs
		WHERE task_id = ?
		ORDER BY created_at ASC, rowid ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("querying audit log of task %s: %w", taskID, err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var (
			e      model.AuditEntry
			action string
		)
		err := rows.Scan(&e.ID, &e.TaskID, &e.UserID, &action, &e.Details, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning audit row: %w", err)
		}
		e.Action = model.AuditAction(action)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- Store methods (non-transactional reads) ---

// GetTask retrieves a single task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return getTask(ctx, s.db, id)
}

// ListTasks retrieves all tasks in presentation order.
func (s *SQLiteStore) ListTasks(ctx context.Context) ([]model.Task, error) {
	return listTasks(ctx, s.db)
}

// ListTasksByUser retrieves the tasks a user is assigned to.
func (s *SQLiteStore) ListTasksByUser(ctx context.Context, userID string) ([]model.Task, error) {
	return listTasksByUser(ctx, s.db, userID)
}

// ListAssigneeIDs retrieves the user ids assigned to a task.
func (s *SQLiteStore) ListAssigneeIDs(ctx context.Context, taskID string) ([]string, error) {
	return listAssigneeIDs(ctx, s.db, taskID)
}

// --- Tx methods ---

func (t *sqliteTx) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return getTask(ctx, t.tx, id)
}

func (t *sqliteTx) CreateTask(ctx context.Context, task *model.Task) error {
	return createTask(ctx, t.tx, task)
}

func (t *sqliteTx) UpdateTask(ctx context.Context, task *model.Task) error {
	return updateTask(ctx, t.tx, task)
}

func (t *sqliteTx) SetTaskStatus(ctx context.Context, taskID string, status model.Status) error {
	return setTaskStatus(ctx, t.tx, taskID, status)
}

func (t *sqliteTx) DeleteTask(ctx context.Context, taskID string) error {
	return deleteTask(ctx, t.tx, taskID)
}

func (t *sqliteTx) ListTasks(ctx context.Context) ([]model.Task, error) {
	return listTasks(ctx, t.tx)
}

func (t *sqliteTx) ListTasksByUser(ctx context.Context, userID string) ([]model.Task, error) {
	return listTasksByUser(ctx, t.tx, userID)
}

func (t *sqliteTx) ListAssigneeIDs(ctx context.Context, taskID string) ([]string, error) {
	return listAssigneeIDs(ctx, t.tx, taskID)
}

func (t *sqliteTx) CountAssignees(ctx context.Context, taskID string) (int, error) {
	return countAssignees(ctx, t.tx, taskID)
}

func (t *sqliteTx) AddAssignee(ctx context.Context, taskID, userID string) error {
	return addAssignee(ctx, t.tx, taskID, userID)
}

func (t *sqliteTx) RemoveAssignee(ctx context.Context, taskID, userID string) (bool, error) {
	return removeAssignee(ctx, t.tx, taskID, userID)
}

func (t *sqliteTx) ReplaceAssignees(ctx context.Context, taskID string, userIDs []string) error {
	return replaceAssignees(ctx, t.tx, taskID, userIDs)
}

func (t *sqliteTx) AppendAudit(ctx context.Context, e model.AuditEntry) error {
	return appendAudit(ctx, t.tx, e)
}

func (t *sqliteTx) ListAudit(ctx context.Context, taskID string) ([]model.AuditEntry, error) {
	return listAudit(ctx, t.tx, taskID)
}

package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	email        TEXT NOT NULL UNIQUE,
	role         TEXT NOT NULL DEFAULT 'member' CHECK(role IN ('member', 'coordinator', 'admin')),
	avatar_color TEXT NOT NULL DEFAULT '#6C63FF',
	joined_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tasks (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	is_open          INTEGER NOT NULL DEFAULT 0 CHECK(is_open IN (0, 1)),
	max_participants INTEGER,
	priority         TEXT NOT NULL DEFAULT 'medium' CHECK(priority IN ('low', 'medium', 'high')),
	tags             TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'in-progress', 'review', 'done')),
	due_date         DATETIME,
	created_by       TEXT NOT NULL REFERENCES users(id),
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	submission_link  TEXT NOT NULL DEFAULT '',
	submission_notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS task_assignees (
	task_id     TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	assigned_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (task_id, user_id)
);

CREATE TABLE IF NOT EXISTS task_audit_logs (
	id         TEXT PRIMARY KEY,
	task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL REFERENCES users(id),
	action     TEXT NOT NULL,
	details    TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS resources (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL REFERENCES users(id),
	title         TEXT NOT NULL,
	url           TEXT NOT NULL,
	resource_type TEXT NOT NULL DEFAULT 'link',
	task_id       TEXT REFERENCES tasks(id) ON DELETE CASCADE,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);
CREATE INDEX IF NOT EXISTS idx_task_assignees_user ON task_assignees(user_id);
CREATE INDEX IF NOT EXISTS idx_audit_task_created ON task_audit_logs(task_id, created_at);
CREATE INDEX IF NOT EXISTS idx_resources_task ON resources(task_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}

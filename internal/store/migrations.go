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

CREATE TABLE IF NOT EXISTS state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	github_id  INTEGER NOT NULL UNIQUE,
	login      TEXT NOT NULL,
	avatar_url TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notification_threads (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	github_thread_id TEXT NOT NULL,
	repository       TEXT NOT NULL,
	subject          TEXT NOT NULL DEFAULT '{}',
	reason           TEXT NOT NULL,
	unread           INTEGER NOT NULL DEFAULT 1 CHECK(unread IN (0, 1)),
	last_read_at     DATETIME,
	updated_at       DATETIME NOT NULL,
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(user_id, github_thread_id)
);

CREATE INDEX IF NOT EXISTS idx_threads_user_unread ON notification_threads(user_id, unread);
CREATE INDEX IF NOT EXISTS idx_threads_updated_at ON notification_threads(updated_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}

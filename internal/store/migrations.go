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

CREATE TABLE IF NOT EXISTS emails (
	doc_id            INTEGER PRIMARY KEY AUTOINCREMENT,
	id                TEXT NOT NULL UNIQUE,
	thread_id         TEXT NOT NULL DEFAULT '',
	sender            TEXT NOT NULL,
	sender_name       TEXT NOT NULL DEFAULT '',
	recipients        TEXT NOT NULL DEFAULT '[]',
	cc                TEXT NOT NULL DEFAULT '[]',
	subject           TEXT NOT NULL DEFAULT '',
	body              TEXT NOT NULL DEFAULT '',
	snippet           TEXT NOT NULL DEFAULT '',
	received_at       INTEGER NOT NULL,
	labels            TEXT NOT NULL DEFAULT '[]',
	category          TEXT NOT NULL DEFAULT '',
	is_read           INTEGER NOT NULL DEFAULT 0,
	processing_errors TEXT NOT NULL DEFAULT '[]',
	indexed_at        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_emails_sender ON emails(sender);
CREATE INDEX IF NOT EXISTS idx_emails_received_at ON emails(received_at);
CREATE INDEX IF NOT EXISTS idx_emails_thread_id ON emails(thread_id);

CREATE TABLE IF NOT EXISTS attachments (
	email_id          TEXT NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
	position          INTEGER NOT NULL,
	id                TEXT NOT NULL DEFAULT '',
	filename          TEXT NOT NULL DEFAULT '',
	media_type        TEXT NOT NULL DEFAULT '',
	size              INTEGER NOT NULL DEFAULT 0,
	text              TEXT,
	path              TEXT NOT NULL DEFAULT '',
	extraction_failed INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (email_id, position)
);

CREATE VIRTUAL TABLE IF NOT EXISTS email_fts USING fts5(
	subject,
	body,
	attachments,
	tokenize = 'porter unicode61'
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}

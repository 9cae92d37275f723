package journal

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

CREATE TABLE IF NOT EXISTS records (
	id          TEXT PRIMARY KEY,
	message_uid INTEGER NOT NULL,
	message_id  TEXT NOT NULL DEFAULT '',
	sender      TEXT NOT NULL DEFAULT '',
	subject     TEXT NOT NULL DEFAULT '',
	stage       TEXT NOT NULL,
	outcome     TEXT NOT NULL CHECK(outcome IN ('learned', 'skipped', 'failed')),
	error       TEXT NOT NULL DEFAULT '',
	provider    TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_outcome ON records(outcome);
CREATE INDEX IF NOT EXISTS idx_records_sender ON records(sender);
CREATE INDEX IF NOT EXISTS idx_records_created_at ON records(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}

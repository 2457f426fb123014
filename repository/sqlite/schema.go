package sqlite

// schema returns the statements applied on Open. SQLite executes one statement at a time.
func schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id         TEXT PRIMARY KEY,
			username   TEXT NOT NULL UNIQUE,
			email      TEXT NOT NULL DEFAULT '',
			role       TEXT NOT NULL DEFAULT 'member',
			status     TEXT NOT NULL DEFAULT 'active',
			balance    INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
			metadata   TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id                     TEXT PRIMARY KEY,
			creator_id             TEXT NOT NULL REFERENCES accounts(id),
			assignee_id            TEXT REFERENCES accounts(id),
			title                  TEXT NOT NULL,
			description            TEXT NOT NULL DEFAULT '',
			reward                 INTEGER NOT NULL CHECK (reward > 0),
			status                 TEXT NOT NULL,
			deadline               INTEGER,
			cancellation_requested INTEGER NOT NULL DEFAULT 0,
			created_at             INTEGER NOT NULL,
			updated_at             INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_creator ON tasks(creator_id)`,

		`CREATE TABLE IF NOT EXISTS ledger_entries (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT NOT NULL UNIQUE,
			account_id  TEXT NOT NULL REFERENCES accounts(id),
			task_id     TEXT REFERENCES tasks(id),
			amount      INTEGER NOT NULL,
			kind        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_account ON ledger_entries(account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_task ON ledger_entries(task_id)`,

		`CREATE TABLE IF NOT EXISTS disputes (
			id          TEXT PRIMARY KEY,
			task_id     TEXT NOT NULL UNIQUE REFERENCES tasks(id),
			raised_by   TEXT NOT NULL REFERENCES accounts(id),
			reason      TEXT NOT NULL,
			status      TEXT NOT NULL,
			created_at  INTEGER NOT NULL,
			resolved_at INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS friendships (
			from_id    TEXT NOT NULL REFERENCES accounts(id),
			to_id      TEXT NOT NULL REFERENCES accounts(id),
			closeness  INTEGER NOT NULL DEFAULT 50,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (from_id, to_id)
		)`,

		`CREATE TABLE IF NOT EXISTS friend_requests (
			id          TEXT PRIMARY KEY,
			from_id     TEXT NOT NULL REFERENCES accounts(id),
			to_id       TEXT NOT NULL REFERENCES accounts(id),
			closeness   INTEGER NOT NULL DEFAULT 50,
			is_accepted INTEGER NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL,
			UNIQUE (from_id, to_id)
		)`,

		`CREATE TABLE IF NOT EXISTS conversations (
			id         TEXT PRIMARY KEY,
			task_id    TEXT UNIQUE REFERENCES tasks(id),
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_participants (
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			account_id      TEXT NOT NULL REFERENCES accounts(id),
			PRIMARY KEY (conversation_id, account_id)
		)`,
	}
}

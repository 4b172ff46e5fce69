package store

const (
	CreateJobsTable = `
		CREATE TABLE IF NOT EXISTS jobs (
			queue_position INTEGER NOT NULL,
			order_id TEXT NOT NULL DEFAULT '',
			customer TEXT NOT NULL DEFAULT '',
			quantity TEXT NOT NULL DEFAULT '',
			deadline TEXT NOT NULL DEFAULT '',
			priority TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			processed_at TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			extra_json TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_jobs_position ON jobs(queue_position);
	`

	InsertJob = `
		INSERT INTO jobs (queue_position, order_id, customer, quantity, deadline, priority, description, processed_at, created_at, status, extra_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	ListJobs = `
		SELECT queue_position, order_id, customer, quantity, deadline, priority, description, processed_at, created_at, status, extra_json
		FROM jobs ORDER BY queue_position ASC
	`

	DeleteAllJobs = `DELETE FROM jobs`
)

const (
	CreateCyclesTable = `
		CREATE TABLE IF NOT EXISTS cycles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at DATETIME NOT NULL,
			extracted INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			merged INTEGER NOT NULL DEFAULT 0,
			problems INTEGER NOT NULL DEFAULT 0,
			note TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_cycles_started_at ON cycles(started_at);
	`

	InsertCycle = `
		INSERT INTO cycles (started_at, extracted, failed, merged, problems, note)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	ListRecentCycles = `
		SELECT id, started_at, extracted, failed, merged, problems, note
		FROM cycles ORDER BY started_at DESC, id DESC LIMIT ?
	`
)

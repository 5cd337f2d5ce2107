// ABOUTME: Database schema definitions and migrations
// ABOUTME: Creates the prospect, cycle, message, review and status log tables
package db

import (
	"github.com/jmoiron/sqlx"
)

const tables = `
CREATE TABLE IF NOT EXISTS prospects (
	id TEXT PRIMARY KEY,
	handle TEXT NOT NULL UNIQUE,
	category TEXT NOT NULL DEFAULT '',
	business_type TEXT NOT NULL DEFAULT '',
	channel TEXT NOT NULL DEFAULT '',
	external_link TEXT NOT NULL DEFAULT '',
	contact_number TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS canvassing_cycles (
	id TEXT PRIMARY KEY,
	prospect_id TEXT NOT NULL,
	staff_id INTEGER NOT NULL,
	start_date DATETIME NOT NULL,
	current_stage INTEGER NOT NULL DEFAULT -1,
	status TEXT NOT NULL DEFAULT 'active',
	last_followup_date DATETIME,
	next_followup_date DATETIME,
	next_action TEXT NOT NULL DEFAULT '',
	failure_reason TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (prospect_id) REFERENCES prospects(id)
);

CREATE INDEX IF NOT EXISTS idx_cycles_staff ON canvassing_cycles(staff_id, status);
CREATE INDEX IF NOT EXISTS idx_cycles_prospect ON canvassing_cycles(prospect_id);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	cycle_id TEXT NOT NULL,
	stage INTEGER NOT NULL CHECK (stage BETWEEN 0 AND 7),
	category TEXT NOT NULL DEFAULT '',
	channel TEXT NOT NULL DEFAULT '',
	interaction_status TEXT NOT NULL DEFAULT '',
	screenshot_key TEXT NOT NULL,
	screenshot_hash TEXT NOT NULL UNIQUE,
	ocr_handle TEXT NOT NULL DEFAULT '',
	ocr_message_snippet TEXT NOT NULL DEFAULT '',
	ocr_date DATETIME,
	submitted_at DATETIME NOT NULL,
	validation_status TEXT NOT NULL DEFAULT 'pending' CHECK (validation_status IN ('pending', 'valid', 'invalid')),
	invalid_reason TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (cycle_id) REFERENCES canvassing_cycles(id),
	UNIQUE (cycle_id, stage)
);

CREATE INDEX IF NOT EXISTS idx_messages_cycle ON messages(cycle_id);
CREATE INDEX IF NOT EXISTS idx_messages_ocr_handle ON messages(ocr_handle);

CREATE TABLE IF NOT EXISTS quality_checks (
	id TEXT PRIMARY KEY,
	message_id TEXT NOT NULL UNIQUE,
	supervisor_id INTEGER NOT NULL,
	status TEXT NOT NULL CHECK (status IN ('approved', 'rejected')),
	notes TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	FOREIGN KEY (message_id) REFERENCES messages(id)
);

CREATE TABLE IF NOT EXISTS cycle_status_logs (
	id TEXT PRIMARY KEY,
	cycle_id TEXT NOT NULL,
	old_status TEXT NOT NULL,
	new_status TEXT NOT NULL,
	changed_by INTEGER NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	FOREIGN KEY (cycle_id) REFERENCES canvassing_cycles(id)
);

CREATE INDEX IF NOT EXISTS idx_status_logs_cycle ON cycle_status_logs(cycle_id);
`

// constraints holds indexes that existing rows must already satisfy. A
// database carrying legacy status strings has to be normalized first.
const constraints = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_cycles_one_active
	ON canvassing_cycles(prospect_id, staff_id)
	WHERE status IN ('active', 'ongoing');
`

// InitSchema creates all tables and indexes.
func InitSchema(db *sqlx.DB) error {
	if err := InitTables(db); err != nil {
		return err
	}
	_, err := db.Exec(constraints)
	return err
}

// InitTables creates the tables without the uniqueness constraints that
// depend on normalized data.
func InitTables(db *sqlx.DB) error {
	_, err := db.Exec(tables)
	return err
}

package database

import (
	"context"
	"fmt"
	"strings"
)

// mysqlSchema is applied statement by statement.  Reservation and
// attendance rows are unique per (session, user); the organization column
// is always copied from the owning session.  CHECK constraints need MySQL
// 8.0.16 or later to be enforced.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(200) NOT NULL,
		slug VARCHAR(200) NOT NULL UNIQUE,
		kind VARCHAR(8) NOT NULL DEFAULT 'UNI',
		owner_id BIGINT UNSIGNED NOT NULL,
		created_at DATETIME NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS organization_memberships (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		org_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		role VARCHAR(16) NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE KEY uq_membership (org_id, user_id),
		CONSTRAINT fk_membership_org FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id BIGINT UNSIGNED NOT NULL,
		role VARCHAR(32) NOT NULL,
		PRIMARY KEY (user_id, role)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS live_sessions (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		org_id BIGINT UNSIGNED NULL,
		title VARCHAR(200) NOT NULL,
		channel_name VARCHAR(128) NOT NULL UNIQUE,
		owner_id BIGINT UNSIGNED NOT NULL,
		start_time DATETIME NOT NULL,
		duration_min INT NOT NULL DEFAULT 60,
		max_participants INT NOT NULL DEFAULT 20,
		recording_enabled TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		KEY idx_sessions_org (org_id),
		KEY idx_sessions_owner (owner_id),
		CONSTRAINT fk_session_org FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS seat_reservations (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		org_id BIGINT UNSIGNED NULL,
		session_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		state VARCHAR(16) NOT NULL DEFAULT 'CONFIRMED',
		expires_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE KEY uq_reservation (session_id, user_id),
		KEY idx_reservation_state (session_id, state, expires_at),
		CONSTRAINT chk_reservation_state CHECK (state IN ('PENDING', 'CONFIRMED', 'RELEASED')),
		CONSTRAINT fk_reservation_session FOREIGN KEY (session_id) REFERENCES live_sessions(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS attendances (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		org_id BIGINT UNSIGNED NULL,
		session_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		joined_at DATETIME NOT NULL,
		left_at DATETIME NULL,
		total_seconds BIGINT NOT NULL DEFAULT 0,
		UNIQUE KEY uq_attendance (session_id, user_id),
		CONSTRAINT chk_attendance_total CHECK (total_seconds >= 0),
		CONSTRAINT fk_attendance_session FOREIGN KEY (session_id) REFERENCES live_sessions(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS moderation_actions (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		session_id BIGINT UNSIGNED NOT NULL,
		actor_id BIGINT UNSIGNED NOT NULL,
		target_user_id BIGINT UNSIGNED NULL,
		action VARCHAR(16) NOT NULL,
		detail VARCHAR(255) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		KEY idx_moderation_session (session_id),
		CONSTRAINT fk_moderation_session FOREIGN KEY (session_id) REFERENCES live_sessions(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL DEFAULT 'UNI',
		owner_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS organization_memberships (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		org_id INTEGER NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL,
		role TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (org_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id INTEGER NOT NULL,
		role TEXT NOT NULL,
		PRIMARY KEY (user_id, role)
	)`,
	`CREATE TABLE IF NOT EXISTS live_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		org_id INTEGER NULL REFERENCES organizations(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		channel_name TEXT NOT NULL UNIQUE,
		owner_id INTEGER NOT NULL,
		start_time DATETIME NOT NULL,
		duration_min INTEGER NOT NULL DEFAULT 60,
		max_participants INTEGER NOT NULL DEFAULT 20,
		recording_enabled INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_org ON live_sessions(org_id)`,
	`CREATE TABLE IF NOT EXISTS seat_reservations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		org_id INTEGER NULL,
		session_id INTEGER NOT NULL REFERENCES live_sessions(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL,
		state TEXT NOT NULL DEFAULT 'CONFIRMED' CHECK(state IN ('PENDING', 'CONFIRMED', 'RELEASED')),
		expires_at DATETIME NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (session_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservation_state ON seat_reservations(session_id, state, expires_at)`,
	`CREATE TABLE IF NOT EXISTS attendances (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		org_id INTEGER NULL,
		session_id INTEGER NOT NULL REFERENCES live_sessions(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL,
		joined_at DATETIME NOT NULL,
		left_at DATETIME NULL,
		total_seconds INTEGER NOT NULL DEFAULT 0 CHECK(total_seconds >= 0),
		UNIQUE (session_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS moderation_actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES live_sessions(id) ON DELETE CASCADE,
		actor_id INTEGER NOT NULL,
		target_user_id INTEGER NULL,
		action TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_moderation_session ON moderation_actions(session_id)`,
}

// Migrate creates the tables used by the service if they do not exist.
func Migrate(ctx context.Context, db *DB) error {
	stmts := mysqlSchema
	if db.Dialect == DialectSQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

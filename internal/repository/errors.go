// Package repository defines the data access layer for organizations,
// live sessions, seat reservations and attendance.  Sentinel errors
// declared here let the service and handler layers distinguish failure
// scenarios without inspecting driver specific errors.
package repository

import (
    "errors"

    "github.com/go-sql-driver/mysql"
    "modernc.org/sqlite"
    sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// ErrSessionNotFound indicates that a live session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrDuplicateChannel is returned when a session insert collides with an
// existing channel name.
var ErrDuplicateChannel = errors.New("duplicate channel name")

// ErrNoOpenAttendance is returned when a close is attempted for a user
// who has no open attendance interval.
var ErrNoOpenAttendance = errors.New("no open attendance")

// ErrConflict is returned when an insert violates a uniqueness
// constraint other than the channel name.
var ErrConflict = errors.New("conflict")

// isUniqueViolation reports whether err is a unique-key violation from
// either supported driver.
func isUniqueViolation(err error) bool {
    var me *mysql.MySQLError
    if errors.As(err, &me) {
        return me.Number == 1062
    }
    var se *sqlite.Error
    if errors.As(err, &se) {
        return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
    }
    return false
}

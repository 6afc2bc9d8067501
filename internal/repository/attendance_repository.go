package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/live-classroom/internal/database"
	"github.com/iliyamo/live-classroom/internal/model"
)

const attendanceColumns = `id, org_id, session_id, user_id, joined_at, left_at, total_seconds`

// AttendanceRepo stores the dwell interval of each (session, user).
type AttendanceRepo struct {
	db *database.DB
}

func NewAttendanceRepo(db *database.DB) *AttendanceRepo { return &AttendanceRepo{db: db} }

func scanAttendance(row rowScanner) (*model.Attendance, error) {
	var (
		a     model.Attendance
		orgID sql.NullInt64
		left  sql.NullTime
	)
	if err := row.Scan(&a.ID, &orgID, &a.SessionID, &a.UserID, &a.JoinedAt, &left, &a.TotalSeconds); err != nil {
		return nil, err
	}
	a.OrgID = idPtr(orgID)
	a.JoinedAt = a.JoinedAt.UTC()
	a.LeftAt = timePtr(left)
	return &a, nil
}

func (r *AttendanceRepo) getTx(ctx context.Context, tx *sql.Tx, sessionID, userID uint64) (*model.Attendance, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+attendanceColumns+` FROM attendances WHERE session_id = ? AND user_id = ?`, sessionID, userID)
	a, err := scanAttendance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// OpenTx moves the (session, user) interval to OPEN.  A missing row is
// created with joined_at = now.  A closed row is re-opened: joined_at is
// reset, left_at cleared and total_seconds zeroed, so only the latest
// segment is kept.  An already open row is returned unchanged.
func (r *AttendanceRepo) OpenTx(ctx context.Context, tx *sql.Tx, orgID *uint64, sessionID, userID uint64, now time.Time) (*model.Attendance, error) {
	now = now.UTC().Truncate(time.Second)
	a, err := r.getTx(ctx, tx, sessionID, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		res, err := tx.ExecContext(ctx,
			`INSERT INTO attendances (org_id, session_id, user_id, joined_at, left_at, total_seconds) VALUES (?, ?, ?, ?, NULL, 0)`,
			nullID(orgID), sessionID, userID, ts(now),
		)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		return &model.Attendance{ID: uint64(id), OrgID: orgID, SessionID: sessionID, UserID: userID, JoinedAt: now}, nil
	case err != nil:
		return nil, err
	}
	if a.LeftAt == nil {
		return a, nil
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE attendances SET joined_at = ?, left_at = NULL, total_seconds = 0 WHERE id = ?`,
		ts(now), a.ID,
	); err != nil {
		return nil, err
	}
	a.JoinedAt = now
	a.LeftAt = nil
	a.TotalSeconds = 0
	return a, nil
}

// CloseTx closes the open interval of the user.  It returns
// ErrNoOpenAttendance when there is no row or the row is already closed.
func (r *AttendanceRepo) CloseTx(ctx context.Context, tx *sql.Tx, sessionID, userID uint64, now time.Time) (*model.Attendance, error) {
	now = now.UTC().Truncate(time.Second)
	a, err := r.getTx(ctx, tx, sessionID, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoOpenAttendance
	}
	if err != nil {
		return nil, err
	}
	if a.LeftAt != nil {
		return nil, ErrNoOpenAttendance
	}
	total := model.DwellSeconds(a.JoinedAt, now)
	if _, err := tx.ExecContext(ctx,
		`UPDATE attendances SET left_at = ?, total_seconds = ? WHERE id = ?`,
		ts(now), total, a.ID,
	); err != nil {
		return nil, err
	}
	a.LeftAt = &now
	a.TotalSeconds = total
	return a, nil
}

// CloseAllOpenTx force-closes every open interval of a session at now and
// returns the closed rows.
func (r *AttendanceRepo) CloseAllOpenTx(ctx context.Context, tx *sql.Tx, sessionID uint64, now time.Time) ([]model.Attendance, error) {
	now = now.UTC().Truncate(time.Second)
	rows, err := tx.QueryContext(ctx, `SELECT `+attendanceColumns+` FROM attendances WHERE session_id = ? AND left_at IS NULL`, sessionID)
	if err != nil {
		return nil, err
	}
	var open []model.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		open = append(open, *a)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	for i := range open {
		total := model.DwellSeconds(open[i].JoinedAt, now)
		if _, err := tx.ExecContext(ctx, `UPDATE attendances SET left_at = ?, total_seconds = ? WHERE id = ?`, ts(now), total, open[i].ID); err != nil {
			return nil, err
		}
		left := now
		open[i].LeftAt = &left
		open[i].TotalSeconds = total
	}
	return open, nil
}

// RecomputeTx rewrites total_seconds of every closed interval in the
// session from its stored timestamps and returns how many rows changed.
func (r *AttendanceRepo) RecomputeTx(ctx context.Context, tx *sql.Tx, sessionID uint64) (int, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+attendanceColumns+` FROM attendances WHERE session_id = ? AND left_at IS NOT NULL`, sessionID)
	if err != nil {
		return 0, err
	}
	var closed []model.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			rows.Close()
			return 0, err
		}
		closed = append(closed, *a)
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}
	changed := 0
	for _, a := range closed {
		want := model.DwellSeconds(a.JoinedAt, *a.LeftAt)
		if want == a.TotalSeconds {
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE attendances SET total_seconds = ? WHERE id = ?`, want, a.ID); err != nil {
			return 0, err
		}
		changed++
	}
	return changed, nil
}

// Get returns the attendance row of a user in a session, or ErrNotFound.
func (r *AttendanceRepo) Get(ctx context.Context, sessionID, userID uint64) (*model.Attendance, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+attendanceColumns+` FROM attendances WHERE session_id = ? AND user_id = ?`, sessionID, userID)
	a, err := scanAttendance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// ListBySession returns every attendance row of a session.
func (r *AttendanceRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.Attendance, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+attendanceColumns+` FROM attendances WHERE session_id = ? ORDER BY joined_at, id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

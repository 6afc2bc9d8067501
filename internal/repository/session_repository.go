package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/live-classroom/internal/database"
	"github.com/iliyamo/live-classroom/internal/model"
)

const sessionColumns = `id, org_id, title, channel_name, owner_id, start_time, duration_min, max_participants, recording_enabled, created_at`

// SessionRepo manages persistence for live sessions.
type SessionRepo struct {
	db *database.DB
}

// NewSessionRepo returns a SessionRepo bound to db.
func NewSessionRepo(db *database.DB) *SessionRepo { return &SessionRepo{db: db} }

// DB exposes the underlying pool so that callers can begin transactions
// spanning several repositories.
func (r *SessionRepo) DB() *database.DB {
	return r.db
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*model.LiveSession, error) {
	var (
		s     model.LiveSession
		orgID sql.NullInt64
		rec   int64
	)
	err := row.Scan(&s.ID, &orgID, &s.Title, &s.ChannelName, &s.OwnerID, &s.StartTime,
		&s.DurationMin, &s.MaxParticipants, &rec, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.OrgID = idPtr(orgID)
	s.RecordingEnabled = rec != 0
	s.StartTime = s.StartTime.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

// Create inserts a session.  A collision on channel_name is reported as
// ErrDuplicateChannel; the generated id is written back to s.
func (r *SessionRepo) Create(ctx context.Context, s *model.LiveSession) error {
	const q = `INSERT INTO live_sessions (org_id, title, channel_name, owner_id, start_time, duration_min, max_participants, recording_enabled, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	rec := 0
	if s.RecordingEnabled {
		rec = 1
	}
	res, err := r.db.ExecContext(ctx, q, nullID(s.OrgID), s.Title, s.ChannelName, s.OwnerID,
		ts(s.StartTime), s.DurationMin, s.MaxParticipants, rec, ts(s.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateChannel
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID returns the session with the given id or ErrSessionNotFound.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.LiveSession, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM live_sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// LockTx reads the session row and takes the session-scoped exclusive
// lock that serializes admission.  The lock is held until tx ends.
func (r *SessionRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.LiveSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM live_sessions WHERE id = ?` + r.db.ForUpdate()
	s, err := scanSession(tx.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// SetCapacityTx updates max_participants.  Existing reservations are not
// touched.
func (r *SessionRepo) SetCapacityTx(ctx context.Context, tx *sql.Tx, id uint64, capacity int) error {
	res, err := tx.ExecContext(ctx, `UPDATE live_sessions SET max_participants = ? WHERE id = ?`, capacity, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 affected rows when the value is unchanged, so
		// confirm the row exists before reporting not found.
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM live_sessions WHERE id = ?`, id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrSessionNotFound
			}
			return err
		}
	}
	return nil
}

// SessionFilter narrows List.  Zero values mean "any".
type SessionFilter struct {
	OrgID   *uint64
	OwnerID *uint64
	// PublicOnly restricts the listing to sessions without an organization.
	PublicOnly bool
	Limit      int
	Offset     int
}

// List returns sessions ordered by start time, newest first.
func (r *SessionRepo) List(ctx context.Context, f SessionFilter) ([]model.LiveSession, error) {
	var (
		where []string
		args  []any
	)
	if f.OrgID != nil {
		where = append(where, "org_id = ?")
		args = append(args, int64(*f.OrgID))
	} else if f.PublicOnly {
		where = append(where, "org_id IS NULL")
	}
	if f.OwnerID != nil {
		where = append(where, "owner_id = ?")
		args = append(args, int64(*f.OwnerID))
	}
	q := `SELECT ` + sessionColumns + ` FROM live_sessions`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q += ` ORDER BY start_time DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.LiveSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

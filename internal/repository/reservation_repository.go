package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/live-classroom/internal/database"
    "github.com/iliyamo/live-classroom/internal/model"
)

const reservationColumns = `id, org_id, session_id, user_id, state, expires_at, created_at, updated_at`

// ReservationRepo provides data access to the seat_reservations table.
// Every method that participates in admission takes the caller's
// transaction; the caller is expected to hold the session lock obtained
// through SessionRepo.LockTx.  All timestamps are passed in by the caller
// so that expiry decisions use a single clock.
type ReservationRepo struct {
    db *database.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the provided database.
func NewReservationRepo(db *database.DB) *ReservationRepo { return &ReservationRepo{db: db} }

func scanReservation(row rowScanner) (*model.SeatReservation, error) {
    var (
        r       model.SeatReservation
        orgID   sql.NullInt64
        state   string
        expires sql.NullTime
    )
    if err := row.Scan(&r.ID, &orgID, &r.SessionID, &r.UserID, &state, &expires, &r.CreatedAt, &r.UpdatedAt); err != nil {
        return nil, err
    }
    r.OrgID = idPtr(orgID)
    r.State = model.ReservationState(state)
    r.ExpiresAt = timePtr(expires)
    r.CreatedAt = r.CreatedAt.UTC()
    r.UpdatedAt = r.UpdatedAt.UTC()
    return &r, nil
}

// CountOccupiedTx counts the reservations that hold a seat in the session
// at instant now: every CONFIRMED row plus PENDING rows whose expiry is
// still in the future.  The requester's own row is excluded so that a
// re-join never competes with itself.
func (r *ReservationRepo) CountOccupiedTx(ctx context.Context, tx *sql.Tx, sessionID, excludeUserID uint64, now time.Time) (int, error) {
    const q = `SELECT COUNT(*) FROM seat_reservations
               WHERE session_id = ? AND user_id <> ?
                 AND (state = 'CONFIRMED' OR (state = 'PENDING' AND expires_at IS NOT NULL AND expires_at > ?))`
    var n int
    if err := tx.QueryRowContext(ctx, q, sessionID, excludeUserID, ts(now)).Scan(&n); err != nil {
        return 0, err
    }
    return n, nil
}

// GetTx returns the reservation of a user in a session, or ErrNotFound.
func (r *ReservationRepo) GetTx(ctx context.Context, tx *sql.Tx, sessionID, userID uint64) (*model.SeatReservation, error) {
    row := tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM seat_reservations WHERE session_id = ? AND user_id = ?`, sessionID, userID)
    res, err := scanReservation(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    return res, err
}

// Get is GetTx outside of a transaction.
func (r *ReservationRepo) Get(ctx context.Context, sessionID, userID uint64) (*model.SeatReservation, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM seat_reservations WHERE session_id = ? AND user_id = ?`, sessionID, userID)
    res, err := scanReservation(row)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    return res, err
}

// UpsertTx writes the single (session, user) reservation row in the given
// state.  The existing row, if any, is updated in place; otherwise a new
// row is inserted.  Because the caller holds the session lock, the
// select-then-write sequence cannot race with another admission for the
// same session.
func (r *ReservationRepo) UpsertTx(ctx context.Context, tx *sql.Tx, res *model.SeatReservation, now time.Time) error {
    existing, err := r.GetTx(ctx, tx, res.SessionID, res.UserID)
    switch {
    case errors.Is(err, ErrNotFound):
        const ins = `INSERT INTO seat_reservations (org_id, session_id, user_id, state, expires_at, created_at, updated_at)
                     VALUES (?, ?, ?, ?, ?, ?, ?)`
        out, err := tx.ExecContext(ctx, ins, nullID(res.OrgID), res.SessionID, res.UserID, string(res.State), nullTime(res.ExpiresAt), ts(now), ts(now))
        if err != nil {
            if isUniqueViolation(err) {
                return ErrConflict
            }
            return err
        }
        id, err := out.LastInsertId()
        if err != nil {
            return err
        }
        res.ID = uint64(id)
        res.CreatedAt = now.UTC().Truncate(time.Second)
        res.UpdatedAt = res.CreatedAt
        return nil
    case err != nil:
        return err
    }
    const upd = `UPDATE seat_reservations SET org_id = ?, state = ?, expires_at = ?, updated_at = ? WHERE id = ?`
    if _, err := tx.ExecContext(ctx, upd, nullID(res.OrgID), string(res.State), nullTime(res.ExpiresAt), ts(now), existing.ID); err != nil {
        return err
    }
    res.ID = existing.ID
    res.CreatedAt = existing.CreatedAt
    res.UpdatedAt = now.UTC().Truncate(time.Second)
    return nil
}

// ReleaseTx marks the user's reservation RELEASED.  It reports whether a
// non-released row existed.
func (r *ReservationRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, sessionID, userID uint64, now time.Time) (bool, error) {
    res, err := tx.ExecContext(ctx,
        `UPDATE seat_reservations SET state = 'RELEASED', updated_at = ? WHERE session_id = ? AND user_id = ? AND state <> 'RELEASED'`,
        ts(now), sessionID, userID,
    )
    if err != nil {
        return false, err
    }
    n, err := res.RowsAffected()
    return n > 0, err
}

// ExpirePendingTx releases every PENDING reservation whose expiry is at or
// before now, across all sessions, and returns the number of rows changed.
func (r *ReservationRepo) ExpirePendingTx(ctx context.Context, tx *sql.Tx, now time.Time) (int64, error) {
    res, err := tx.ExecContext(ctx,
        `UPDATE seat_reservations SET state = 'RELEASED', updated_at = ?
         WHERE state = 'PENDING' AND (expires_at IS NULL OR expires_at <= ?)`,
        ts(now), ts(now),
    )
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// ReclaimStaleConfirmedTx releases CONFIRMED reservations whose grace
// period has lapsed while their holder has no open attendance interval,
// which happens after an administrative force-close.
func (r *ReservationRepo) ReclaimStaleConfirmedTx(ctx context.Context, tx *sql.Tx, now time.Time) (int64, error) {
    res, err := tx.ExecContext(ctx,
        `UPDATE seat_reservations SET state = 'RELEASED', updated_at = ?
         WHERE state = 'CONFIRMED' AND expires_at IS NOT NULL AND expires_at <= ?
           AND NOT EXISTS (
               SELECT 1 FROM attendances a
               WHERE a.session_id = seat_reservations.session_id
                 AND a.user_id = seat_reservations.user_id
                 AND a.left_at IS NULL)`,
        ts(now), ts(now),
    )
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// ListBySession returns all reservations of a session, oldest first.
func (r *ReservationRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.SeatReservation, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT `+reservationColumns+` FROM seat_reservations WHERE session_id = ? ORDER BY created_at, id`, sessionID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.SeatReservation
    for rows.Next() {
        res, err := scanReservation(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *res)
    }
    return out, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/live-classroom/internal/database"
)

// ModerationAction is a recorded moderation event.  TargetUserID is nil
// for session-wide actions such as lock.
type ModerationAction struct {
	ID           uint64    `json:"id"`
	SessionID    uint64    `json:"session_id"`
	ActorID      uint64    `json:"actor_id"`
	TargetUserID *uint64   `json:"target_user_id"`
	Action       string    `json:"action"`
	Detail       string    `json:"detail"`
	CreatedAt    time.Time `json:"created_at"`
}

// ModerationRepo appends to and reads the moderation_actions log.
type ModerationRepo struct {
	db *database.DB
}

func NewModerationRepo(db *database.DB) *ModerationRepo { return &ModerationRepo{db: db} }

// RecordTx appends an action inside the caller's transaction.
func (r *ModerationRepo) RecordTx(ctx context.Context, tx *sql.Tx, a *ModerationAction) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO moderation_actions (session_id, actor_id, target_user_id, action, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.SessionID, a.ActorID, nullID(a.TargetUserID), a.Action, a.Detail, ts(a.CreatedAt),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// ListBySession returns the session's actions, oldest first.
func (r *ModerationRepo) ListBySession(ctx context.Context, sessionID uint64) ([]ModerationAction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, actor_id, target_user_id, action, detail, created_at
		 FROM moderation_actions WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ModerationAction
	for rows.Next() {
		var (
			a      ModerationAction
			target sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.SessionID, &a.ActorID, &target, &a.Action, &a.Detail, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.TargetUserID = idPtr(target)
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/live-classroom/internal/database"
	"github.com/iliyamo/live-classroom/internal/model"
	"github.com/iliyamo/live-classroom/internal/monitoring"
	"github.com/iliyamo/live-classroom/internal/queue"
	"github.com/iliyamo/live-classroom/internal/repository"
)

// Moderation actions.
const (
	ActionLock     = "lock"
	ActionUnlock   = "unlock"
	ActionCapacity = "capacity"
	ActionKick     = "kick"
	ActionMute     = "mute"
	ActionEvict    = "evict"
)

// ModerationConfig holds moderation defaults.
type ModerationConfig struct {
	// UnlockCapacity is used when unlock is called without a capacity.
	UnlockCapacity int
	Now            func() time.Time
}

// Actor is the caller of a moderation operation in its tenant context.
type Actor struct {
	UserID uint64
	Org    *model.Organization
	Roles  model.Roles
}

// ModerationResult reports the session after a capacity change, or the
// affected user for participant actions.
type ModerationResult struct {
	Action       string            `json:"action"`
	SessionID    uint64            `json:"session_id"`
	Capacity     *int              `json:"capacity,omitempty"`
	TargetUserID uint64            `json:"target_user_id,omitempty"`
	Attendance   *model.Attendance `json:"attendance,omitempty"`
}

// ModerationService applies operational controls to live sessions.  Kick
// and mute are advisory: they are recorded and forwarded to the transport
// as signals but leave reservations and attendance alone.  Evict is the
// combined operation that also frees the seat.
type ModerationService struct {
	db           *database.DB
	sessions     *repository.SessionRepo
	reservations *repository.ReservationRepo
	attendance   *repository.AttendanceRepo
	actions      *repository.ModerationRepo
	events       emitter
	cfg          ModerationConfig
}

func NewModerationService(db *database.DB, sessions *repository.SessionRepo, reservations *repository.ReservationRepo,
	attendance *repository.AttendanceRepo, actions *repository.ModerationRepo, pub EventPublisher, cfg ModerationConfig, logger *slog.Logger) *ModerationService {
	if cfg.UnlockCapacity <= 0 {
		cfg.UnlockCapacity = 20
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ModerationService{
		db:           db,
		sessions:     sessions,
		reservations: reservations,
		attendance:   attendance,
		actions:      actions,
		events:       emitter{pub: pub, log: logger},
		cfg:          cfg,
	}
}

// moderate runs fn under the session lock after the tenancy and
// moderator checks, records the action and, once committed, emits the
// signal.
func (m *ModerationService) moderate(ctx context.Context, actor Actor, sessionID uint64, action string, target uint64, detail string,
	fn func(tx *sql.Tx, sess *model.LiveSession, now time.Time) error) (*model.LiveSession, error) {
	now := m.cfg.Now().UTC().Truncate(time.Second)
	var locked *model.LiveSession
	err := lockedTx(ctx, m.db, m.sessions, sessionID, func(tx *sql.Tx, sess *model.LiveSession) error {
		if err := AuthorizeSession(actor.Org, actor.Roles, sess); err != nil {
			return err
		}
		if !CanModerate(actor.Roles, sess) {
			return ErrForbidden
		}
		if fn != nil {
			if err := fn(tx, sess, now); err != nil {
				return err
			}
		}
		rec := &repository.ModerationAction{
			SessionID: sess.ID,
			ActorID:   actor.UserID,
			Action:    action,
			Detail:    detail,
			CreatedAt: now,
		}
		if target != 0 {
			t := target
			rec.TargetUserID = &t
		}
		if err := m.actions.RecordTx(ctx, tx, rec); err != nil {
			return err
		}
		locked = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	monitoring.ModerationAction(action)
	ev := queue.ModerationSignalEvent{
		EventID:      uuid.NewString(),
		Action:       action,
		SessionID:    locked.ID,
		OrgID:        locked.OrgID,
		Channel:      locked.ChannelName,
		ActorID:      actor.UserID,
		TargetUserID: target,
		IssuedAt:     rfc3339(now),
	}
	if target != 0 {
		ev.TargetUID = UIDFor(target)
	}
	if action == ActionLock || action == ActionUnlock || action == ActionCapacity {
		c := locked.MaxParticipants
		ev.Capacity = &c
	}
	m.events.moderation(ev)
	return locked, nil
}

func (m *ModerationService) setCapacity(ctx context.Context, actor Actor, sessionID uint64, action string, capacity int) (*ModerationResult, error) {
	_, err := m.moderate(ctx, actor, sessionID, action, 0, fmt.Sprintf("capacity=%d", capacity),
		func(tx *sql.Tx, sess *model.LiveSession, _ time.Time) error {
			if err := m.sessions.SetCapacityTx(ctx, tx, sess.ID, capacity); err != nil {
				return err
			}
			sess.MaxParticipants = capacity
			return nil
		})
	if err != nil {
		return nil, err
	}
	c := capacity
	return &ModerationResult{Action: action, SessionID: sessionID, Capacity: &c}, nil
}

// Lock sets the session's capacity to zero.  Existing occupants keep
// their reservations and attendance; only new admissions are refused.
func (m *ModerationService) Lock(ctx context.Context, actor Actor, sessionID uint64) (*ModerationResult, error) {
	return m.setCapacity(ctx, actor, sessionID, ActionLock, 0)
}

// Unlock restores a positive capacity.  A nil capacity selects the
// configured default.
func (m *ModerationService) Unlock(ctx context.Context, actor Actor, sessionID uint64, capacity *int) (*ModerationResult, error) {
	c := m.cfg.UnlockCapacity
	if capacity != nil {
		c = *capacity
	}
	if c <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", ErrInvalidInput)
	}
	return m.setCapacity(ctx, actor, sessionID, ActionUnlock, c)
}

// SetCapacity changes max participants.  Zero is equivalent to Lock.
func (m *ModerationService) SetCapacity(ctx context.Context, actor Actor, sessionID uint64, capacity int) (*ModerationResult, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: capacity must not be negative", ErrInvalidInput)
	}
	return m.setCapacity(ctx, actor, sessionID, ActionCapacity, capacity)
}

// Kick signals the transport to disconnect target.
func (m *ModerationService) Kick(ctx context.Context, actor Actor, sessionID, target uint64) (*ModerationResult, error) {
	return m.signal(ctx, actor, sessionID, ActionKick, target)
}

// Mute signals the transport to mute target.
func (m *ModerationService) Mute(ctx context.Context, actor Actor, sessionID, target uint64) (*ModerationResult, error) {
	return m.signal(ctx, actor, sessionID, ActionMute, target)
}

func (m *ModerationService) signal(ctx context.Context, actor Actor, sessionID uint64, action string, target uint64) (*ModerationResult, error) {
	if target == 0 {
		return nil, fmt.Errorf("%w: user_id required", ErrInvalidInput)
	}
	if _, err := m.moderate(ctx, actor, sessionID, action, target, "", nil); err != nil {
		return nil, err
	}
	return &ModerationResult{Action: action, SessionID: sessionID, TargetUserID: target}, nil
}

// Evict kicks target and frees their seat in one transaction: the
// reservation is released and an open attendance interval is closed.  A
// target who is not currently joined still loses any reservation.
func (m *ModerationService) Evict(ctx context.Context, actor Actor, sessionID, target uint64) (*ModerationResult, error) {
	if target == 0 {
		return nil, fmt.Errorf("%w: user_id required", ErrInvalidInput)
	}
	var closed *model.Attendance
	_, err := m.moderate(ctx, actor, sessionID, ActionEvict, target, "",
		func(tx *sql.Tx, sess *model.LiveSession, now time.Time) error {
			att, err := releaseAndCloseTx(ctx, tx, m.reservations, m.attendance, sess.ID, target, now)
			if errors.Is(err, ErrNotJoined) {
				_, err = m.reservations.ReleaseTx(ctx, tx, sess.ID, target, now)
				return err
			}
			if err != nil {
				return err
			}
			closed = att
			return nil
		})
	if err != nil {
		return nil, err
	}
	if closed != nil {
		m.events.attendance(attendanceEvent(queue.AttendanceLeft, closed, *closed.LeftAt))
	}
	return &ModerationResult{Action: ActionEvict, SessionID: sessionID, TargetUserID: target, Attendance: closed}, nil
}

// Actions returns the recorded moderation history of a session.
func (m *ModerationService) Actions(ctx context.Context, roles model.Roles, sess *model.LiveSession) ([]repository.ModerationAction, error) {
	if !CanModerate(roles, sess) {
		return nil, ErrForbidden
	}
	return m.actions.ListBySession(ctx, sess.ID)
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/iliyamo/live-classroom/internal/database"
	"github.com/iliyamo/live-classroom/internal/model"
	"github.com/iliyamo/live-classroom/internal/monitoring"
	"github.com/iliyamo/live-classroom/internal/queue"
	"github.com/iliyamo/live-classroom/internal/repository"
)

// AdmissionConfig tunes seat admission.
type AdmissionConfig struct {
	// Grace is how long a CONFIRMED seat stays claimed after the last
	// (re)join once its holder has no open attendance.
	Grace time.Duration
	// HoldTTL is the lifetime of a PENDING hold.
	HoldTTL time.Duration
	Now     func() time.Time
}

// AdmissionRequest identifies who is asking for what, in which tenant
// context.
type AdmissionRequest struct {
	SessionID uint64
	UserID    uint64
	Org       *model.Organization
	Roles     model.Roles
}

// JoinResult is the state after a successful join.
type JoinResult struct {
	Reservation *model.SeatReservation
	Attendance  *model.Attendance
}

// LeaveResult is the closed interval after a leave.
type LeaveResult struct {
	Attendance   *model.Attendance
	TotalSeconds int64
}

// AdmissionService is the seat admission controller.  Every mutation runs
// in one transaction that first takes the session row lock, so the
// capacity check and the reservation write are linearized per session
// while different sessions proceed in parallel.
type AdmissionService struct {
	db           *database.DB
	sessions     *repository.SessionRepo
	reservations *repository.ReservationRepo
	attendance   *repository.AttendanceRepo
	events       emitter
	cfg          AdmissionConfig
}

func NewAdmissionService(db *database.DB, sessions *repository.SessionRepo, reservations *repository.ReservationRepo,
	attendance *repository.AttendanceRepo, pub EventPublisher, cfg AdmissionConfig, logger *slog.Logger) *AdmissionService {
	if cfg.Grace <= 0 {
		cfg.Grace = 5 * time.Minute
	}
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = 5 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AdmissionService{
		db:           db,
		sessions:     sessions,
		reservations: reservations,
		attendance:   attendance,
		events:       emitter{pub: pub, log: logger},
		cfg:          cfg,
	}
}

// withSessionLock runs fn in a transaction holding the session row lock.
// The transaction commits only when fn returns nil.
func (s *AdmissionService) withSessionLock(ctx context.Context, req AdmissionRequest, fn func(tx *sql.Tx, sess *model.LiveSession) error) error {
	return lockedTx(ctx, s.db, s.sessions, req.SessionID, func(tx *sql.Tx, sess *model.LiveSession) error {
		if err := AuthorizeSession(req.Org, req.Roles, sess); err != nil {
			return err
		}
		return fn(tx, sess)
	})
}

// lockedTx begins a transaction, locks the session row and runs fn.
func lockedTx(ctx context.Context, db *database.DB, sessions *repository.SessionRepo, sessionID uint64, fn func(tx *sql.Tx, sess *model.LiveSession) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	sess, err := sessions.LockTx(ctx, tx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	if err := fn(tx, sess); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// admitTx applies the capacity rule for the requester and writes their
// reservation in the given state.  A requester whose own reservation
// already occupies a seat is re-admitted without consuming another one,
// which keeps existing occupants in place after a lock.
func (s *AdmissionService) admitTx(ctx context.Context, tx *sql.Tx, sess *model.LiveSession, userID uint64, state model.ReservationState, expires time.Time, now time.Time) (*model.SeatReservation, error) {
	own, err := s.reservations.GetTx(ctx, tx, sess.ID, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if own == nil || !own.Occupies(now) {
		taken, err := s.reservations.CountOccupiedTx(ctx, tx, sess.ID, userID, now)
		if err != nil {
			return nil, err
		}
		if taken >= sess.MaxParticipants {
			return nil, ErrSessionFull
		}
	}
	res := &model.SeatReservation{
		OrgID:     sess.OrgID,
		SessionID: sess.ID,
		UserID:    userID,
		State:     state,
		ExpiresAt: &expires,
	}
	if err := s.reservations.UpsertTx(ctx, tx, res, now); err != nil {
		return nil, err
	}
	return res, nil
}

// Join admits the user into the session and opens their attendance.
// Every (re)join resets the reservation's expiry to now + grace.
func (s *AdmissionService) Join(ctx context.Context, req AdmissionRequest) (*JoinResult, error) {
	start := time.Now()
	now := s.cfg.Now().UTC().Truncate(time.Second)
	var out JoinResult
	err := s.withSessionLock(ctx, req, func(tx *sql.Tx, sess *model.LiveSession) error {
		res, err := s.admitTx(ctx, tx, sess, req.UserID, model.ReservationConfirmed, now.Add(s.cfg.Grace), now)
		if err != nil {
			return err
		}
		att, err := s.attendance.OpenTx(ctx, tx, sess.OrgID, sess.ID, req.UserID, now)
		if err != nil {
			return err
		}
		out = JoinResult{Reservation: res, Attendance: att}
		return nil
	})
	monitoring.ObserveAdmission("join", resultLabel(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	s.events.attendance(attendanceEvent(queue.AttendanceJoined, out.Attendance, now))
	return &out, nil
}

// Hold places a PENDING reservation that lapses after the hold TTL.  A
// user who already holds a CONFIRMED seat keeps it unchanged.
func (s *AdmissionService) Hold(ctx context.Context, req AdmissionRequest) (*model.SeatReservation, error) {
	start := time.Now()
	now := s.cfg.Now().UTC().Truncate(time.Second)
	var out *model.SeatReservation
	err := s.withSessionLock(ctx, req, func(tx *sql.Tx, sess *model.LiveSession) error {
		own, err := s.reservations.GetTx(ctx, tx, sess.ID, req.UserID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if own != nil && own.State == model.ReservationConfirmed {
			out = own
			return nil
		}
		out, err = s.admitTx(ctx, tx, sess, req.UserID, model.ReservationPending, now.Add(s.cfg.HoldTTL), now)
		return err
	})
	monitoring.ObserveAdmission("hold", resultLabel(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Leave releases the user's seat and closes their attendance interval.
// Without an open interval nothing is written and ErrNotJoined is
// returned, so a repeated leave is harmless.
func (s *AdmissionService) Leave(ctx context.Context, req AdmissionRequest) (*LeaveResult, error) {
	start := time.Now()
	now := s.cfg.Now().UTC().Truncate(time.Second)
	var out LeaveResult
	err := s.withSessionLock(ctx, req, func(tx *sql.Tx, sess *model.LiveSession) error {
		att, err := releaseAndCloseTx(ctx, tx, s.reservations, s.attendance, sess.ID, req.UserID, now)
		if err != nil {
			return err
		}
		out = LeaveResult{Attendance: att, TotalSeconds: att.TotalSeconds}
		return nil
	})
	monitoring.ObserveAdmission("leave", resultLabel(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	s.events.attendance(attendanceEvent(queue.AttendanceLeft, out.Attendance, now))
	return &out, nil
}

// releaseAndCloseTx is the shared leave/evict step: the reservation goes
// to RELEASED and the open interval is closed at now.
func releaseAndCloseTx(ctx context.Context, tx *sql.Tx, reservations *repository.ReservationRepo, attendance *repository.AttendanceRepo, sessionID, userID uint64, now time.Time) (*model.Attendance, error) {
	att, err := attendance.CloseTx(ctx, tx, sessionID, userID, now)
	if errors.Is(err, repository.ErrNoOpenAttendance) {
		return nil, ErrNotJoined
	}
	if err != nil {
		return nil, err
	}
	if _, err := reservations.ReleaseTx(ctx, tx, sessionID, userID, now); err != nil {
		return nil, err
	}
	return att, nil
}

// Reservation returns the user's reservation in a session.
func (s *AdmissionService) Reservation(ctx context.Context, sessionID, userID uint64) (*model.SeatReservation, error) {
	res, err := s.reservations.Get(ctx, sessionID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotJoined
	}
	return res, err
}

// Reservations lists a session's reservations for a moderator.
func (s *AdmissionService) Reservations(ctx context.Context, roles model.Roles, sess *model.LiveSession) ([]model.SeatReservation, error) {
	if !CanModerate(roles, sess) {
		return nil, ErrForbidden
	}
	return s.reservations.ListBySession(ctx, sess.ID)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSessionFull):
		return "full"
	case errors.Is(err, ErrNotJoined):
		return "not_joined"
	case errors.Is(err, ErrMissingTenant), errors.Is(err, ErrNotMember), errors.Is(err, ErrForbidden):
		return "denied"
	case errors.Is(err, ErrSessionNotFound):
		return "not_found"
	}
	return "error"
}

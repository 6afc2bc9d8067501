package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/iliyamo/live-classroom/internal/database"
	"github.com/iliyamo/live-classroom/internal/model"
	"github.com/iliyamo/live-classroom/internal/queue"
	"github.com/iliyamo/live-classroom/internal/repository"
)

// AttendanceService exposes attendance records and the administrative
// operations on them.  Join and leave transitions live in
// AdmissionService because they share its transaction.
type AttendanceService struct {
	db         *database.DB
	sessions   *repository.SessionRepo
	attendance *repository.AttendanceRepo
	events     emitter
	now        func() time.Time
}

func NewAttendanceService(db *database.DB, sessions *repository.SessionRepo, attendance *repository.AttendanceRepo,
	pub EventPublisher, now func() time.Time, logger *slog.Logger) *AttendanceService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AttendanceService{db: db, sessions: sessions, attendance: attendance, events: emitter{pub: pub, log: logger}, now: now}
}

// Mine returns the caller's attendance in a session.
func (s *AttendanceService) Mine(ctx context.Context, sessionID, userID uint64) (*model.Attendance, error) {
	a, err := s.attendance.Get(ctx, sessionID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotJoined
	}
	return a, err
}

// List returns every attendance row of a session to a moderator.
func (s *AttendanceService) List(ctx context.Context, roles model.Roles, sess *model.LiveSession) ([]model.Attendance, error) {
	if !CanModerate(roles, sess) {
		return nil, ErrForbidden
	}
	return s.attendance.ListBySession(ctx, sess.ID)
}

// ForceCloseAll closes every open interval of the session at the current
// time.  Reservations are left for the sweeper, which releases them once
// their grace has lapsed.
func (s *AttendanceService) ForceCloseAll(ctx context.Context, org *model.Organization, roles model.Roles, sessionID uint64) ([]model.Attendance, error) {
	now := s.now().UTC().Truncate(time.Second)
	var closed []model.Attendance
	err := lockedTx(ctx, s.db, s.sessions, sessionID, func(tx *sql.Tx, sess *model.LiveSession) error {
		if err := AuthorizeSession(org, roles, sess); err != nil {
			return err
		}
		if !CanModerate(roles, sess) {
			return ErrForbidden
		}
		var err error
		closed, err = s.attendance.CloseAllOpenTx(ctx, tx, sess.ID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	for i := range closed {
		s.events.attendance(attendanceEvent(queue.AttendanceForceClosed, &closed[i], now))
	}
	return closed, nil
}

// Recompute rewrites total_seconds of the session's closed intervals from
// their stored timestamps.  It is idempotent.
func (s *AttendanceService) Recompute(ctx context.Context, org *model.Organization, roles model.Roles, sessionID uint64) (int, error) {
	var changed int
	err := lockedTx(ctx, s.db, s.sessions, sessionID, func(tx *sql.Tx, sess *model.LiveSession) error {
		if err := AuthorizeSession(org, roles, sess); err != nil {
			return err
		}
		if !CanModerate(roles, sess) {
			return ErrForbidden
		}
		var err error
		changed, err = s.attendance.RecomputeTx(ctx, tx, sess.ID)
		return err
	})
	return changed, err
}

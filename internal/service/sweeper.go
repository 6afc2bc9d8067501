package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/live-classroom/internal/database"
	"github.com/iliyamo/live-classroom/internal/monitoring"
	"github.com/iliyamo/live-classroom/internal/repository"
)

// Sweeper periodically reclaims seats.  Expired PENDING holds are already
// ignored by the admission count; the sweep makes their release visible.
// CONFIRMED seats whose grace lapsed without an open attendance interval
// are released as well.  Releasing only ever lowers occupancy, so the
// sweep does not take session locks.
type Sweeper struct {
	db           *database.DB
	reservations *repository.ReservationRepo
	interval     time.Duration
	now          func() time.Time
	log          *slog.Logger
}

func NewSweeper(db *database.DB, reservations *repository.ReservationRepo, interval time.Duration, now func() time.Time, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{db: db, reservations: reservations, interval: interval, now: now, log: logger}
}

// SweepOnce runs one reclamation pass in a single transaction.
func (s *Sweeper) SweepOnce(ctx context.Context) (pending, confirmed int64, err error) {
	defer func() { monitoring.SweepCompleted(pending, confirmed, err) }()

	now := s.now().UTC().Truncate(time.Second)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if pending, err = s.reservations.ExpirePendingTx(ctx, tx, now); err != nil {
		return 0, 0, err
	}
	if confirmed, err = s.reservations.ReclaimStaleConfirmedTx(ctx, tx, now); err != nil {
		return 0, 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, 0, err
	}
	committed = true
	return pending, confirmed, nil
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, confirmed, err := s.SweepOnce(ctx)
			if err != nil {
				s.log.Error("seat sweep failed", "err", err)
				continue
			}
			if pending > 0 || confirmed > 0 {
				s.log.Info("seat sweep reclaimed reservations", "pending", pending, "confirmed", confirmed)
			}
		}
	}
}

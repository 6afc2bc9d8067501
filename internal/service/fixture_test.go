package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/live-classroom/internal/database"
	"github.com/iliyamo/live-classroom/internal/model"
	"github.com/iliyamo/live-classroom/internal/queue"
	"github.com/iliyamo/live-classroom/internal/repository"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// recordingPublisher captures events published by the services.
type recordingPublisher struct {
	mu         sync.Mutex
	moderation []queue.ModerationSignalEvent
	attendance []queue.AttendanceEvent
}

func (p *recordingPublisher) PublishModeration(_ context.Context, ev queue.ModerationSignalEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.moderation = append(p.moderation, ev)
	return nil
}

func (p *recordingPublisher) PublishAttendance(_ context.Context, ev queue.AttendanceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attendance = append(p.attendance, ev)
	return nil
}

func (p *recordingPublisher) moderationActions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.moderation))
	for _, ev := range p.moderation {
		out = append(out, ev.Action)
	}
	return out
}

func (p *recordingPublisher) attendanceCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.attendance)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err, "failed to create test database")
	require.NoError(t, database.Migrate(context.Background(), db), "failed to run migrations")
	t.Cleanup(func() { db.Close() })
	return db
}

type fixture struct {
	db           *database.DB
	clock        *fakeClock
	events       *recordingPublisher
	orgs         *repository.OrgRepo
	reservations *repository.ReservationRepo
	attendance   *repository.AttendanceRepo
	resolver     *RoleResolver
	sessions     *SessionService
	admission    *AdmissionService
	attendances  *AttendanceService
	moderation   *ModerationService
	sweeper      *Sweeper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	clock := newFakeClock()
	events := &recordingPublisher{}
	log := discardLogger()

	orgs := repository.NewOrgRepo(db)
	sessionRepo := repository.NewSessionRepo(db)
	reservations := repository.NewReservationRepo(db)
	attendance := repository.NewAttendanceRepo(db)
	actions := repository.NewModerationRepo(db)

	return &fixture{
		db:           db,
		clock:        clock,
		events:       events,
		orgs:         orgs,
		reservations: reservations,
		attendance:   attendance,
		resolver:     NewRoleResolver(orgs, log),
		sessions:     NewSessionService(sessionRepo, SessionConfig{Now: clock.Now}),
		admission: NewAdmissionService(db, sessionRepo, reservations, attendance, events,
			AdmissionConfig{Grace: 5 * time.Minute, HoldTTL: 2 * time.Minute, Now: clock.Now}, log),
		attendances: NewAttendanceService(db, sessionRepo, attendance, events, clock.Now, log),
		moderation: NewModerationService(db, sessionRepo, reservations, attendance, actions, events,
			ModerationConfig{Now: clock.Now}, log),
		sweeper: NewSweeper(db, reservations, time.Minute, clock.Now, log),
	}
}

func (f *fixture) newOrg(t *testing.T, slug string, ownerID uint64) *model.Organization {
	t.Helper()
	org := &model.Organization{Name: slug, Slug: slug, OwnerID: ownerID}
	require.NoError(t, f.orgs.Create(context.Background(), org))
	require.NoError(t, f.orgs.AddMember(context.Background(), org.ID, ownerID, model.OrgRoleOwner))
	return org
}

func (f *fixture) roles(userID uint64, org *model.Organization) model.Roles {
	return f.resolver.Resolve(context.Background(), model.Principal{UserID: userID}, orgID(org))
}

func (f *fixture) newSession(t *testing.T, ownerID uint64, org *model.Organization, capacity int) *model.LiveSession {
	t.Helper()
	sess, err := f.sessions.Create(context.Background(), ownerID, org, f.roles(ownerID, org),
		CreateSessionInput{Title: "Physics 101", MaxParticipants: &capacity})
	require.NoError(t, err)
	return sess
}

func (f *fixture) req(sess *model.LiveSession, userID uint64, org *model.Organization) AdmissionRequest {
	return AdmissionRequest{SessionID: sess.ID, UserID: userID, Org: org, Roles: f.roles(userID, org)}
}

func (f *fixture) actor(userID uint64, org *model.Organization) Actor {
	return Actor{UserID: userID, Org: org, Roles: f.roles(userID, org)}
}

// setJoinedAt rewrites the stored joined_at of an attendance row, leaving
// total_seconds stale until the next recompute.
func (f *fixture) setJoinedAt(t *testing.T, id uint64, joined time.Time) {
	t.Helper()
	_, err := f.db.ExecContext(context.Background(), `UPDATE attendances SET joined_at = ? WHERE id = ?`,
		joined.UTC().Format("2006-01-02 15:04:05"), id)
	require.NoError(t, err)
}

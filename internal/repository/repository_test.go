package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/live-classroom/internal/database"
	"github.com/iliyamo/live-classroom/internal/model"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db))
	t.Cleanup(func() { db.Close() })
	return db
}

func createSession(t *testing.T, repo *SessionRepo, channel string, orgID *uint64) *model.LiveSession {
	t.Helper()
	s := &model.LiveSession{
		OrgID:           orgID,
		Title:           "Chemistry",
		ChannelName:     channel,
		OwnerID:         1,
		StartTime:       t0,
		DurationMin:     45,
		MaxParticipants: 2,
		CreatedAt:       t0,
	}
	require.NoError(t, repo.Create(context.Background(), s))
	return s
}

// inTx runs fn in a transaction and commits it.
func inTx(t *testing.T, db *database.DB, fn func(tx *sql.Tx)) {
	t.Helper()
	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	fn(tx)
	require.NoError(t, tx.Commit())
}

func TestSessionRepo_CreateGetLock(t *testing.T) {
	db := newTestDB(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()

	s := createSession(t, repo, "chemistry-1-aaaaaaaa", nil)
	assert.NotZero(t, s.ID)

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "chemistry-1-aaaaaaaa", got.ChannelName)
	assert.Nil(t, got.OrgID)
	assert.Equal(t, 45, got.DurationMin)
	assert.True(t, t0.Equal(got.StartTime))

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	dup := &model.LiveSession{Title: "x", ChannelName: "chemistry-1-aaaaaaaa", OwnerID: 2, StartTime: t0, DurationMin: 1, CreatedAt: t0}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicateChannel)

	inTx(t, db, func(tx *sql.Tx) {
		locked, err := repo.LockTx(ctx, tx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, locked.ID)
		require.NoError(t, repo.SetCapacityTx(ctx, tx, s.ID, 0))
		assert.ErrorIs(t, repo.SetCapacityTx(ctx, tx, 999, 3), ErrSessionNotFound)
	})
	got, err = repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.Locked())
}

func TestReservationRepo_UpsertKeepsOneRowPerUser(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionRepo(db)
	repo := NewReservationRepo(db)
	ctx := context.Background()
	s := createSession(t, sessions, "chemistry-1-bbbbbbbb", nil)

	pendingUntil := t0.Add(time.Minute)
	confirmedUntil := t0.Add(5 * time.Minute)
	inTx(t, db, func(tx *sql.Tx) {
		first := &model.SeatReservation{SessionID: s.ID, UserID: 10, State: model.ReservationPending, ExpiresAt: &pendingUntil}
		require.NoError(t, repo.UpsertTx(ctx, tx, first, t0))
		second := &model.SeatReservation{SessionID: s.ID, UserID: 10, State: model.ReservationConfirmed, ExpiresAt: &confirmedUntil}
		require.NoError(t, repo.UpsertTx(ctx, tx, second, t0.Add(time.Second)))
		assert.Equal(t, first.ID, second.ID)
	})

	all, err := repo.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, model.ReservationConfirmed, all[0].State)
	require.NotNil(t, all[0].ExpiresAt)
	assert.True(t, confirmedUntil.Equal(*all[0].ExpiresAt))
}

func TestReservationRepo_CountOccupied(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionRepo(db)
	repo := NewReservationRepo(db)
	ctx := context.Background()
	s := createSession(t, sessions, "chemistry-1-cccccccc", nil)

	live := t0.Add(time.Minute)
	lapsed := t0.Add(-time.Minute)
	inTx(t, db, func(tx *sql.Tx) {
		for _, r := range []*model.SeatReservation{
			{SessionID: s.ID, UserID: 1, State: model.ReservationConfirmed, ExpiresAt: &lapsed},
			{SessionID: s.ID, UserID: 2, State: model.ReservationPending, ExpiresAt: &live},
			{SessionID: s.ID, UserID: 3, State: model.ReservationPending, ExpiresAt: &lapsed},
			{SessionID: s.ID, UserID: 4, State: model.ReservationReleased},
		} {
			require.NoError(t, repo.UpsertTx(ctx, tx, r, t0))
		}
		n, err := repo.CountOccupiedTx(ctx, tx, s.ID, 0, t0)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = repo.CountOccupiedTx(ctx, tx, s.ID, 1, t0)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "the requester's own row is excluded")

		released, err := repo.ReleaseTx(ctx, tx, s.ID, 2, t0)
		require.NoError(t, err)
		assert.True(t, released)
		released, err = repo.ReleaseTx(ctx, tx, s.ID, 2, t0)
		require.NoError(t, err)
		assert.False(t, released)

		expired, err := repo.ExpirePendingTx(ctx, tx, t0)
		require.NoError(t, err)
		assert.EqualValues(t, 1, expired)
	})
}

func TestAttendanceRepo_OpenCloseReopen(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionRepo(db)
	repo := NewAttendanceRepo(db)
	ctx := context.Background()
	s := createSession(t, sessions, "chemistry-1-dddddddd", nil)

	inTx(t, db, func(tx *sql.Tx) {
		_, err := repo.CloseTx(ctx, tx, s.ID, 10, t0)
		assert.ErrorIs(t, err, ErrNoOpenAttendance)

		opened, err := repo.OpenTx(ctx, tx, nil, s.ID, 10, t0)
		require.NoError(t, err)
		again, err := repo.OpenTx(ctx, tx, nil, s.ID, 10, t0.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, opened.ID, again.ID)
		assert.True(t, t0.Equal(again.JoinedAt), "an open interval keeps its start")

		closed, err := repo.CloseTx(ctx, tx, s.ID, 10, t0.Add(75*time.Second))
		require.NoError(t, err)
		assert.EqualValues(t, 75, closed.TotalSeconds)

		_, err = repo.CloseTx(ctx, tx, s.ID, 10, t0.Add(80*time.Second))
		assert.ErrorIs(t, err, ErrNoOpenAttendance)

		reopened, err := repo.OpenTx(ctx, tx, nil, s.ID, 10, t0.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, opened.ID, reopened.ID)
		assert.Nil(t, reopened.LeftAt)
		assert.EqualValues(t, 0, reopened.TotalSeconds)
	})

	got, err := repo.Get(ctx, s.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, model.AttendanceOpen, got.State())
	assert.True(t, t0.Add(time.Hour).Equal(got.JoinedAt))
}

func TestOrgRepo_MembershipAndRoles(t *testing.T) {
	db := newTestDB(t)
	repo := NewOrgRepo(db)
	ctx := context.Background()

	org := &model.Organization{Name: "North", Slug: "north", OwnerID: 1, Kind: model.OrgKindKindergarten}
	require.NoError(t, repo.Create(ctx, org))
	assert.ErrorIs(t, repo.Create(ctx, &model.Organization{Name: "North 2", Slug: "north", OwnerID: 2}), ErrConflict)

	got, err := repo.GetByID(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrgKindKindergarten, got.Kind)
	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, ok, err := repo.OrgRole(ctx, org.ID, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.AddMember(ctx, org.ID, 5, model.OrgRoleStudent))
	require.NoError(t, repo.AddMember(ctx, org.ID, 5, model.OrgRoleTeacher))
	role, ok, err := repo.OrgRole(ctx, org.ID, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.OrgRoleTeacher, role)

	require.NoError(t, repo.RemoveMember(ctx, org.ID, 5))
	_, ok, err = repo.OrgRole(ctx, org.ID, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.AddRole(ctx, 5, model.RoleTeacher))
	require.NoError(t, repo.AddRole(ctx, 5, model.RoleTeacher))
	require.NoError(t, repo.AddRole(ctx, 5, model.RoleEditor))
	roles, err := repo.GlobalRoles(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []model.RoleSlug{model.RoleEditor, model.RoleTeacher}, roles)

	require.NoError(t, repo.RemoveRole(ctx, 5, model.RoleEditor))
	roles, err = repo.GlobalRoles(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []model.RoleSlug{model.RoleTeacher}, roles)
}

func TestModerationRepo_RecordAndList(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionRepo(db)
	repo := NewModerationRepo(db)
	ctx := context.Background()
	s := createSession(t, sessions, "chemistry-1-eeeeeeee", nil)

	target := uint64(10)
	inTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.RecordTx(ctx, tx, &ModerationAction{SessionID: s.ID, ActorID: 1, Action: "lock", Detail: "capacity=0", CreatedAt: t0}))
		require.NoError(t, repo.RecordTx(ctx, tx, &ModerationAction{SessionID: s.ID, ActorID: 1, TargetUserID: &target, Action: "kick", CreatedAt: t0}))
	})

	actions, err := repo.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Nil(t, actions[0].TargetUserID)
	assert.Equal(t, "capacity=0", actions[0].Detail)
	require.NotNil(t, actions[1].TargetUserID)
	assert.Equal(t, target, *actions[1].TargetUserID)
}

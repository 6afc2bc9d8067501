package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/live-classroom/internal/model"
	"github.com/iliyamo/live-classroom/internal/repository"
)

func TestChannelName(t *testing.T) {
	at := time.Unix(1772442000, 0)
	assert.Equal(t, "intro-to-go-1772442000-0a1b2c3d", ChannelName("Intro to Go!", at, "0a1b2c3d"))
	assert.Equal(t, "session-1772442000-ffffffff", ChannelName("???", at, "ffffffff"))
}

func TestCreate_Defaults(t *testing.T) {
	f := newFixture(t)
	sess, err := f.sessions.Create(context.Background(), ownerID, nil, f.roles(ownerID, nil), CreateSessionInput{Title: "  Algebra II  "})
	require.NoError(t, err)

	assert.NotZero(t, sess.ID)
	assert.Nil(t, sess.OrgID)
	assert.Equal(t, "Algebra II", sess.Title)
	assert.Equal(t, 20, sess.MaxParticipants)
	assert.Equal(t, 60, sess.DurationMin)
	assert.Equal(t, f.clock.Now(), sess.StartTime)
	assert.Regexp(t, regexp.MustCompile(`^algebra-ii-\d+-[0-9a-f]{8}$`), sess.ChannelName)

	got, err := f.sessions.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ChannelName, got.ChannelName)
	assert.Equal(t, sess.StartTime, got.StartTime.UTC())
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roles := f.roles(ownerID, nil)

	negative := -1
	_, err := f.sessions.Create(ctx, ownerID, nil, roles, CreateSessionInput{Title: "x", MaxParticipants: &negative})
	assert.ErrorIs(t, err, ErrInvalidInput)

	zero := 0
	_, err = f.sessions.Create(ctx, ownerID, nil, roles, CreateSessionInput{Title: "x", DurationMin: &zero})
	assert.ErrorIs(t, err, ErrInvalidInput)

	locked, err := f.sessions.Create(ctx, ownerID, nil, roles, CreateSessionInput{Title: "x", MaxParticipants: &zero})
	require.NoError(t, err)
	assert.True(t, locked.Locked())
}

func TestCreate_OrgRequiresMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := f.newOrg(t, "north-uni", ownerID)

	_, err := f.sessions.Create(ctx, 50, org, f.roles(50, org), CreateSessionInput{Title: "x"})
	assert.ErrorIs(t, err, ErrNotMember)

	sess, err := f.sessions.Create(ctx, ownerID, org, f.roles(ownerID, org), CreateSessionInput{Title: "x"})
	require.NoError(t, err)
	require.NotNil(t, sess.OrgID)
	assert.Equal(t, org.ID, *sess.OrgID)
}

func TestCreate_SameTitleSameSecondGetsDistinctChannels(t *testing.T) {
	f := newFixture(t)
	a := f.newSession(t, ownerID, nil, 5)
	b := f.newSession(t, ownerID, nil, 5)
	assert.NotEqual(t, a.ChannelName, b.ChannelName)
}

func TestList_ScopesByTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	org := f.newOrg(t, "north-uni", ownerID)
	public := f.newSession(t, ownerID, nil, 5)
	private := f.newSession(t, ownerID, org, 5)

	got, err := f.sessions.List(ctx, nil, model.Roles{}, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, public.ID, got[0].ID)

	got, err = f.sessions.List(ctx, org, f.roles(ownerID, org), nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, private.ID, got[0].ID)

	other := uint64(99)
	got, err = f.sessions.List(ctx, org, f.roles(ownerID, org), &other, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestList_OrganizationRequiresMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.newOrg(t, "acme", ownerID)
	f.newSession(t, ownerID, acme, 5)

	_, err := f.sessions.List(ctx, acme, f.roles(10, acme), nil, 0, 0)
	assert.ErrorIs(t, err, ErrNotMember)

	got, err := f.sessions.List(ctx, acme, model.Roles{UserID: 10, Privileged: true}, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = f.sessions.List(ctx, acme, model.Roles{UserID: 10, Global: map[model.RoleSlug]bool{model.RoleModerator: true}}, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCreate_ChannelCollisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	suffixes := []string{"0a1b2c3d", "0a1b2c3d", "0a1b2c3d", "0a1b2c3d", "ffffffff"}
	calls := 0
	sessions := NewSessionService(repository.NewSessionRepo(f.db), SessionConfig{
		Now: f.clock.Now,
		Suffix: func() string {
			s := suffixes[calls]
			calls++
			return s
		},
	})
	in := CreateSessionInput{Title: "Physics 101"}

	first, err := sessions.Create(ctx, ownerID, nil, model.Roles{UserID: ownerID}, in)
	require.NoError(t, err)
	assert.Equal(t, "physics-101-1772442000-0a1b2c3d", first.ChannelName)

	_, err = sessions.Create(ctx, ownerID, nil, model.Roles{UserID: ownerID}, in)
	assert.ErrorIs(t, err, ErrDuplicateChannel)
	assert.Equal(t, 1+channelAttempts, calls, "every attempt draws a new suffix")

	third, err := sessions.Create(ctx, ownerID, nil, model.Roles{UserID: ownerID}, in)
	require.NoError(t, err)
	assert.Equal(t, "physics-101-1772442000-ffffffff", third.ChannelName)
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.sessions.Get(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCreate_SessionCarriesOwner(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t, 77, nil, 5)
	assert.Equal(t, uint64(77), sess.OwnerID)
	assert.True(t, CanModerate(model.Roles{UserID: 77}, sess))
}

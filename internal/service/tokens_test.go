package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/live-classroom/internal/model"
	"github.com/iliyamo/live-classroom/internal/rtc"
)

type mockBuilder struct {
	mock.Mock
}

func (m *mockBuilder) Provider() string { return "mock" }
func (m *mockBuilder) AppID() string    { return "app-1" }

func (m *mockBuilder) BuildRTC(g rtc.Grant) (string, error) {
	args := m.Called(g)
	return args.String(0), args.Error(1)
}

func (m *mockBuilder) BuildRTM(account string, expireAt time.Time) (string, error) {
	args := m.Called(account, expireAt)
	return args.String(0), args.Error(1)
}

var tokenNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func tokenSession() *model.LiveSession {
	return &model.LiveSession{ID: 7, OwnerID: 1, ChannelName: "physics-101-1772442000-0a1b2c3d", MaxParticipants: 20}
}

func newIssuer(b rtc.Builder, allowDummy bool) *TokenIssuer {
	return NewTokenIssuer(b, TokenConfig{AllowDummy: allowDummy, Now: func() time.Time { return tokenNow }}, discardLogger())
}

func TestUIDFor(t *testing.T) {
	assert.Equal(t, uint32(42), UIDFor(42))
	assert.Equal(t, uint32(0), UIDFor(MaxUID))
	assert.Equal(t, uint32(5), UIDFor(MaxUID+5))
	assert.Equal(t, UIDFor(987654321012), UIDFor(987654321012))
	assert.Less(t, UIDFor(1<<40), uint32(MaxUID))
}

func TestParseTTL(t *testing.T) {
	ttl, err := ParseTTL("")
	require.NoError(t, err)
	assert.Zero(t, ttl)

	ttl, err = ParseTTL("120")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, ttl)

	_, err = ParseTTL("abc")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = ParseTTL("-5")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestIssue_HostGating(t *testing.T) {
	orgID, otherOrg := uint64(3), uint64(8)
	tests := []struct {
		name    string
		userID  uint64
		sessOrg *uint64
		roles   model.Roles
		wantErr error
	}{
		{name: "owner", userID: 1, roles: model.Roles{UserID: 1}},
		{name: "global teacher", userID: 2, roles: model.Roles{UserID: 2, Global: map[model.RoleSlug]bool{model.RoleTeacher: true}}},
		{name: "org teacher", userID: 3, sessOrg: &orgID, roles: model.Roles{UserID: 3, OrgID: &orgID, Org: model.OrgRoleTeacher, Member: true}},
		{name: "staff", userID: 4, roles: model.Roles{UserID: 4, Privileged: true}},
		{name: "student", userID: 5, sessOrg: &orgID, roles: model.Roles{UserID: 5, OrgID: &orgID, Org: model.OrgRoleStudent, Member: true}, wantErr: ErrPublishNotAllowed},
		{name: "global student", userID: 6, roles: model.Roles{UserID: 6, Global: map[model.RoleSlug]bool{model.RoleStudent: true}}, wantErr: ErrPublishNotAllowed},
		{name: "org owner on public session", userID: 7, roles: model.Roles{UserID: 7, OrgID: &orgID, Org: model.OrgRoleOwner, Member: true}, wantErr: ErrPublishNotAllowed},
		{name: "teacher of another org", userID: 8, sessOrg: &otherOrg, roles: model.Roles{UserID: 8, OrgID: &orgID, Org: model.OrgRoleTeacher, Member: true}, wantErr: ErrPublishNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &mockBuilder{}
			b.On("BuildRTC", mock.Anything).Return("rtc-token", nil).Maybe()
			b.On("BuildRTM", mock.Anything, mock.Anything).Return("rtm-token", nil).Maybe()

			sess := tokenSession()
			sess.OrgID = tt.sessOrg
			out, err := newIssuer(b, false).Issue(context.Background(), TokenRequest{
				Session: sess, UserID: tt.userID, Roles: tt.roles, WantHost: true,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				b.AssertNotCalled(t, "BuildRTC", mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "host", out.Role)
			assert.Equal(t, "rtc-token", out.Token)
		})
	}
}

func TestIssue_SubscriberGrant(t *testing.T) {
	b := &mockBuilder{}
	want := rtc.Grant{
		Channel:  tokenSession().ChannelName,
		UID:      77,
		Identity: "77",
		Role:     rtc.RoleSubscriber,
		ExpireAt: tokenNow.Add(time.Hour),
	}
	b.On("BuildRTC", want).Return("rtc-token", nil).Once()
	b.On("BuildRTM", "77", want.ExpireAt).Return("rtm-token", nil).Once()

	out, err := newIssuer(b, false).Issue(context.Background(), TokenRequest{
		Session: tokenSession(), UserID: 77, Roles: model.Roles{UserID: 77},
	})
	require.NoError(t, err)
	b.AssertExpectations(t)

	assert.Equal(t, "audience", out.Role)
	assert.Equal(t, uint32(77), out.UID)
	assert.Equal(t, "rtm-token", out.RTMToken)
	assert.Equal(t, "app-1", out.AppID)
	assert.Equal(t, "mock", out.Provider)
	assert.Equal(t, tokenNow.Add(time.Hour), out.ExpiresAt)
	assert.False(t, out.Dummy)
}

func TestIssue_TTLBounds(t *testing.T) {
	b := &mockBuilder{}
	b.On("BuildRTC", mock.Anything).Return("rtc-token", nil)
	b.On("BuildRTM", mock.Anything, mock.Anything).Return("", nil)
	issuer := newIssuer(b, false)

	for _, ttl := range []time.Duration{59 * time.Second, 86401 * time.Second} {
		_, err := issuer.Issue(context.Background(), TokenRequest{Session: tokenSession(), UserID: 9, TTL: ttl})
		assert.ErrorIs(t, err, ErrInvalidInput, "ttl %s", ttl)
	}
	for _, ttl := range []time.Duration{time.Minute, 24 * time.Hour} {
		out, err := issuer.Issue(context.Background(), TokenRequest{Session: tokenSession(), UserID: 9, TTL: ttl})
		require.NoError(t, err)
		assert.Equal(t, tokenNow.Add(ttl), out.ExpiresAt)
	}
}

func TestIssue_DummyFallback(t *testing.T) {
	out, err := newIssuer(nil, true).Issue(context.Background(), TokenRequest{
		Session: tokenSession(), UserID: 9, Roles: model.Roles{UserID: 9},
	})
	require.NoError(t, err)
	assert.True(t, out.Dummy)
	assert.Equal(t, "dummy", out.Provider)
	assert.Equal(t, rtc.DummyToken(tokenSession().ChannelName, 9), out.Token)

	_, err = newIssuer(nil, false).Issue(context.Background(), TokenRequest{Session: tokenSession(), UserID: 9})
	assert.ErrorIs(t, err, ErrTransportConfig)
}

func TestIssue_MissingCredentialsFromBuilder(t *testing.T) {
	b := &mockBuilder{}
	b.On("BuildRTC", mock.Anything).Return("", rtc.ErrMissingCredentials)

	_, err := newIssuer(b, true).Issue(context.Background(), TokenRequest{Session: tokenSession(), UserID: 9})
	assert.ErrorIs(t, err, ErrTransportConfig)
}

func TestIssue_AgoraEndToEnd(t *testing.T) {
	out, err := newIssuer(rtc.NewAgora("970CA35de60c44645bbae8a215061b33", "5CFd2fd1755d40ecb72977518be15d3b"), false).
		Issue(context.Background(), TokenRequest{Session: tokenSession(), UserID: 1, Roles: model.Roles{UserID: 1}, WantHost: true})
	require.NoError(t, err)
	assert.Equal(t, "agora", out.Provider)
	assert.Equal(t, "970CA35de60c44645bbae8a215061b33", out.AppID)
	assert.Contains(t, out.Token, "006970CA35de60c44645bbae8a215061b33")
	assert.NotEmpty(t, out.RTMToken)
}

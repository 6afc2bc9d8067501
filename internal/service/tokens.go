package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/iliyamo/live-classroom/internal/model"
	"github.com/iliyamo/live-classroom/internal/monitoring"
	"github.com/iliyamo/live-classroom/internal/rtc"
)

// MaxUID is the exclusive upper bound of transport uids (2^31 - 1).
const MaxUID = (1 << 31) - 1

// UIDFor maps a user id onto the transport's signed 32-bit uid space.  The
// mapping is deterministic so a user always reconnects with the same uid.
func UIDFor(userID uint64) uint32 {
	return uint32(userID % MaxUID)
}

// TokenConfig bounds token lifetimes and controls the development
// fallback.
type TokenConfig struct {
	DefaultTTL time.Duration
	MinTTL     time.Duration
	MaxTTL     time.Duration
	// AllowDummy permits placeholder tokens when no transport credentials
	// are configured.  It must be false in production.
	AllowDummy bool
	Now        func() time.Time
}

// TokenRequest asks for a transport credential for one session.
type TokenRequest struct {
	Session  *model.LiveSession
	UserID   uint64
	Roles    model.Roles
	WantHost bool
	// TTL of zero selects the configured default.
	TTL time.Duration
}

// TokenResult is what a client needs to connect.
type TokenResult struct {
	Token     string    `json:"token"`
	RTMToken  string    `json:"rtm_token,omitempty"`
	Channel   string    `json:"channel"`
	UID       uint32    `json:"uid"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
	AppID     string    `json:"app_id,omitempty"`
	Provider  string    `json:"provider"`
	Dummy     bool      `json:"dummy,omitempty"`
}

// TokenIssuer mints role-scoped transport tokens.  It never touches
// reservations or attendance.
type TokenIssuer struct {
	builder rtc.Builder
	cfg     TokenConfig
	log     *slog.Logger
}

// NewTokenIssuer builds an issuer.  builder may be nil when credentials
// are not configured; issuance then fails with ErrTransportConfig unless
// cfg.AllowDummy is set.
func NewTokenIssuer(builder rtc.Builder, cfg TokenConfig, logger *slog.Logger) *TokenIssuer {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}
	if cfg.MinTTL <= 0 {
		cfg.MinTTL = time.Minute
	}
	if cfg.MaxTTL <= 0 {
		cfg.MaxTTL = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenIssuer{builder: builder, cfg: cfg, log: logger}
}

// ParseTTL reads a TTL in seconds from a request parameter.  An empty
// value returns zero, meaning "use the default".
func ParseTTL(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: ttl must be an integer number of seconds", ErrInvalidInput)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: ttl must be positive", ErrInvalidInput)
	}
	return time.Duration(n) * time.Second, nil
}

// Issue returns a publisher token when WantHost is set and the caller owns
// the session or is host eligible for the session's organization, and a
// subscriber token otherwise.
func (t *TokenIssuer) Issue(ctx context.Context, req TokenRequest) (*TokenResult, error) {
	ttl := req.TTL
	if ttl == 0 {
		ttl = t.cfg.DefaultTTL
	}
	if ttl < t.cfg.MinTTL || ttl > t.cfg.MaxTTL {
		return nil, fmt.Errorf("%w: ttl must be between %d and %d seconds", ErrInvalidInput,
			int(t.cfg.MinTTL/time.Second), int(t.cfg.MaxTTL/time.Second))
	}
	isOwner := req.Session.OwnerID == req.UserID
	if req.WantHost && !isOwner && !req.Roles.HostEligibleFor(req.Session.OrgID) {
		return nil, ErrPublishNotAllowed
	}

	role := rtc.RoleSubscriber
	if req.WantHost {
		role = rtc.RolePublisher
	}
	uid := UIDFor(req.UserID)
	expireAt := t.cfg.Now().UTC().Truncate(time.Second).Add(ttl)
	out := &TokenResult{
		Channel:   req.Session.ChannelName,
		UID:       uid,
		Role:      role.String(),
		ExpiresAt: expireAt,
	}

	if t.builder == nil {
		if !t.cfg.AllowDummy {
			return nil, ErrTransportConfig
		}
		t.log.Warn("issuing dummy rtc token; transport credentials are not configured",
			"session_id", req.Session.ID, "user_id", req.UserID, "role", out.Role)
		out.Token = rtc.DummyToken(req.Session.ChannelName, uid)
		out.Provider = "dummy"
		out.Dummy = true
		monitoring.TokenIssued(out.Provider, out.Role, true)
		return out, nil
	}

	token, err := t.builder.BuildRTC(rtc.Grant{
		Channel:  req.Session.ChannelName,
		UID:      uid,
		Identity: strconv.FormatUint(uint64(uid), 10),
		Role:     role,
		ExpireAt: expireAt,
	})
	if errors.Is(err, rtc.ErrMissingCredentials) {
		return nil, ErrTransportConfig
	}
	if err != nil {
		return nil, err
	}
	rtm, err := t.builder.BuildRTM(strconv.FormatUint(req.UserID, 10), expireAt)
	if err != nil {
		return nil, err
	}
	out.Token = token
	out.RTMToken = rtm
	out.AppID = t.builder.AppID()
	out.Provider = t.builder.Provider()
	monitoring.TokenIssued(out.Provider, out.Role, false)
	return out, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/live-classroom/internal/model"
	"github.com/iliyamo/live-classroom/internal/repository"
	"github.com/iliyamo/live-classroom/internal/utils"
)

// SessionConfig holds registry defaults.
type SessionConfig struct {
	DefaultCapacity    int
	DefaultDurationMin int
	Now                func() time.Time
	// Suffix generates the random part of channel names.
	Suffix func() string
}

// CreateSessionInput carries optional overrides for a new session.  Nil
// fields take the configured defaults.
type CreateSessionInput struct {
	Title            string
	StartTime        *time.Time
	DurationMin      *int
	MaxParticipants  *int
	RecordingEnabled bool
}

// SessionService is the session registry.
type SessionService struct {
	repo *repository.SessionRepo
	cfg  SessionConfig
}

func NewSessionService(repo *repository.SessionRepo, cfg SessionConfig) *SessionService {
	if cfg.DefaultCapacity <= 0 {
		cfg.DefaultCapacity = 20
	}
	if cfg.DefaultDurationMin <= 0 {
		cfg.DefaultDurationMin = 60
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Suffix == nil {
		cfg.Suffix = randomSuffix
	}
	return &SessionService{repo: repo, cfg: cfg}
}

// channelAttempts bounds regeneration of the random suffix on a channel
// name collision.
const channelAttempts = 3

// ChannelName derives a channel from the title and creation time.  The
// random suffix keeps two sessions with the same title created in the
// same second apart.
func ChannelName(title string, at time.Time, suffix string) string {
	base := utils.Slugify(title)
	if base == "" {
		base = "session"
	}
	return base + "-" + strconv.FormatInt(at.Unix(), 10) + "-" + suffix
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Create registers a session owned by ownerID.  When org is non-nil the
// session belongs to it and the caller must be a member.
func (s *SessionService) Create(ctx context.Context, ownerID uint64, org *model.Organization, roles model.Roles, in CreateSessionInput) (*model.LiveSession, error) {
	if org != nil && !roles.Member && !roles.Privileged {
		return nil, ErrNotMember
	}
	now := s.cfg.Now().UTC().Truncate(time.Second)
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "Session"
	}
	if len(title) > 200 {
		return nil, fmt.Errorf("%w: title longer than 200 characters", ErrInvalidInput)
	}
	sess := &model.LiveSession{
		OrgID:            orgID(org),
		Title:            title,
		OwnerID:          ownerID,
		StartTime:        now,
		DurationMin:      s.cfg.DefaultDurationMin,
		MaxParticipants:  s.cfg.DefaultCapacity,
		RecordingEnabled: in.RecordingEnabled,
		CreatedAt:        now,
	}
	if in.StartTime != nil {
		sess.StartTime = in.StartTime.UTC().Truncate(time.Second)
	}
	if in.DurationMin != nil {
		if *in.DurationMin <= 0 {
			return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
		}
		sess.DurationMin = *in.DurationMin
	}
	if in.MaxParticipants != nil {
		if *in.MaxParticipants < 0 {
			return nil, fmt.Errorf("%w: capacity must not be negative", ErrInvalidInput)
		}
		sess.MaxParticipants = *in.MaxParticipants
	}

	for attempt := 0; attempt < channelAttempts; attempt++ {
		sess.ChannelName = ChannelName(title, now, s.cfg.Suffix())
		err := s.repo.Create(ctx, sess)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, repository.ErrDuplicateChannel) {
			return nil, err
		}
	}
	return nil, ErrDuplicateChannel
}

// Get returns a session by id.
func (s *SessionService) Get(ctx context.Context, id uint64) (*model.LiveSession, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

// List returns sessions visible in the tenant context: the
// organization's sessions when org is set, public sessions otherwise.
// Listing an organization requires the same standing as reading one of
// its sessions.
func (s *SessionService) List(ctx context.Context, org *model.Organization, roles model.Roles, ownerID *uint64, limit, offset int) ([]model.LiveSession, error) {
	if org != nil && !inOrg(roles) {
		return nil, ErrNotMember
	}
	f := repository.SessionFilter{OrgID: orgID(org), OwnerID: ownerID, Limit: limit, Offset: offset}
	if org == nil {
		f.PublicOnly = true
	}
	return s.repo.List(ctx, f)
}

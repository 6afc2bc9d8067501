package rtc

import (
	"strconv"
	"time"

	"github.com/livekit/protocol/auth"
)

// LiveKit builds LiveKit access tokens.  The room is the session's channel
// name and the participant identity is the user's deterministic uid.
type LiveKit struct {
	apiKey    string
	apiSecret string
	now       func() time.Time
}

func NewLiveKit(apiKey, apiSecret string) *LiveKit {
	return &LiveKit{apiKey: apiKey, apiSecret: apiSecret, now: time.Now}
}

func (l *LiveKit) Provider() string { return "livekit" }
func (l *LiveKit) AppID() string    { return "" }

func (l *LiveKit) BuildRTC(g Grant) (string, error) {
	if l.apiKey == "" || l.apiSecret == "" {
		return "", ErrMissingCredentials
	}
	canPublish := g.Role == RolePublisher
	canSubscribe := true

	identity := g.Identity
	if identity == "" {
		identity = strconv.FormatUint(uint64(g.UID), 10)
	}
	validFor := g.ExpireAt.Sub(l.now())
	if validFor < time.Second {
		validFor = time.Second
	}

	at := auth.NewAccessToken(l.apiKey, l.apiSecret)
	grant := &auth.VideoGrant{
		RoomJoin:       true,
		Room:           g.Channel,
		CanPublish:     &canPublish,
		CanSubscribe:   &canSubscribe,
		CanPublishData: &canPublish,
	}
	at.AddGrant(grant).
		SetIdentity(identity).
		SetValidFor(validFor)
	return at.ToJWT()
}

// BuildRTM returns no token; LiveKit carries data messages over the room
// connection itself.
func (l *LiveKit) BuildRTM(string, time.Time) (string, error) { return "", nil }

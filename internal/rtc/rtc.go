// Package rtc mints authorization tokens for the external realtime
// audio/video transport.  Builders are pure functions of their inputs and
// hold no state beyond credentials.
package rtc

import (
	"errors"
	"fmt"
	"time"
)

// Role is the transport capability granted by a token.
type Role int

const (
	RolePublisher  Role = 1
	RoleSubscriber Role = 2
)

func (r Role) String() string {
	if r == RolePublisher {
		return "host"
	}
	return "audience"
}

// ErrMissingCredentials is returned by a builder constructed without the
// credentials it needs to sign.
var ErrMissingCredentials = errors.New("rtc: transport credentials missing")

// Grant describes one token request.
type Grant struct {
	Channel  string
	UID      uint32
	Identity string // user account string, used by providers that key on identity
	Role     Role
	ExpireAt time.Time
}

// Builder signs transport tokens.
type Builder interface {
	Provider() string
	// AppID is the public application identifier clients need alongside
	// the token.  It may be empty for providers that do not use one.
	AppID() string
	BuildRTC(g Grant) (string, error)
	// BuildRTM signs a messaging login token.  Providers without a
	// messaging product return an empty token and no error.
	BuildRTM(account string, expireAt time.Time) (string, error)
}

// Credentials selects and configures a provider.
type Credentials struct {
	Provider        string // "agora" or "livekit"
	AgoraAppID      string
	AgoraAppCert    string
	LiveKitAPIKey   string
	LiveKitAPISecret string
}

// New returns the builder for creds.Provider.  Missing credentials yield
// ErrMissingCredentials so that callers can decide whether a development
// fallback is acceptable.
func New(creds Credentials) (Builder, error) {
	switch creds.Provider {
	case "", "agora":
		if creds.AgoraAppID == "" || creds.AgoraAppCert == "" {
			return nil, ErrMissingCredentials
		}
		return NewAgora(creds.AgoraAppID, creds.AgoraAppCert), nil
	case "livekit":
		if creds.LiveKitAPIKey == "" || creds.LiveKitAPISecret == "" {
			return nil, ErrMissingCredentials
		}
		return NewLiveKit(creds.LiveKitAPIKey, creds.LiveKitAPISecret), nil
	}
	return nil, fmt.Errorf("rtc: unknown provider %q", creds.Provider)
}

// DummyToken is the placeholder handed out when no credentials are
// configured outside production.  It is not a valid transport token.
func DummyToken(channel string, uid uint32) string {
	return fmt.Sprintf("DUMMY_RTC_%s_%d", channel, uid)
}

package rtc

import (
	"time"

	"github.com/AgoraIO-Community/go-tokenbuilder/rtctokenbuilder"
	"github.com/AgoraIO-Community/go-tokenbuilder/rtmtokenbuilder"
)

// Agora builds version 006 AccessTokens.
type Agora struct {
	appID   string
	appCert string
}

// NewAgora returns a builder signing with appCert.
func NewAgora(appID, appCert string) *Agora {
	return &Agora{appID: appID, appCert: appCert}
}

func (a *Agora) Provider() string { return "agora" }
func (a *Agora) AppID() string    { return a.appID }

// BuildRTC grants join to everyone and the publish privileges to
// publishers only.  A zero uid is encoded as the empty string, which the
// transport treats as "any uid".
func (a *Agora) BuildRTC(g Grant) (string, error) {
	if a.appID == "" || a.appCert == "" {
		return "", ErrMissingCredentials
	}
	role := rtctokenbuilder.Role(rtctokenbuilder.RoleSubscriber)
	if g.Role == RolePublisher {
		role = rtctokenbuilder.RolePublisher
	}
	return rtctokenbuilder.BuildTokenWithUID(a.appID, a.appCert, g.Channel, g.UID, role, expiry(g.ExpireAt))
}

// BuildRTM signs a messaging login for account.
func (a *Agora) BuildRTM(account string, expireAt time.Time) (string, error) {
	if a.appID == "" || a.appCert == "" {
		return "", ErrMissingCredentials
	}
	return rtmtokenbuilder.BuildToken(a.appID, a.appCert, account, rtmtokenbuilder.RoleRtmUser, expiry(expireAt))
}

func expiry(t time.Time) uint32 {
	if t.IsZero() {
		return 0
	}
	return uint32(t.Unix())
}

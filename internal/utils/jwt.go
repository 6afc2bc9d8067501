package utils // package utils provides helpers shared by the command line tools and tests

import (
    "strconv"
    "time"

    "github.com/golang-jwt/jwt/v5"

    "github.com/iliyamo/live-classroom/internal/model"
)

// AccessToken represents a signed identity assertion along with its expiry.
// Tokens are normally minted by the external identity provider; this
// helper produces compatible tokens for local development and tests.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a principal.  The claim
// layout matches what middleware.JWTAuth reads: sub carries the user id as
// a decimal string, roles the global role slugs, and is_staff /
// is_superuser the platform privilege flags.
func NewAccessToken(secret string, p model.Principal, ttl time.Duration) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    roles := make([]string, 0, len(p.Roles))
    for _, r := range p.Roles {
        roles = append(roles, string(r))
    }
    claims := jwt.MapClaims{
        "sub":          strconv.FormatUint(p.UserID, 10),
        "roles":        roles,
        "is_staff":     p.IsStaff,
        "is_superuser": p.IsSuperuser,
        "exp":          exp.Unix(),
        "iat":          now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

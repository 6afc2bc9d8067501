package middleware

// identity.go holds the context keys written by JWTAuth, Tenant and
// ResolveRoles, and the accessors handlers use to read them back.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/live-classroom/internal/model"
)

const (
    principalKey = "principal"
    userIDKey    = "user_id"
    orgKey       = "org"
    rolesKey     = "roles"
)

// PrincipalFrom returns the authenticated caller.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
    p, ok := c.Get(principalKey).(model.Principal)
    return p, ok
}

// UserIDFrom returns the authenticated user id, or 0.
func UserIDFrom(c echo.Context) uint64 {
    p, _ := PrincipalFrom(c)
    return p.UserID
}

// OrgFrom returns the resolved tenant; nil means the public context.
func OrgFrom(c echo.Context) *model.Organization {
    org, _ := c.Get(orgKey).(*model.Organization)
    return org
}

// RolesFrom returns the roles resolved for this request.
func RolesFrom(c echo.Context) model.Roles {
    r, _ := c.Get(rolesKey).(model.Roles)
    return r
}

// userID is the string form used in rate limit and cache keys.  It
// returns "guest" when no user is authenticated.
func userID(c echo.Context) string {
    if id := UserIDFrom(c); id != 0 {
        return strconv.FormatUint(id, 10)
    }
    return "guest"
}

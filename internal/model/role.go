package model

// RoleSlug names a global (platform-wide) role.
type RoleSlug string

const (
    RoleSuperAdmin RoleSlug = "super_admin"
    RoleAdmin      RoleSlug = "admin"
    RoleEditor     RoleSlug = "editor"
    RoleModerator  RoleSlug = "moderator"
    RoleTeacher    RoleSlug = "teacher"
    RoleStudent    RoleSlug = "student"
    RoleParent     RoleSlug = "parent"
)

// HostGlobalRoles are the global roles that may publish in any session.
var HostGlobalRoles = map[RoleSlug]bool{
    RoleSuperAdmin: true,
    RoleAdmin:      true,
    RoleEditor:     true,
    RoleModerator:  true,
    RoleTeacher:    true,
}

// OrgRole is a role held inside a single organization.
type OrgRole string

const (
    OrgRoleOwner   OrgRole = "owner"
    OrgRoleAdmin   OrgRole = "admin"
    OrgRoleTeacher OrgRole = "teacher"
    OrgRoleStudent OrgRole = "student"
)

// HostOrgRoles are the org-scoped roles that may publish in that
// organization's sessions.
var HostOrgRoles = map[OrgRole]bool{
    OrgRoleOwner:   true,
    OrgRoleAdmin:   true,
    OrgRoleTeacher: true,
}

// ValidOrgRole reports whether r is one of the known org roles.
func ValidOrgRole(r OrgRole) bool {
    switch r {
    case OrgRoleOwner, OrgRoleAdmin, OrgRoleTeacher, OrgRoleStudent:
        return true
    }
    return false
}

// Principal is the authenticated caller as asserted by the identity
// provider.  Roles holds the global role claims carried by the token.
type Principal struct {
    UserID      uint64
    IsStaff     bool
    IsSuperuser bool
    Roles       []RoleSlug
}

// Roles is the resolved authorization view of a principal for one
// organization.  It is computed once per request and passed explicitly.
type Roles struct {
    UserID     uint64
    Privileged bool            // superuser or staff
    Global     map[RoleSlug]bool
    OrgID      *uint64
    Org        OrgRole // empty when the user has no membership
    Member     bool
}

// HostEligibleFor reports whether the roles allow publishing in a session
// of organization orgID.  The org-scoped role only counts when it was
// resolved for that same organization; a public session (nil orgID) is
// hosted through privileged flags or global roles alone.  Precedence is
// privileged flags, then global roles, then the org-scoped role.
func (r Roles) HostEligibleFor(orgID *uint64) bool {
    if r.Privileged {
        return true
    }
    for slug := range r.Global {
        if HostGlobalRoles[slug] {
            return true
        }
    }
    if orgID == nil || r.OrgID == nil || *orgID != *r.OrgID {
        return false
    }
    return r.Member && HostOrgRoles[r.Org]
}

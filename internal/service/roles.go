package service

import (
	"context"
	"log/slog"

	"github.com/iliyamo/live-classroom/internal/model"
	"github.com/iliyamo/live-classroom/internal/repository"
)

// RoleResolver decides what a principal may do in an organization.  It
// merges the global roles asserted by the identity token with the roles
// stored in user_roles, and looks up the org-scoped membership.  Lookup
// failures are logged and treated as "no role", so authorization fails
// closed.
type RoleResolver struct {
	store repository.RoleStore
	log   *slog.Logger
}

func NewRoleResolver(store repository.RoleStore, logger *slog.Logger) *RoleResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoleResolver{store: store, log: logger}
}

// Resolve computes the Roles of p for the given organization (nil for a
// public context).  Lookups stop as soon as host eligibility is decided
// by a higher-precedence source, except that membership is always looked
// up for an organization because tenancy checks need it.
func (r *RoleResolver) Resolve(ctx context.Context, p model.Principal, orgID *uint64) model.Roles {
	roles := model.Roles{
		UserID:     p.UserID,
		Privileged: p.IsStaff || p.IsSuperuser,
		Global:     r.GlobalRoles(ctx, p),
		OrgID:      orgID,
	}
	if orgID != nil {
		role, ok := r.OrgRole(ctx, p.UserID, *orgID)
		roles.Org = role
		roles.Member = ok
	}
	return roles
}

// GlobalRoles returns the union of token claims and stored roles.
func (r *RoleResolver) GlobalRoles(ctx context.Context, p model.Principal) map[model.RoleSlug]bool {
	set := make(map[model.RoleSlug]bool, len(p.Roles))
	for _, slug := range p.Roles {
		set[slug] = true
	}
	if r.store == nil || p.UserID == 0 {
		return set
	}
	stored, err := r.store.GlobalRoles(ctx, p.UserID)
	if err != nil {
		r.log.Warn("role lookup failed", "user_id", p.UserID, "err", err)
		return set
	}
	for _, slug := range stored {
		set[slug] = true
	}
	return set
}

// OrgRole returns the user's role in org; ok is false for non-members
// and on lookup failure.
func (r *RoleResolver) OrgRole(ctx context.Context, userID, orgID uint64) (model.OrgRole, bool) {
	if r.store == nil || userID == 0 {
		return "", false
	}
	role, ok, err := r.store.OrgRole(ctx, orgID, userID)
	if err != nil {
		r.log.Warn("membership lookup failed", "user_id", userID, "org_id", orgID, "err", err)
		return "", false
	}
	return role, ok
}

// IsHost reports host eligibility of p for org, short-circuiting on the
// first source that grants it: privileged flags, then global roles, then
// the org-scoped role.
func (r *RoleResolver) IsHost(ctx context.Context, p model.Principal, orgID *uint64) bool {
	if p.IsStaff || p.IsSuperuser {
		return true
	}
	for slug := range r.GlobalRoles(ctx, p) {
		if model.HostGlobalRoles[slug] {
			return true
		}
	}
	if orgID == nil {
		return false
	}
	role, ok := r.OrgRole(ctx, p.UserID, *orgID)
	return ok && model.HostOrgRoles[role]
}

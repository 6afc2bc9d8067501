package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/iliyamo/live-classroom/internal/model"
	"github.com/iliyamo/live-classroom/internal/repository"
)

// OrgFinder looks organizations up by id.
type OrgFinder interface {
	GetByID(ctx context.Context, id uint64) (*model.Organization, error)
}

// TenancyGuard resolves the request's tenant identifier to an
// organization.
type TenancyGuard struct {
	orgs OrgFinder
}

func NewTenancyGuard(orgs OrgFinder) *TenancyGuard {
	return &TenancyGuard{orgs: orgs}
}

// Resolve maps the raw tenant identifier to an organization.  An empty,
// malformed or unknown identifier resolves to nil without error; only
// store failures are returned.
func (g *TenancyGuard) Resolve(ctx context.Context, raw string) (*model.Organization, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, nil
	}
	org, err := g.orgs.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return org, nil
}

// AuthorizeSession checks that a caller resolved for org may act on s.
// Public sessions are open to every authenticated caller.  For an
// organization's session the request must carry that organization as its
// tenant, and the caller must be a member of it or hold a platform-wide
// privilege.
func AuthorizeSession(org *model.Organization, roles model.Roles, s *model.LiveSession) error {
	if s.OrgID == nil {
		return nil
	}
	if org == nil {
		return ErrMissingTenant
	}
	if org.ID != *s.OrgID {
		return ErrNotMember
	}
	if !inOrg(roles) {
		return ErrNotMember
	}
	return nil
}

// inOrg reports whether roles, resolved for an organization, let the
// caller see that organization's sessions: membership, a platform-wide
// privilege or a host global role.
func inOrg(roles model.Roles) bool {
	if roles.Member || roles.Privileged {
		return true
	}
	for slug := range roles.Global {
		if model.HostGlobalRoles[slug] {
			return true
		}
	}
	return false
}

// CanModerate reports whether roles may run moderation and attendance
// administration on s: the session owner or a caller host eligible for
// the session's organization.
func CanModerate(roles model.Roles, s *model.LiveSession) bool {
	return s.OwnerID == roles.UserID || roles.HostEligibleFor(s.OrgID)
}

func orgID(org *model.Organization) *uint64 {
	if org == nil {
		return nil
	}
	id := org.ID
	return &id
}

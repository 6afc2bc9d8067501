package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/live-classroom/internal/model"
)

// RoleStore is the read side of role and membership lookups.
type RoleStore interface {
	OrgRole(ctx context.Context, orgID, userID uint64) (model.OrgRole, bool, error)
	GlobalRoles(ctx context.Context, userID uint64) ([]model.RoleSlug, error)
}

// noMembership marks a cached negative org lookup.
const noMembership = "-"

// CachedRoleStore puts a Redis read-through cache in front of a RoleStore.
// Redis failures fall through to the backing store; a nil client disables
// caching entirely.
type CachedRoleStore struct {
	next   RoleStore
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewCachedRoleStore wraps next.  ttl <= 0 defaults to 30 seconds.
func NewCachedRoleStore(next RoleStore, rdb *redis.Client, prefix string, ttl time.Duration) *CachedRoleStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if prefix == "" {
		prefix = "roles"
	}
	return &CachedRoleStore{next: next, rdb: rdb, ttl: ttl, prefix: prefix}
}

func (c *CachedRoleStore) orgKey(orgID, userID uint64) string {
	return fmt.Sprintf("%s:org:%d:%d", c.prefix, orgID, userID)
}

func (c *CachedRoleStore) globalKey(userID uint64) string {
	return fmt.Sprintf("%s:global:%d", c.prefix, userID)
}

// OrgRole implements RoleStore.
func (c *CachedRoleStore) OrgRole(ctx context.Context, orgID, userID uint64) (model.OrgRole, bool, error) {
	if c.rdb == nil {
		return c.next.OrgRole(ctx, orgID, userID)
	}
	key := c.orgKey(orgID, userID)
	if v, err := c.rdb.Get(ctx, key).Result(); err == nil {
		if v == noMembership {
			return "", false, nil
		}
		return model.OrgRole(v), true, nil
	}
	role, ok, err := c.next.OrgRole(ctx, orgID, userID)
	if err != nil {
		return "", false, err
	}
	val := noMembership
	if ok {
		val = string(role)
	}
	_ = c.rdb.Set(ctx, key, val, c.ttl).Err()
	return role, ok, nil
}

// GlobalRoles implements RoleStore.
func (c *CachedRoleStore) GlobalRoles(ctx context.Context, userID uint64) ([]model.RoleSlug, error) {
	if c.rdb == nil {
		return c.next.GlobalRoles(ctx, userID)
	}
	key := c.globalKey(userID)
	if v, err := c.rdb.Get(ctx, key).Result(); err == nil {
		if v == "" {
			return nil, nil
		}
		parts := strings.Split(v, ",")
		out := make([]model.RoleSlug, 0, len(parts))
		for _, p := range parts {
			out = append(out, model.RoleSlug(p))
		}
		return out, nil
	}
	roles, err := c.next.GlobalRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	parts := make([]string, 0, len(roles))
	for _, r := range roles {
		parts = append(parts, string(r))
	}
	_ = c.rdb.Set(ctx, key, strings.Join(parts, ","), c.ttl).Err()
	return roles, nil
}

// Invalidate drops cached entries for the user.  orgID zero skips the org
// entry.
func (c *CachedRoleStore) Invalidate(ctx context.Context, orgID, userID uint64) error {
	if c.rdb == nil {
		return nil
	}
	keys := []string{c.globalKey(userID)}
	if orgID != 0 {
		keys = append(keys, c.orgKey(orgID, userID))
	}
	return c.rdb.Del(ctx, keys...).Err()
}

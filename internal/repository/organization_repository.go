package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/live-classroom/internal/database"
	"github.com/iliyamo/live-classroom/internal/model"
)

// OrgRepo manages organizations, their memberships and the global
// user_roles table.  Users themselves live in the identity provider and
// are referenced by id only.
type OrgRepo struct {
	db *database.DB
}

func NewOrgRepo(db *database.DB) *OrgRepo { return &OrgRepo{db: db} }

// Create inserts an organization.  A slug collision yields ErrConflict.
func (r *OrgRepo) Create(ctx context.Context, o *model.Organization) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	if o.Kind == "" {
		o.Kind = model.OrgKindUniversity
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO organizations (name, slug, kind, owner_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		o.Name, o.Slug, string(o.Kind), o.OwnerID, ts(o.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = uint64(id)
	return nil
}

// GetByID returns the organization or ErrNotFound.
func (r *OrgRepo) GetByID(ctx context.Context, id uint64) (*model.Organization, error) {
	var (
		o    model.Organization
		kind string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, kind, owner_id, created_at FROM organizations WHERE id = ?`, id,
	).Scan(&o.ID, &o.Name, &o.Slug, &kind, &o.OwnerID, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Kind = model.OrgKind(kind)
	return &o, nil
}

// AddMember inserts or updates the user's membership role in org.
func (r *OrgRepo) AddMember(ctx context.Context, orgID, userID uint64, role model.OrgRole) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE organization_memberships SET role = ? WHERE org_id = ? AND user_id = ?`,
		string(role), orgID, userID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO organization_memberships (org_id, user_id, role, created_at) VALUES (?, ?, ?, ?)`,
		orgID, userID, string(role), ts(time.Now()),
	)
	if isUniqueViolation(err) {
		// A concurrent insert won; treat the membership as present.
		return nil
	}
	return err
}

// RemoveMember deletes the membership if present.
func (r *OrgRepo) RemoveMember(ctx context.Context, orgID, userID uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM organization_memberships WHERE org_id = ? AND user_id = ?`, orgID, userID)
	return err
}

// OrgRole returns the user's role inside org.  ok is false when the user
// is not a member.
func (r *OrgRepo) OrgRole(ctx context.Context, orgID, userID uint64) (role model.OrgRole, ok bool, err error) {
	var s string
	err = r.db.QueryRowContext(ctx,
		`SELECT role FROM organization_memberships WHERE org_id = ? AND user_id = ?`, orgID, userID,
	).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return model.OrgRole(s), true, nil
}

// GlobalRoles returns the global role slugs assigned to the user.
func (r *OrgRepo) GlobalRoles(ctx context.Context, userID uint64) ([]model.RoleSlug, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT role FROM user_roles WHERE user_id = ? ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RoleSlug
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, model.RoleSlug(s))
	}
	return out, rows.Err()
}

// AddRole grants a global role; granting twice is a no-op.
func (r *OrgRepo) AddRole(ctx context.Context, userID uint64, role model.RoleSlug) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO user_roles (user_id, role) VALUES (?, ?)`, userID, string(role))
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

// RemoveRole revokes a global role.
func (r *OrgRepo) RemoveRole(ctx context.Context, userID uint64, role model.RoleSlug) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = ? AND role = ?`, userID, string(role))
	return err
}

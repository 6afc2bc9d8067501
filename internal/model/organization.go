package model

import "time"

// OrgKind classifies an organization.  The values mirror the kinds of
// institutions that run live classes on the platform.
type OrgKind string

const (
    OrgKindKindergarten  OrgKind = "KG"
    OrgKindUniversity    OrgKind = "UNI"
    OrgKindCertification OrgKind = "CERT"
)

// Organization is the tenant boundary.  Sessions, reservations and
// attendance rows are scoped to at most one organization; a nil
// organization means the record is public.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name.
//  Slug      – unique URL-safe identifier.
//  Kind      – KG, UNI or CERT.
//  OwnerID   – user that created the organization.
//  CreatedAt – creation timestamp.
type Organization struct {
    ID        uint64    `json:"id"`         // organizations.id
    Name      string    `json:"name"`       // organizations.name
    Slug      string    `json:"slug"`       // organizations.slug
    Kind      OrgKind   `json:"kind"`       // organizations.kind
    OwnerID   uint64    `json:"owner_id"`   // organizations.owner_id
    CreatedAt time.Time `json:"created_at"` // organizations.created_at
}

// Membership links a user to an organization with an org-scoped role.
// A user holds at most one membership per organization.
type Membership struct {
    ID        uint64    `json:"id"`
    OrgID     uint64    `json:"org_id"`
    UserID    uint64    `json:"user_id"`
    Role      OrgRole   `json:"role"`
    CreatedAt time.Time `json:"created_at"`
}

package middleware

import (
    "context"
    "io"
    "log/slog"
    "net/http"
    "net/http/httptest"
    "strconv"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/live-classroom/internal/database"
    "github.com/iliyamo/live-classroom/internal/model"
    "github.com/iliyamo/live-classroom/internal/repository"
    "github.com/iliyamo/live-classroom/internal/service"
)

func TestTenantAndRoles(t *testing.T) {
    db, err := database.OpenSQLite(":memory:")
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })
    ctx := context.Background()
    require.NoError(t, database.Migrate(ctx, db))

    orgs := repository.NewOrgRepo(db)
    org := &model.Organization{Name: "North", Slug: "north", OwnerID: 1}
    require.NoError(t, orgs.Create(ctx, org))
    require.NoError(t, orgs.AddMember(ctx, org.ID, 5, model.OrgRoleTeacher))

    logger := slog.New(slog.NewTextHandler(io.Discard, nil))
    authenticate := func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            c.Set(principalKey, model.Principal{UserID: 5})
            return next(c)
        }
    }

    var (
        gotOrg   *model.Organization
        gotRoles model.Roles
    )
    e := echo.New()
    e.GET("/x", func(c echo.Context) error {
        gotOrg = OrgFrom(c)
        gotRoles = RolesFrom(c)
        return c.NoContent(http.StatusOK)
    }, authenticate, Tenant(service.NewTenancyGuard(orgs), logger), ResolveRoles(service.NewRoleResolver(orgs, logger)))

    req := httptest.NewRequest(http.MethodGet, "/x", nil)
    req.Header.Set(TenantHeader, strconv.FormatUint(org.ID, 10))
    require.Equal(t, http.StatusOK, serve(e, req).Code)
    require.NotNil(t, gotOrg)
    assert.Equal(t, org.ID, gotOrg.ID)
    assert.True(t, gotRoles.Member)
    assert.Equal(t, model.OrgRoleTeacher, gotRoles.Org)
    assert.True(t, gotRoles.HostEligibleFor(&org.ID))

    req = httptest.NewRequest(http.MethodGet, "/x", nil)
    req.Header.Set(TenantHeader, "9999")
    require.Equal(t, http.StatusOK, serve(e, req).Code)
    assert.Nil(t, gotOrg, "an unknown tenant resolves to the public context")
    assert.False(t, gotRoles.Member)
}

func TestResolveRoles_RequiresPrincipal(t *testing.T) {
    e := echo.New()
    e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
        ResolveRoles(service.NewRoleResolver(nil, nil)))
    assert.Equal(t, http.StatusUnauthorized, serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}

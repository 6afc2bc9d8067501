package middleware // middleware provides shared request processing for handlers

import (
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/live-classroom/internal/service"
)

// TenantHeader carries the organization id of the request.
const TenantHeader = "X-Org-ID"

// Tenant resolves TenantHeader to an organization and stores it for
// OrgFrom.  A missing, malformed or unknown id leaves the request in the
// public context; whether that is acceptable is decided per session by
// the services.
func Tenant(guard *service.TenancyGuard, logger *slog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            org, err := guard.Resolve(c.Request().Context(), c.Request().Header.Get(TenantHeader))
            if err != nil {
                logger.Error("tenant lookup failed", "err", err)
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
            }
            if org != nil {
                c.Set(orgKey, org)
            }
            return next(c)
        }
    }
}

// ResolveRoles computes the caller's roles for the resolved tenant once per
// request.  It must run after JWTAuth and Tenant.
func ResolveRoles(resolver *service.RoleResolver) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            p, ok := PrincipalFrom(c)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
            }
            var orgID *uint64
            if org := OrgFrom(c); org != nil {
                id := org.ID
                orgID = &id
            }
            c.Set(rolesKey, resolver.Resolve(c.Request().Context(), p, orgID))
            return next(c)
        }
    }
}

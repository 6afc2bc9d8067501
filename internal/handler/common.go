package handler // handler defines http handlers

import (
    "errors"
    "log/slog"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/live-classroom/internal/middleware"
    "github.com/iliyamo/live-classroom/internal/model"
    "github.com/iliyamo/live-classroom/internal/service"
)

// statusFor maps service sentinels to HTTP status codes.  Anything not
// listed is an internal error.
func statusFor(err error) int {
    switch {
    case errors.Is(err, service.ErrMissingTenant),
        errors.Is(err, service.ErrNotMember),
        errors.Is(err, service.ErrForbidden),
        errors.Is(err, service.ErrPublishNotAllowed):
        return http.StatusForbidden
    case errors.Is(err, service.ErrSessionNotFound):
        return http.StatusNotFound
    case errors.Is(err, service.ErrSessionFull),
        errors.Is(err, service.ErrDuplicateChannel):
        return http.StatusConflict
    case errors.Is(err, service.ErrNotJoined),
        errors.Is(err, service.ErrInvalidInput):
        return http.StatusBadRequest
    }
    return http.StatusInternalServerError
}

// fail writes err as {"error": ...}.  Internal errors are logged and
// replaced by a generic message.
func fail(c echo.Context, log *slog.Logger, err error) error {
    status := statusFor(err)
    if status == http.StatusInternalServerError {
        log.Error("request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
        msg := "internal error"
        if errors.Is(err, service.ErrTransportConfig) {
            msg = err.Error()
        }
        return c.JSON(status, echo.Map{"error": msg})
    }
    return c.JSON(status, echo.Map{"error": err.Error()})
}

// sessionID parses the :id path parameter.
func sessionID(c echo.Context) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    return id, err == nil && id > 0
}

// caller bundles the request's identity as established by middleware.
type caller struct {
    UserID uint64
    Org    *model.Organization
    Roles  model.Roles
}

func callerFrom(c echo.Context) caller {
    return caller{
        UserID: middleware.UserIDFrom(c),
        Org:    middleware.OrgFrom(c),
        Roles:  middleware.RolesFrom(c),
    }
}

// loadSession fetches the :id session and checks that the caller may see
// it in the request's tenant context.
func loadSession(c echo.Context, sessions *service.SessionService) (*model.LiveSession, error) {
    id, ok := sessionID(c)
    if !ok {
        return nil, service.ErrInvalidInput
    }
    sess, err := sessions.Get(c.Request().Context(), id)
    if err != nil {
        return nil, err
    }
    who := callerFrom(c)
    if err := service.AuthorizeSession(who.Org, who.Roles, sess); err != nil {
        return nil, err
    }
    return sess, nil
}

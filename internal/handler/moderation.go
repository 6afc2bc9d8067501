package handler

import (
    "context"
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/live-classroom/internal/service"
)

// ModerationHandler exposes the moderation controls.  The service checks
// that the caller owns the session or is host eligible.
type ModerationHandler struct {
    Sessions   *service.SessionService
    Moderation *service.ModerationService
    Log        *slog.Logger
}

func NewModerationHandler(sessions *service.SessionService, moderation *service.ModerationService, logger *slog.Logger) *ModerationHandler {
    if sessions == nil || moderation == nil {
        panic("nil service passed to NewModerationHandler")
    }
    return &ModerationHandler{Sessions: sessions, Moderation: moderation, Log: logger}
}

type moderationRequest struct {
    Capacity *int   `json:"capacity"`
    UserID   uint64 `json:"user_id"`
}

func (h *ModerationHandler) actor(c echo.Context) service.Actor {
    who := callerFrom(c)
    return service.Actor{UserID: who.UserID, Org: who.Org, Roles: who.Roles}
}

// run parses the path and body and applies op.
func (h *ModerationHandler) run(c echo.Context, op func(ctx context.Context, actor service.Actor, sessionID uint64, body moderationRequest) (*service.ModerationResult, error)) error {
    id, ok := sessionID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
    }
    var body moderationRequest
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    res, err := op(c.Request().Context(), h.actor(c), id, body)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, res)
}

// Lock handles POST /v1/sessions/:id/moderation/lock.
func (h *ModerationHandler) Lock(c echo.Context) error {
    return h.run(c, func(ctx context.Context, a service.Actor, id uint64, _ moderationRequest) (*service.ModerationResult, error) {
        return h.Moderation.Lock(ctx, a, id)
    })
}

// Unlock handles POST /v1/sessions/:id/moderation/unlock with an optional
// {"capacity": n}.
func (h *ModerationHandler) Unlock(c echo.Context) error {
    return h.run(c, func(ctx context.Context, a service.Actor, id uint64, body moderationRequest) (*service.ModerationResult, error) {
        return h.Moderation.Unlock(ctx, a, id, body.Capacity)
    })
}

// Capacity handles POST /v1/sessions/:id/moderation/capacity with
// {"capacity": n}.
func (h *ModerationHandler) Capacity(c echo.Context) error {
    return h.run(c, func(ctx context.Context, a service.Actor, id uint64, body moderationRequest) (*service.ModerationResult, error) {
        if body.Capacity == nil {
            return nil, service.ErrInvalidInput
        }
        return h.Moderation.SetCapacity(ctx, a, id, *body.Capacity)
    })
}

// Kick handles POST /v1/sessions/:id/moderation/kick with {"user_id": n}.
func (h *ModerationHandler) Kick(c echo.Context) error {
    return h.run(c, func(ctx context.Context, a service.Actor, id uint64, body moderationRequest) (*service.ModerationResult, error) {
        return h.Moderation.Kick(ctx, a, id, body.UserID)
    })
}

// Mute handles POST /v1/sessions/:id/moderation/mute with {"user_id": n}.
func (h *ModerationHandler) Mute(c echo.Context) error {
    return h.run(c, func(ctx context.Context, a service.Actor, id uint64, body moderationRequest) (*service.ModerationResult, error) {
        return h.Moderation.Mute(ctx, a, id, body.UserID)
    })
}

// Evict handles POST /v1/sessions/:id/moderation/evict with {"user_id": n}.
func (h *ModerationHandler) Evict(c echo.Context) error {
    return h.run(c, func(ctx context.Context, a service.Actor, id uint64, body moderationRequest) (*service.ModerationResult, error) {
        return h.Moderation.Evict(ctx, a, id, body.UserID)
    })
}

// Actions handles GET /v1/sessions/:id/moderation/actions.
func (h *ModerationHandler) Actions(c echo.Context) error {
    sess, err := loadSession(c, h.Sessions)
    if err != nil {
        return fail(c, h.Log, err)
    }
    items, err := h.Moderation.Actions(c.Request().Context(), callerFrom(c).Roles, sess)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

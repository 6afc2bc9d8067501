package handler

import (
    "log/slog"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/live-classroom/internal/service"
)

// TokenHandler issues realtime transport tokens.
type TokenHandler struct {
    Sessions *service.SessionService
    Issuer   *service.TokenIssuer
    Log      *slog.Logger
}

func NewTokenHandler(sessions *service.SessionService, issuer *service.TokenIssuer, logger *slog.Logger) *TokenHandler {
    if sessions == nil || issuer == nil {
        panic("nil service passed to NewTokenHandler")
    }
    return &TokenHandler{Sessions: sessions, Issuer: issuer, Log: logger}
}

// RTCToken handles GET /v1/sessions/:id/rtc-token?role=host|audience&ttl=.
// role defaults to audience; publisher and broadcaster are accepted as
// aliases of host, subscriber of audience.
func (h *TokenHandler) RTCToken(c echo.Context) error {
    var wantHost bool
    switch strings.ToLower(c.QueryParam("role")) {
    case "", "audience", "subscriber":
    case "host", "publisher", "broadcaster":
        wantHost = true
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be host or audience"})
    }
    ttl, err := service.ParseTTL(c.QueryParam("ttl"))
    if err != nil {
        return fail(c, h.Log, err)
    }
    sess, err := loadSession(c, h.Sessions)
    if err != nil {
        return fail(c, h.Log, err)
    }
    who := callerFrom(c)
    out, err := h.Issuer.Issue(c.Request().Context(), service.TokenRequest{
        Session:  sess,
        UserID:   who.UserID,
        Roles:    who.Roles,
        WantHost: wantHost,
        TTL:      ttl,
    })
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, out)
}

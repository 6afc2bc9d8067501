package handler

import (
    "log/slog"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/live-classroom/internal/service"
)

// SessionHandler exposes the session registry.
type SessionHandler struct {
    Sessions *service.SessionService
    Log      *slog.Logger
}

func NewSessionHandler(sessions *service.SessionService, logger *slog.Logger) *SessionHandler {
    if sessions == nil {
        panic("nil session service passed to NewSessionHandler")
    }
    return &SessionHandler{Sessions: sessions, Log: logger}
}

type createSessionRequest struct {
    Title            string     `json:"title"`
    StartTime        *time.Time `json:"start_time"`
    DurationMin      *int       `json:"duration_minutes"`
    MaxParticipants  *int       `json:"max_participants"`
    RecordingEnabled bool       `json:"recording_enabled"`
}

// Create handles POST /v1/sessions.  The session belongs to the request's
// tenant, or is public when no tenant is given.
func (h *SessionHandler) Create(c echo.Context) error {
    var body createSessionRequest
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    who := callerFrom(c)
    sess, err := h.Sessions.Create(c.Request().Context(), who.UserID, who.Org, who.Roles, service.CreateSessionInput{
        Title:            body.Title,
        StartTime:        body.StartTime,
        DurationMin:      body.DurationMin,
        MaxParticipants:  body.MaxParticipants,
        RecordingEnabled: body.RecordingEnabled,
    })
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, sess)
}

// List handles GET /v1/sessions?owner=me|<id>&limit=&offset=.
func (h *SessionHandler) List(c echo.Context) error {
    who := callerFrom(c)
    var owner *uint64
    switch raw := c.QueryParam("owner"); raw {
    case "":
    case "me":
        id := who.UserID
        owner = &id
    default:
        id, err := strconv.ParseUint(raw, 10, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid owner"})
        }
        owner = &id
    }
    limit, _ := strconv.Atoi(c.QueryParam("limit"))
    offset, _ := strconv.Atoi(c.QueryParam("offset"))
    if offset < 0 {
        offset = 0
    }
    items, err := h.Sessions.List(c.Request().Context(), who.Org, who.Roles, owner, limit, offset)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// Get handles GET /v1/sessions/:id.
func (h *SessionHandler) Get(c echo.Context) error {
    sess, err := loadSession(c, h.Sessions)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, sess)
}

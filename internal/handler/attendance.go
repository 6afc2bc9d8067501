package handler

import (
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/live-classroom/internal/service"
)

// AttendanceHandler exposes attendance records and their administration.
type AttendanceHandler struct {
    Sessions   *service.SessionService
    Attendance *service.AttendanceService
    Log        *slog.Logger
}

func NewAttendanceHandler(sessions *service.SessionService, attendance *service.AttendanceService, logger *slog.Logger) *AttendanceHandler {
    if sessions == nil || attendance == nil {
        panic("nil service passed to NewAttendanceHandler")
    }
    return &AttendanceHandler{Sessions: sessions, Attendance: attendance, Log: logger}
}

// List handles GET /v1/sessions/:id/attendance.
func (h *AttendanceHandler) List(c echo.Context) error {
    sess, err := loadSession(c, h.Sessions)
    if err != nil {
        return fail(c, h.Log, err)
    }
    items, err := h.Attendance.List(c.Request().Context(), callerFrom(c).Roles, sess)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// Mine handles GET /v1/sessions/:id/attendance/me.
func (h *AttendanceHandler) Mine(c echo.Context) error {
    sess, err := loadSession(c, h.Sessions)
    if err != nil {
        return fail(c, h.Log, err)
    }
    a, err := h.Attendance.Mine(c.Request().Context(), sess.ID, callerFrom(c).UserID)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"attendance": a, "state": a.State()})
}

// CloseAll handles POST /v1/sessions/:id/attendance/close-all.
func (h *AttendanceHandler) CloseAll(c echo.Context) error {
    id, ok := sessionID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
    }
    who := callerFrom(c)
    closed, err := h.Attendance.ForceCloseAll(c.Request().Context(), who.Org, who.Roles, id)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"closed": closed, "count": len(closed)})
}

// Recompute handles POST /v1/sessions/:id/attendance/recompute.
func (h *AttendanceHandler) Recompute(c echo.Context) error {
    id, ok := sessionID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
    }
    who := callerFrom(c)
    changed, err := h.Attendance.Recompute(c.Request().Context(), who.Org, who.Roles, id)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"updated": changed})
}

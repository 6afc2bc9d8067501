package handler

import (
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/live-classroom/internal/service"
)

// AdmissionHandler exposes seat holds, joins and leaves.  Authentication,
// tenant resolution and role resolution have already run in middleware.
type AdmissionHandler struct {
    Sessions  *service.SessionService
    Admission *service.AdmissionService
    Log       *slog.Logger
}

func NewAdmissionHandler(sessions *service.SessionService, admission *service.AdmissionService, logger *slog.Logger) *AdmissionHandler {
    if sessions == nil || admission == nil {
        panic("nil service passed to NewAdmissionHandler")
    }
    return &AdmissionHandler{Sessions: sessions, Admission: admission, Log: logger}
}

func (h *AdmissionHandler) request(c echo.Context) (service.AdmissionRequest, bool) {
    id, ok := sessionID(c)
    who := callerFrom(c)
    return service.AdmissionRequest{SessionID: id, UserID: who.UserID, Org: who.Org, Roles: who.Roles}, ok
}

// Hold handles POST /v1/sessions/:id/hold.
func (h *AdmissionHandler) Hold(c echo.Context) error {
    req, ok := h.request(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
    }
    res, err := h.Admission.Hold(c.Request().Context(), req)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"reservation": res})
}

// Join handles POST /v1/sessions/:id/join.  A full session yields 409.
func (h *AdmissionHandler) Join(c echo.Context) error {
    req, ok := h.request(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
    }
    res, err := h.Admission.Join(c.Request().Context(), req)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"reservation": res.Reservation, "attendance": res.Attendance})
}

// Leave handles POST /v1/sessions/:id/leave.
func (h *AdmissionHandler) Leave(c echo.Context) error {
    req, ok := h.request(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
    }
    res, err := h.Admission.Leave(c.Request().Context(), req)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"attendance": res.Attendance, "total_seconds": res.TotalSeconds})
}

// Reservations handles GET /v1/sessions/:id/reservations for moderators.
func (h *AdmissionHandler) Reservations(c echo.Context) error {
    sess, err := loadSession(c, h.Sessions)
    if err != nil {
        return fail(c, h.Log, err)
    }
    items, err := h.Admission.Reservations(c.Request().Context(), callerFrom(c).Roles, sess)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// MyReservation handles GET /v1/sessions/:id/reservations/me.
func (h *AdmissionHandler) MyReservation(c echo.Context) error {
    sess, err := loadSession(c, h.Sessions)
    if err != nil {
        return fail(c, h.Log, err)
    }
    res, err := h.Admission.Reservation(c.Request().Context(), sess.ID, callerFrom(c).UserID)
    if err != nil {
        return fail(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, res)
}

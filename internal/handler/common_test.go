package handler

import (
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "log/slog"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/live-classroom/internal/service"
)

func TestStatusFor(t *testing.T) {
    cases := map[error]int{
        service.ErrMissingTenant:                          http.StatusForbidden,
        service.ErrNotMember:                              http.StatusForbidden,
        service.ErrForbidden:                              http.StatusForbidden,
        service.ErrPublishNotAllowed:                      http.StatusForbidden,
        service.ErrSessionNotFound:                        http.StatusNotFound,
        service.ErrSessionFull:                            http.StatusConflict,
        service.ErrDuplicateChannel:                       http.StatusConflict,
        service.ErrNotJoined:                              http.StatusBadRequest,
        fmt.Errorf("%w: bad ttl", service.ErrInvalidInput): http.StatusBadRequest,
        errors.New("disk on fire"):                        http.StatusInternalServerError,
    }
    for err, want := range cases {
        assert.Equal(t, want, statusFor(err), err.Error())
    }
}

func TestFailHidesInternalErrors(t *testing.T) {
    logger := slog.New(slog.NewTextHandler(io.Discard, nil))
    e := echo.New()

    run := func(err error) (int, string) {
        rec := httptest.NewRecorder()
        c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
        require.NoError(t, fail(c, logger, err))
        var body map[string]string
        require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
        return rec.Code, body["error"]
    }

    code, msg := run(errors.New("connection reset by peer"))
    assert.Equal(t, http.StatusInternalServerError, code)
    assert.Equal(t, "internal error", msg)

    code, msg = run(service.ErrTransportConfig)
    assert.Equal(t, http.StatusInternalServerError, code)
    assert.Equal(t, service.ErrTransportConfig.Error(), msg)

    code, msg = run(service.ErrSessionFull)
    assert.Equal(t, http.StatusConflict, code)
    assert.Equal(t, service.ErrSessionFull.Error(), msg)
}

func TestSessionID(t *testing.T) {
    e := echo.New()
    for raw, ok := range map[string]bool{"12": true, "0": false, "-1": false, "x": false} {
        c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
        c.SetParamNames("id")
        c.SetParamValues(raw)
        _, got := sessionID(c)
        assert.Equal(t, ok, got, raw)
    }
}

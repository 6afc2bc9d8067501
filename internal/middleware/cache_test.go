package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/go-redis/redismock/v9"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/live-classroom/internal/config"
)

func TestRedisCache_ServesHitWithoutHandler(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    cfg := config.CacheConfig{
        Enabled:     true,
        Methods:     map[string]bool{http.MethodGet: true},
        TTL:         time.Minute,
        KeyStrategy: "tenant_route_query",
        Prefix:      "cache",
    }

    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, "/sessions?limit=5", nil)
    req.Header.Set(TenantHeader, "3")
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/sessions")
    key := cacheKeyFrom(cfg, c)

    payload, err := encodePayload(http.StatusOK,
        http.Header{"Content-Type": []string{echo.MIMEApplicationJSON}}, []byte(`{"count":0}`))
    require.NoError(t, err)
    mock.ExpectGet(key).SetVal(string(payload))

    called := false
    e.GET("/sessions", func(c echo.Context) error {
        called = true
        return c.JSON(http.StatusOK, echo.Map{"count": 1})
    }, NewRedisCache(cfg, rdb))

    req = httptest.NewRequest(http.MethodGet, "/sessions?limit=5", nil)
    req.Header.Set(TenantHeader, "3")
    rec := serve(e, req)

    assert.False(t, called)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
    assert.JSONEq(t, `{"count":0}`, rec.Body.String())
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_SkipsUncachedMethods(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{http.MethodGet: true}, Prefix: "cache"}

    e := echo.New()
    e.POST("/sessions", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, NewRedisCache(cfg, rdb))

    rec := serve(e, httptest.NewRequest(http.MethodPost, "/sessions", nil))
    assert.Equal(t, http.StatusCreated, rec.Code)
    assert.Empty(t, rec.Header().Get("X-Cache"))
    assert.NoError(t, mock.ExpectationsWereMet())
}

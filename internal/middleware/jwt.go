package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strconv"
    "strings" // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/live-classroom/internal/model"
)

// JWTAuth returns an Echo middleware that validates a Bearer identity token
// issued by the platform's identity provider and stores the caller as a
// model.Principal.  Handlers read it with PrincipalFrom or UserIDFrom.
//
// Claims read:
//   sub          – user id, as a decimal string or a number
//   roles        – global role slugs (optional)
//   is_staff     – platform staff flag (optional)
//   is_superuser – platform superuser flag (optional)
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Only HMAC-signed tokens are accepted; the callback rejects
            // any other algorithm before the signature is checked.
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }
            p, ok := principalFromClaims(claims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
            }

            c.Set(principalKey, p)
            c.Set(userIDKey, p.UserID)
            return next(c)
        }
    }
}

func principalFromClaims(claims jwt.MapClaims) (model.Principal, bool) {
    var p model.Principal
    switch sub := claims["sub"].(type) {
    case string:
        id, err := strconv.ParseUint(sub, 10, 64)
        if err != nil {
            return p, false
        }
        p.UserID = id
    case float64:
        if sub < 1 || sub != float64(uint64(sub)) {
            return p, false
        }
        p.UserID = uint64(sub)
    default:
        return p, false
    }
    if p.UserID == 0 {
        return p, false
    }
    p.IsStaff, _ = claims["is_staff"].(bool)
    p.IsSuperuser, _ = claims["is_superuser"].(bool)
    if list, ok := claims["roles"].([]interface{}); ok {
        for _, r := range list {
            if s, ok := r.(string); ok && s != "" {
                p.Roles = append(p.Roles, model.RoleSlug(s))
            }
        }
    }
    return p, true
}

package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// RateLimitConfig configures one Redis token bucket.  Scope separates the
// buckets of different endpoints so that, for example, token issuance and
// joins are throttled independently.
type RateLimitConfig struct {
    Enabled        bool
    Scope          string
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig reads the global bucket used by every /v1 route.
func LoadRateLimitConfig() RateLimitConfig {
    def := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Scope:          "global",
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
        def.Capacity = b
    }
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        def.RefillTokens = 1
        def.RefillInterval = every
    }
    return def.normalize()
}

// LoadScopedRateLimit reads a per-scope bucket.  Variables are named
// RATE_LIMIT_<SCOPE>_CAPACITY and RATE_LIMIT_<SCOPE>_REFILL_EVERY; the
// global enable switch, prefix and debug flag are shared.  Scoped buckets
// are keyed per user, since their purpose is to stop one client from
// hammering join or token endpoints.
func LoadScopedRateLimit(scope string, capacity int, every time.Duration) RateLimitConfig {
    env := "RATE_LIMIT_" + strings.ToUpper(scope)
    cfg := RateLimitConfig{
        Enabled:        envBool(env+"_ENABLED", envBool("RATE_LIMIT_ENABLED", true)),
        Scope:          scope,
        Capacity:       envInt(env+"_CAPACITY", capacity),
        RefillTokens:   1,
        RefillInterval: envDur(env+"_REFILL_EVERY", every),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr(env+"_KEY_STRATEGY", "user"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    return cfg.normalize()
}

func (c RateLimitConfig) normalize() RateLimitConfig {
    if c.Capacity < 1 {
        c.Capacity = 1
    }
    if c.RefillTokens < 1 {
        c.RefillTokens = 1
    }
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
        c.TTL = minTTL
    }
    return c
}

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    switch os.Getenv(k) {
    case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
        return true
    case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
        return false
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if dur, err := time.ParseDuration(v); err == nil {
        return dur
    }
    return d
}

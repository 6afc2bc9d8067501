package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strings"
    "time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values are enforced by must(); the
// rest fall back to defaults that suit local development.
type Config struct {
    Env       string // application environment (e.g. "dev", "prod")
    Port      string // HTTP port to listen on
    DBDriver  string // "mysql" (default) or "sqlite"
    DBUser    string // database username
    DBPass    string // database password (optional)
    DBHost    string // database host address
    DBPort    string // database port number
    DBName    string // database name
    SQLiteDSN string // sqlite file or ":memory:" when DBDriver is sqlite
    JWTSecret string // secret used to verify identity tokens

    SeatGrace          time.Duration // how long a CONFIRMED seat outlives its last join
    HoldTTL            time.Duration // lifetime of a PENDING hold
    SweepInterval      time.Duration // reclamation sweep period
    DefaultCapacity    int           // max participants of a new session
    DefaultDurationMin int           // duration of a new session
    UnlockCapacity     int           // capacity restored by unlock without a value

    RTC    RTCConfig
    Tokens TokenConfig

    AMQPURL        string        // broker for moderation signals and attendance events
    AttendanceDir  string        // directory of the attendance log written by the consumer
    MetricsEnabled bool          // expose /metrics
    RoleCacheTTL   time.Duration // lifetime of cached role lookups
}

// RTCConfig selects the realtime transport and carries its credentials.
type RTCConfig struct {
    Provider         string // "agora" or "livekit"
    AgoraAppID       string
    AgoraAppCert     string
    LiveKitAPIKey    string
    LiveKitAPISecret string
}

// TokenConfig bounds transport token lifetimes.
type TokenConfig struct {
    DefaultTTL time.Duration
    MinTTL     time.Duration
    MaxTTL     time.Duration
    AllowDummy bool // placeholder tokens when credentials are missing; dev only
}

// IsProd reports whether the service runs in production.
func (c Config) IsProd() bool {
    return strings.EqualFold(c.Env, "prod") || strings.EqualFold(c.Env, "production")
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    c := Config{
        Env:       must("APP_ENV"),    // environment (dev/test/prod)
        Port:      must("APP_PORT"),   // port to bind the HTTP server
        DBDriver:  strings.ToLower(envStr("DB_DRIVER", "mysql")),
        JWTSecret: must("JWT_SECRET"), // secret used for verifying JWTs

        SeatGrace:          envDur("SEAT_GRACE", 5*time.Minute),
        HoldTTL:            envDur("HOLD_TTL", 5*time.Minute),
        SweepInterval:      envDur("SWEEP_INTERVAL", time.Minute),
        DefaultCapacity:    envInt("DEFAULT_CAPACITY", 20),
        DefaultDurationMin: envInt("DEFAULT_DURATION_MIN", 60),
        UnlockCapacity:     envInt("UNLOCK_CAPACITY", 20),

        RTC: RTCConfig{
            Provider:         strings.ToLower(envStr("RTC_PROVIDER", "agora")),
            AgoraAppID:       os.Getenv("AGORA_APP_ID"),
            AgoraAppCert:     os.Getenv("AGORA_APP_CERT"),
            LiveKitAPIKey:    os.Getenv("LIVEKIT_API_KEY"),
            LiveKitAPISecret: os.Getenv("LIVEKIT_API_SECRET"),
        },

        AMQPURL:        envStr("RABBITMQ_URL", envStr("AMQP_URL", "")),
        AttendanceDir:  envStr("ATTENDANCE_LOG_DIR", "logs"),
        MetricsEnabled: envBool("METRICS_ENABLED", true),
        RoleCacheTTL:   envDur("ROLE_CACHE_TTL", 30*time.Second),
    }

    switch c.DBDriver {
    case "sqlite":
        c.SQLiteDSN = envStr("SQLITE_DSN", "classroom.db")
    case "mysql":
        c.DBUser = must("DB_USER")      // database user
        c.DBPass = os.Getenv("DB_PASS") // database password (empty allowed)
        c.DBHost = must("DB_HOST")      // database host
        c.DBPort = must("DB_PORT")      // database port
        c.DBName = must("DB_NAME")      // database name
    default:
        log.Fatalf("unsupported DB_DRIVER: %q", c.DBDriver)
    }

    c.Tokens = TokenConfig{
        DefaultTTL: time.Duration(envInt("TOKEN_TTL_SEC", 3600)) * time.Second,
        MinTTL:     time.Duration(envInt("TOKEN_MIN_TTL_SEC", 60)) * time.Second,
        MaxTTL:     time.Duration(envInt("TOKEN_MAX_TTL_SEC", 86400)) * time.Second,
        AllowDummy: envBool("RTC_ALLOW_DUMMY", !c.IsProd()),
    }
    if c.Tokens.MinTTL > c.Tokens.MaxTTL {
        log.Fatalf("TOKEN_MIN_TTL_SEC (%s) exceeds TOKEN_MAX_TTL_SEC (%s)", c.Tokens.MinTTL, c.Tokens.MaxTTL)
    }
    return c
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

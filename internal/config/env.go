package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Env struct {
	AppAddr string
	GinMode string

	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	DBMaxOpenConns int
	RunMigrations  bool

	JWTSecret      string
	TokenTTL       time.Duration
	AuthCookieName string

	CancellationWindow time.Duration
	CORSAllowedOrigins []string
}

func LoadEnv() Env {
	return Env{
		AppAddr: getString("APP_ADDR", ":8080"),
		GinMode: strings.TrimSpace(os.Getenv("GIN_MODE")),

		DBHost:         getString("DB_HOST", "127.0.0.1"),
		DBPort:         getInt("DB_PORT", 3306),
		DBUser:         getString("DB_USER", "root"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         getString("DB_NAME", "bus_ticketing"),
		DBMaxOpenConns: getInt("DB_MAX_OPEN_CONNS", 25),
		RunMigrations:  getBool("RUN_MIGRATIONS", true),

		JWTSecret:      getString("JWT_SECRET", "change-me-in-production"),
		TokenTTL:       getDuration("TOKEN_TTL", 24*time.Hour),
		AuthCookieName: getString("AUTH_COOKIE_NAME", "auth_token"),

		CancellationWindow: getDuration("CANCELLATION_WINDOW", 24*time.Hour),
		CORSAllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		}),
	}
}

func getString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getDuration accepts Go durations ("36h") or a bare number of seconds.
func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

func getList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

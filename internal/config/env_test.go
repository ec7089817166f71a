package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadEnvDefaults(t *testing.T) {
	for _, k := range []string{"APP_ADDR", "DB_PORT", "RUN_MIGRATIONS", "TOKEN_TTL", "CANCELLATION_WINDOW", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	env := LoadEnv()
	if env.AppAddr != ":8080" || env.DBPort != 3306 || !env.RunMigrations {
		t.Fatalf("unexpected defaults: %+v", env)
	}
	if env.CancellationWindow != 24*time.Hour || env.TokenTTL != 24*time.Hour {
		t.Fatalf("unexpected durations: window=%s ttl=%s", env.CancellationWindow, env.TokenTTL)
	}
	if len(env.CORSAllowedOrigins) == 0 {
		t.Fatalf("expected default CORS origins")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DB_PORT", "3307")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("CANCELLATION_WINDOW", "36h")
	t.Setenv("TOKEN_TTL", "900")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	env := LoadEnv()
	if env.DBPort != 3307 || env.RunMigrations {
		t.Fatalf("overrides not applied: %+v", env)
	}
	if env.CancellationWindow != 36*time.Hour {
		t.Fatalf("window = %s", env.CancellationWindow)
	}
	if env.TokenTTL != 15*time.Minute {
		t.Fatalf("ttl = %s", env.TokenTTL)
	}
	if got := strings.Join(env.CORSAllowedOrigins, "|"); got != "https://a.example|https://b.example" {
		t.Fatalf("origins = %q", got)
	}
}

func TestLoadEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")
	t.Setenv("CANCELLATION_WINDOW", "soon")
	env := LoadEnv()
	if env.DBPort != 3306 || env.CancellationWindow != 24*time.Hour {
		t.Fatalf("garbage should fall back to defaults: %+v", env)
	}
}

func TestDSN(t *testing.T) {
	dsn := DSN(Env{DBUser: "app", DBPassword: "pw", DBHost: "db", DBPort: 3306, DBName: "bus_ticketing"})
	for _, want := range []string{"app:pw@tcp(db:3306)/bus_ticketing", "parseTime=true", "clientFoundRows=true"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn %q missing %q", dsn, want)
		}
	}
}

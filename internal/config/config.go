package config

import (
	"os"
	"strconv"
	"strings"
)

// DefaultPassingScore is the percentage an attempt must reach before it
// counts toward lesson completion. Overridable via PASSING_SCORE.
const DefaultPassingScore = 70

type Config struct {
	HTTPAddr string
	SiteID   string

	DBDriver string // "sqlite" or "postgres"
	DBDSN    string

	AuthHMACSecret string

	PassingScore int

	CORSOrigins []string

	// AMQPURL enables the completion event publisher when non-empty.
	AMQPURL string
}

func FromEnv() Config {
	return Config{
		HTTPAddr:       envOr("HTTP_ADDR", ":8080"),
		SiteID:         envOr("SITE_ID", "local"),
		DBDriver:       envOr("DB_DRIVER", "sqlite"),
		DBDSN:          envOr("DB_DSN", ""),
		AuthHMACSecret: envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		PassingScore:   envInt("PASSING_SCORE", DefaultPassingScore),
		CORSOrigins:    csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		AMQPURL:        os.Getenv("AMQP_URL"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EXAM_DURATION_MINUTES", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg := Load()

	assert.Equal(t, 90*time.Minute, cfg.ExamDuration)
	assert.Nil(t, cfg.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EXAM_DURATION_MINUTES", "45")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("MAX_DB_CONNS", "not-a-number")

	cfg := Load()

	assert.Equal(t, 45*time.Minute, cfg.ExamDuration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, int32(16), cfg.MaxDBConns)
}

func TestLoadDurations(t *testing.T) {
	t.Setenv("CONNECT_BACKOFF", "750ms")
	t.Setenv("DB_CONN_MAX_LIFETIME", "soon")

	cfg := Load()

	assert.Equal(t, 750*time.Millisecond, cfg.ConnectBackoff)
	assert.Equal(t, time.Hour, cfg.DBConnMaxLifetime)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			GinMode:      "release",
			DatabaseURL:  "postgres://localhost/db",
			RedisURL:     "redis://localhost:6379/0",
			JWTSecret:    "0123456789abcdef0123456789abcdef",
			MaxDBConns:   8,
			MinDBConns:   2,
			ExamDuration: time.Hour,
		}
	}

	assert.NoError(t, valid().Validate())

	cfg := valid()
	cfg.JWTSecret = "short"
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")

	cfg = valid()
	cfg.GinMode = "debug"
	cfg.JWTSecret = "short"
	assert.NoError(t, cfg.Validate(), "short secrets are fine outside release")

	cfg = valid()
	cfg.MinDBConns = 9
	cfg.DatabaseURL = ""
	err := cfg.Validate()
	assert.ErrorContains(t, err, "MIN_DB_CONNS")
	assert.ErrorContains(t, err, "DATABASE_URL")
}

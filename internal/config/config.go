package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-relay/internal/obslog"
)

var (
	ErrInvalidValue = errors.New("invalid config value")
)

type AppConfig struct {
	HTTPAddr string

	RedisURL     string
	RedisChannel string

	AllowedOrigins []string

	OutboxSize     int
	WriteTimeout   time.Duration
	ReadLimitBytes int64

	StartFEN    string
	MessagesDir string

	Log obslog.Options
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:       ":3000",
		RedisChannel:   "chess:events",
		OutboxSize:     32,
		WriteTimeout:   3 * time.Second,
		ReadLimitBytes: 4096,
		Log: obslog.Options{
			Level:   "info",
			Format:  "legacy",
			Console: true,
			File:    "",
		},
	}

	if v := env("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.RedisURL = env("REDIS_URL")
	if v := env("REDIS_CHANNEL"); v != "" {
		cfg.RedisChannel = v
	}
	cfg.AllowedOrigins = splitList(env("ALLOWED_ORIGINS"))

	if v := env("OUTBOX_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: OUTBOX_SIZE=%q", ErrInvalidValue, v)
		}
		cfg.OutboxSize = n
	}
	if v := env("WRITE_TIMEOUT_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: WRITE_TIMEOUT_MS=%q", ErrInvalidValue, v)
		}
		cfg.WriteTimeout = time.Duration(n) * time.Millisecond
	}
	if v := env("READ_LIMIT_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 256 {
			return nil, fmt.Errorf("%w: READ_LIMIT_BYTES=%q", ErrInvalidValue, v)
		}
		cfg.ReadLimitBytes = n
	}

	cfg.StartFEN = env("START_FEN")
	cfg.MessagesDir = env("MESSAGES_DIR")

	// logging
	if v := env("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
	cfg.Log.Console = parseBool(env("LOG_TO_CONSOLE"), true)
	if parseBool(env("LOG_TO_FILE"), false) {
		cfg.Log.File = "logs/relay.log"
		if v := env("LOG_FILE"); v != "" {
			cfg.Log.File = v
		}
	}
	cfg.Log.Caller = parseBool(env("LOG_CALLER"), false)

	if cfg.RedisURL != "" && !strings.HasPrefix(cfg.RedisURL, "redis://") && !strings.HasPrefix(cfg.RedisURL, "rediss://") {
		return nil, fmt.Errorf("%w: REDIS_URL must use redis:// or rediss://", ErrInvalidValue)
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseBool(v string, def bool) bool {
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

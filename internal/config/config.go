package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPAddr string

	RedisURL    string
	DatabaseURL string

	PresenceTimeout       time.Duration
	PresenceSweepInterval time.Duration

	CallPendingTTL       time.Duration
	CallDeclineGrace     time.Duration
	CallSweepInterval    time.Duration
	CallNotifySuperseded bool
	CallGlareTiebreak    bool

	GameWinReward int
	GameStateTTL  time.Duration
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:              ":5000",
		PresenceTimeout:       15 * time.Second,
		PresenceSweepInterval: 30 * time.Second,
		CallPendingTTL:        45 * time.Second,
		CallDeclineGrace:      5 * time.Second,
		CallSweepInterval:     10 * time.Second,
		CallNotifySuperseded:  true,
		CallGlareTiebreak:     false,
		GameWinReward:         20,
		GameStateTTL:          24 * time.Hour,
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	} else if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.HTTPAddr = ":" + v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	durationEnv("PRESENCE_TIMEOUT", &cfg.PresenceTimeout)
	durationEnv("PRESENCE_SWEEP_INTERVAL", &cfg.PresenceSweepInterval)
	durationEnv("CALL_PENDING_TTL", &cfg.CallPendingTTL)
	durationEnv("CALL_DECLINE_GRACE", &cfg.CallDeclineGrace)
	durationEnv("CALL_SWEEP_INTERVAL", &cfg.CallSweepInterval)
	durationEnv("GAME_STATE_TTL", &cfg.GameStateTTL)
	boolEnv("CALL_NOTIFY_SUPERSEDED", &cfg.CallNotifySuperseded)
	boolEnv("CALL_GLARE_TIEBREAK", &cfg.CallGlareTiebreak)

	if v := strings.TrimSpace(os.Getenv("GAME_WIN_REWARD")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.GameWinReward = n
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.CallPendingTTL <= cfg.CallDeclineGrace {
		return nil, errors.New("CALL_PENDING_TTL must exceed CALL_DECLINE_GRACE")
	}
	return cfg, nil
}

// durationEnv accepts Go durations ("15s") or plain seconds ("15").
func durationEnv(key string, dst *time.Duration) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		*dst = d
		return
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		*dst = time.Duration(n) * time.Second
	}
}

func boolEnv(key string, dst *bool) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

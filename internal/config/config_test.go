package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DATABASE_URL", "sqlite://famhub.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Second, cfg.PresenceTimeout)
	assert.Equal(t, 30*time.Second, cfg.PresenceSweepInterval)
	assert.Equal(t, 5*time.Second, cfg.CallDeclineGrace)
	assert.True(t, cfg.CallNotifySuperseded)
	assert.False(t, cfg.CallGlareTiebreak)
	assert.Equal(t, 20, cfg.GameWinReward)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DATABASE_URL", "postgres://localhost/famhub")
	t.Setenv("PORT", "8080")
	t.Setenv("PRESENCE_TIMEOUT", "20")
	t.Setenv("CALL_PENDING_TTL", "2m")
	t.Setenv("CALL_GLARE_TIEBREAK", "true")
	t.Setenv("GAME_WIN_REWARD", "50")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 20*time.Second, cfg.PresenceTimeout)
	assert.Equal(t, 2*time.Minute, cfg.CallPendingTTL)
	assert.True(t, cfg.CallGlareTiebreak)
	assert.Equal(t, 50, cfg.GameWinReward)
}

func TestLoadRequiresStores(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsTTLShorterThanGrace(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DATABASE_URL", "sqlite://famhub.db")
	t.Setenv("CALL_PENDING_TTL", "3s")
	_, err := Load()
	require.Error(t, err)
}

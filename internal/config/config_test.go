package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "support-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.True(t, cfg.Liveness.Enabled)
	assert.Equal(t, []int{4, 6, 8}, cfg.Liveness.IntervalsMinutes)
	assert.Equal(t, 3, cfg.Liveness.FailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.Liveness.ProbeTimeout())
	assert.Equal(t, "it", cfg.Notify.DefaultLocale)
	assert.InDelta(t, 0.55, cfg.Assistant.MinConfidence, 0.0001)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("LIVENESS_INTERVALS_MINUTES", "1, 2, 3")
	t.Setenv("LIVENESS_FAILURE_THRESHOLD", "5")
	t.Setenv("ASSISTANT_URL", "http://assistant.local/draft")
	t.Setenv("ASSISTANT_TIMEOUT_SECONDS", "7")
	t.Setenv("NOTIFY_DEFAULT_LOCALE", "en")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Equal(t, []int{1, 2, 3}, cfg.Liveness.IntervalsMinutes)
	assert.Equal(t, 5, cfg.Liveness.FailureThreshold)
	assert.Equal(t, "http://assistant.local/draft", cfg.Assistant.URL)
	assert.Equal(t, 7*time.Second, cfg.Assistant.Timeout())
	assert.Equal(t, "en", cfg.Notify.DefaultLocale)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestIntervalsDropNonPositiveEntries(t *testing.T) {
	l := LivenessConfig{IntervalsMinutes: []int{0, -2, 5}}
	assert.Equal(t, []time.Duration{5 * time.Minute}, l.Intervals())

	empty := LivenessConfig{IntervalsMinutes: []int{0}}
	assert.Equal(t, []time.Duration{4 * time.Minute, 6 * time.Minute, 8 * time.Minute}, empty.Intervals())
}

func TestMalformedIntSliceFallsBack(t *testing.T) {
	t.Setenv("LIVENESS_INTERVALS_MINUTES", "1,x,3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []int{4, 6, 8}, cfg.Liveness.IntervalsMinutes)
}

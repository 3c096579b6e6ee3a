package kernelconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatman-systems/workflowkernel/doctrine"
)

func TestLoadFallsBackToDoctrineDefaults(t *testing.T) {
	loader := NewConfigLoader("KERNELTEST_EMPTY")
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, doctrine.Default().MaxHotPathTicks, cfg.Doctrine.MaxHotPathTicks)
	assert.False(t, cfg.AutoPromote)
	assert.Equal(t, ":8088", cfg.ControlAddr)
}

func TestLoadReadsOverridesFromEnvironment(t *testing.T) {
	t.Setenv("KERNELTEST_MAX_HOT_PATH_TICKS", "16")
	t.Setenv("KERNELTEST_AUTO_PROMOTE", "true")
	t.Setenv("KERNELTEST_CONTROL_ADDR", ":9999")
	t.Setenv("KERNELTEST_BACKOFF_KIND", "fixed")

	loader := NewConfigLoader("KERNELTEST")
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, uint32(16), cfg.Doctrine.MaxHotPathTicks)
	assert.True(t, cfg.AutoPromote)
	assert.Equal(t, ":9999", cfg.ControlAddr)
	assert.Equal(t, doctrine.BackoffFixed, cfg.Doctrine.DefaultBackoff.Kind)
}

func TestLoadRejectsZeroHotPathTicks(t *testing.T) {
	t.Setenv("KERNELTEST_ZERO_MAX_HOT_PATH_TICKS", "0")
	loader := NewConfigLoader("KERNELTEST_ZERO")
	_, err := loader.Load()
	assert.Error(t, err)
}

func TestLoadRejectsOutOfRangeViolationRate(t *testing.T) {
	t.Setenv("KERNELTEST_RATE_TARGET_VIOLATION_RATE", "1.5")
	loader := NewConfigLoader("KERNELTEST_RATE")
	_, err := loader.Load()
	assert.Error(t, err)
}

func TestEnvConfigPrefixScoping(t *testing.T) {
	t.Setenv("MYPREFIX_SOME_KEY", "value")
	ec := NewEnvConfig("MYPREFIX")
	assert.Equal(t, "value", ec.GetString("SOME_KEY", "fallback"))
	assert.Equal(t, "fallback", ec.GetString("OTHER_KEY", "fallback"))
}

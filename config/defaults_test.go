package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestDefaultEngineConfig_StopOnErrorDefaultsTrue(t *testing.T) {
	assert.True(t, DefaultEngineConfig().StopOnError)
}

func TestDefaultCacheConfig_DisabledByDefault(t *testing.T) {
	c := DefaultCacheConfig()
	assert.False(t, c.Enabled)
	assert.Equal(t, "memory", c.Backend)
}

func TestDefaultHistoryConfig_UsesSQLite(t *testing.T) {
	h := DefaultHistoryConfig()
	assert.Equal(t, "sqlite", h.Driver)
	assert.NotEmpty(t, h.Name)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PUSHD_PORT", "9100")
	t.Setenv("PUSHD_STORE", "redis")
	t.Setenv("PUSHD_RESTRICTED_SCHEMES", "socket,ws")
	t.Setenv("PUSHD_BREAKER_TIMEOUT", "1m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9100", cfg.Server.Addr())
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, []string{"socket", "ws"}, cfg.Transport.RestrictedSchemes)
	assert.Equal(t, time.Minute, cfg.Launcher.BreakerTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("PUSHD_STORE", "etcd")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_CrossField(t *testing.T) {
	cfg := Default()
	cfg.Launcher.Mode = "exec"
	assert.Error(t, cfg.Validate())

	cfg.Launcher.Command = "/usr/bin/true"
	assert.NoError(t, cfg.Validate())

	cfg.Manifest.Watch = true
	assert.Error(t, cfg.Validate())
}

func TestLoadOrDefault_FallsBack(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	assert.Equal(t, Default(), LoadOrDefault())
}

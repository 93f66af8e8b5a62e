package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Path)
	assert.Equal(t, "memory", cfg.Remote.Backend)
	assert.Equal(t, 10, cfg.Places.BatchSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Places.BatchDelay)
	assert.Equal(t, 150*time.Millisecond, cfg.Places.Stagger)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.Debounce)
	assert.Equal(t, 5*time.Second, cfg.Sync.TombstoneGrace)
	assert.Equal(t, RoleAdmin, cfg.User.Role)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
user:
  name: amy
  role: member
team:
  - name: bob
    role: admin
remote:
  backend: charm
places:
  batchSize: 5
  batchDelay: 250ms
sync:
  tombstoneGrace: 2s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "amy", cfg.User.Name)
	assert.Equal(t, "charm", cfg.Remote.Backend)
	assert.Equal(t, 5, cfg.Places.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Places.BatchDelay)
	assert.Equal(t, 2*time.Second, cfg.Sync.TombstoneGrace)
	require.Len(t, cfg.Team, 1)
	assert.Equal(t, RoleAdmin, cfg.RoleOf("Bob"))
	assert.Equal(t, RoleMember, cfg.RoleOf("amy"))
	assert.Equal(t, RoleMember, cfg.RoleOf("stranger"))
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("LEADSYNC_LOG_LEVEL", "debug")
	t.Setenv("GOOGLE_PLACES_API_KEY", "abc123")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "abc123", cfg.Places.APIKey)
}

func TestValidateRejectsBadValues(t *testing.T) {
	_, err := Load(writeConfig(t, "cache:\n  backend: floppy\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "remote:\n  backend: firebase\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "firebase.url")

	_, err = Load(writeConfig(t, "team:\n  - name: eve\n    role: owner\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eve")
}

func TestWriteDefault(t *testing.T) {
	oldConfig := xdg.ConfigHome
	xdg.ConfigHome = t.TempDir()
	defer func() { xdg.ConfigHome = oldConfig }()

	require.NoError(t, WriteDefault(""))
	assert.FileExists(t, DefaultPath())
	assert.Error(t, WriteDefault(""), "second write must not overwrite")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPath(), cfg.Path)
}

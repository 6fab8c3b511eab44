package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesAndKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	content := []byte("node:\n  addr: \":7447\"\n  max_clients: 16\nlog:\n  level: debug\n")
	assert.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, ":7447", cfg.Node.Addr)
	assert.Equal(t, 16, cfg.Node.MaxClients)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, Default().Node.PollTimeoutMs, cfg.Node.PollTimeoutMs)
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

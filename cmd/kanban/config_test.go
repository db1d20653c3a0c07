package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, configFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(nil, env(nil), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_Precedence(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	path := writeConfig(t, root, `
addr: ":9000"
backend: local
table: FileTable
cacheTTL: 1m
delete:
  batchSize: 10
  maxAttempts: 3
`)

	cfg, err := LoadConfig(
		[]string{"-delete-max-attempts", "7", "-log-format", "json"},
		env(map[string]string{
			"KANBAN_TABLE":               "EnvTable",
			"KANBAN_BOARD_CHECK":         "true",
			"KANBAN_DELETE_MAX_ATTEMPTS": "4",
		}),
		nested,
	)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.ConfigPath, "found by walking up")
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, backendLocal, cfg.Backend)
	assert.Equal(t, "EnvTable", cfg.Table, "env beats file")
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.BoardCheck)
	assert.Equal(t, 10, cfg.Delete.BatchSize)
	assert.Equal(t, 7, cfg.Delete.MaxAttempts, "flag beats env and file")
	assert.Equal(t, 1, cfg.Delete.Concurrency)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "table: Discovered\n")
	other := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(other, []byte("table: Explicit\n"), 0o644))

	cfg, err := LoadConfig([]string{"-config", other}, env(nil), dir)
	require.NoError(t, err)
	assert.Equal(t, "Explicit", cfg.Table)

	cfg, err = LoadConfig(nil, env(map[string]string{"KANBAN_CONFIG": other}), dir)
	require.NoError(t, err)
	assert.Equal(t, "Explicit", cfg.Table)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		file string
	}{
		{name: "unknown backend", args: []string{"-backend", "sqlite"}},
		{name: "batch too large", args: []string{"-delete-batch-size", "26"}},
		{name: "zero attempts", env: map[string]string{"KANBAN_DELETE_MAX_ATTEMPTS": "0"}},
		{name: "bad int env", env: map[string]string{"KANBAN_PAGE_SIZE": "many"}},
		{name: "bad duration env", env: map[string]string{"KANBAN_CACHE_TTL": "soon"}},
		{name: "bad bool env", env: map[string]string{"KANBAN_BOARD_CHECK": "maybe"}},
		{name: "bad yaml", file: "delete: [\n"},
		{name: "bad log format", args: []string{"-log-format", "xml"}},
		{name: "unknown flag", args: []string{"-nope"}},
		{name: "stray argument", args: []string{"extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.file != "" {
				writeConfig(t, dir, tt.file)
			}
			_, err := LoadConfig(tt.args, env(tt.env), dir)
			assert.Error(t, err)
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Table = ""
	cfg.PageSize = 0
	cfg.Delete.Concurrency = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table is required")
	assert.Contains(t, err.Error(), "pageSize")
	assert.Contains(t, err.Error(), "delete.concurrency")
}

func TestNewLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	logger, err := newLogger(cfg)
	require.NoError(t, err)
	assert.True(t, logger.IsLevelEnabled(logrus.DebugLevel))

	cfg.LogLevel = "loud"
	_, err = newLogger(cfg)
	assert.Error(t, err)
}

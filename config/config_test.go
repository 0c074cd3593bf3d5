package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand(t *testing.T) *cobra.Command {
	t.Helper()
	cfgFile = ""
	t.Cleanup(func() { cfgFile = "" })

	cmd := &cobra.Command{Use: "test"}
	InitFlags(cmd)
	return cmd
}

func TestLoadConfigs_Defaults(t *testing.T) {
	cwd := t.TempDir()

	cfg, err := LoadConfigs(newTestCommand(t), cwd)

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig.Theme, cfg.Theme)
	assert.True(t, cfg.EnableCache)
	assert.Equal(t, filepath.Join(cwd, ".cache", "dependency_cache"), cfg.CacheDir)
	assert.Equal(t, 50, cfg.MaxChangedFiles)
	assert.Equal(t, []string{"."}, cfg.SourceRoots)
	assert.Equal(t, 25, cfg.ResumePointLimit)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadConfigs_ConfigFileInWorkingDirectory(t *testing.T) {
	cwd := t.TempDir()
	content := `
theme: monokai
enable_cache: false
max_changed_files: 10
source_roots:
  - src
  - lib
resume_point_limit: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(cwd, ConfigName+".yml"), []byte(content), 0o644))

	cfg, err := LoadConfigs(newTestCommand(t), cwd)

	require.NoError(t, err)
	assert.Equal(t, "monokai", cfg.Theme)
	assert.False(t, cfg.EnableCache)
	assert.Equal(t, 10, cfg.MaxChangedFiles)
	assert.Equal(t, []string{"src", "lib"}, cfg.SourceRoots)
	assert.Equal(t, 5, cfg.ResumePointLimit)
}

func TestLoadConfigs_FlagsOverrideFile(t *testing.T) {
	cwd := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cwd, ConfigName+".yml"), []byte("max_changed_files: 10\n"), 0o644))

	cmd := newTestCommand(t)
	require.NoError(t, cmd.PersistentFlags().Set("max_changed_files", "20"))
	require.NoError(t, cmd.PersistentFlags().Set("cache_dir", "/var/cache/impact"))

	cfg, err := LoadConfigs(cmd, cwd)

	require.NoError(t, err)
	assert.Equal(t, 20, cfg.MaxChangedFiles)
	assert.Equal(t, "/var/cache/impact", cfg.CacheDir)
}

func TestLoadConfigs_Environment(t *testing.T) {
	t.Setenv("IMPACT_ENABLE_CACHE", "false")
	t.Setenv("IMPACT_LOG_LEVEL", "debug")

	cfg, err := LoadConfigs(newTestCommand(t), t.TempDir())

	require.NoError(t, err)
	assert.False(t, cfg.EnableCache)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigs_ExplicitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"scan_workers": 3, "log_format": "json"}`), 0o644))

	cmd := newTestCommand(t)
	require.NoError(t, cmd.PersistentFlags().Set("config", path))

	cfg, err := LoadConfigs(cmd, t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, 3, cfg.ScanWorkers)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadConfigs_MissingExplicitConfigFile(t *testing.T) {
	cmd := newTestCommand(t)
	require.NoError(t, cmd.PersistentFlags().Set("config", filepath.Join(t.TempDir(), "missing.yml")))

	_, err := LoadConfigs(cmd, t.TempDir())

	assert.ErrorContains(t, err, "error reading config file")
}

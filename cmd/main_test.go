package main

import (
	"bytes"
	stdlog "log"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starnote/ai-gateway/internal/monitoring"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"ai-gateway"}, args...))
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := runApp(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "ai-gateway dev\n", out)
}

func TestCheckCommand_Valid(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-proj-123456789abcdef")
	path := writeConfig(t, "auth:\n  mode: none\nquota:\n  timezone: UTC\n")

	out, err := runApp(t, "check", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "config is valid")
	assert.Contains(t, out, "sk-proj-...cdef")
	assert.NotContains(t, out, "sk-proj-123456789abcdef")
	assert.Contains(t, out, "timezone=UTC")
}

func TestCheckCommand_Invalid(t *testing.T) {
	path := writeConfig(t, "auth:\n  mode: bogus\n")

	out, err := runApp(t, "check", "-c", path)
	require.Error(t, err)
	assert.Contains(t, out, "[ERROR]")
	assert.Contains(t, err.Error(), "bogus")
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.NotZero(t, cfg.Server.Port)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "missing.yaml")
}

func TestSetupLogging(t *testing.T) {
	prevLevel := zerolog.GlobalLevel()
	prevLogger := log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(prevLevel)
		log.Logger = prevLogger
		stdlog.SetOutput(os.Stderr)
	})

	path := filepath.Join(t.TempDir(), "gateway.log")

	closeLog, err := setupLogging(monitoring.LoggerConfig{Level: "warn", Format: "json", Output: path}, false)
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	log.Info().Msg("dropped")
	log.Warn().Str("user", "u1").Msg("kept")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"user":"u1"`)

	closeLog, err = setupLogging(monitoring.LoggerConfig{Level: "nonsense", Output: "stderr"}, false)
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	closeLog()

	closeLog, err = setupLogging(monitoring.LoggerConfig{Level: "error", Output: "stdout"}, true)
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	closeLog()
}

func TestSetupLogging_BadFile(t *testing.T) {
	_, err := setupLogging(monitoring.LoggerConfig{Output: filepath.Join(t.TempDir(), "no", "such", "dir.log")}, false)
	assert.Error(t, err)
}

func TestUseConsoleFormat(t *testing.T) {
	assert.True(t, useConsoleFormat("console", os.Stderr))
	assert.False(t, useConsoleFormat("json", os.Stderr))

	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, useConsoleFormat("auto", f))
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GW_ENV_LOCAL=local\nGW_ENV_SHARED=local\n"), 0600))
	userDir := filepath.Join(dir, ".config", "ai-gateway")
	require.NoError(t, os.MkdirAll(userDir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, ".env"), []byte("GW_ENV_SHARED=user\nGW_ENV_USER=user\n"), 0600))

	t.Setenv("GW_ENV_LOCAL", "")
	t.Setenv("GW_ENV_SHARED", "")
	t.Setenv("GW_ENV_USER", "")
	for _, k := range []string{"GW_ENV_LOCAL", "GW_ENV_SHARED", "GW_ENV_USER"} {
		require.NoError(t, os.Unsetenv(k))
	}

	loadEnvFiles()

	assert.Equal(t, "local", os.Getenv("GW_ENV_LOCAL"))
	assert.Equal(t, "local", os.Getenv("GW_ENV_SHARED"))
	assert.Equal(t, "user", os.Getenv("GW_ENV_USER"))
}

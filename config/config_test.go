package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
device:
  address: 192.168.4.1
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "192.168.4.1", cfg.Device.Address)
	require.False(t, cfg.Device.DemoMode)
	require.Equal(t, "5s", cfg.Device.PollInterval)
	require.Equal(t, ":8080", cfg.Web.Addr)
	require.Equal(t, "remote", cfg.Voice.Recognizer)
	require.Equal(t, 16000, cfg.Voice.SampleRate)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "text", cfg.Log.Format)
}

func TestLoadWithoutAddressFallsBackToDemo(t *testing.T) {
	path := writeConfig(t, `
web:
  addr: ":9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.True(t, cfg.Device.DemoMode)
	require.Equal(t, ":9090", cfg.Web.Addr)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("SMARTHUB_DEVICE", "10.0.0.42")

	path := writeConfig(t, `
device:
  address: ${SMARTHUB_DEVICE}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.42", cfg.Device.Address)
}

func TestPollIntervalDuration(t *testing.T) {
	cfg := &Config{Device: DeviceConfig{PollInterval: "2s"}}
	require.Equal(t, 2*time.Second, cfg.PollIntervalDuration(5*time.Second))

	cfg.Device.PollInterval = "garbage"
	require.Equal(t, 5*time.Second, cfg.PollIntervalDuration(5*time.Second))

	cfg.Device.PollInterval = "-1s"
	require.Equal(t, 5*time.Second, cfg.PollIntervalDuration(5*time.Second))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

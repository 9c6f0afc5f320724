package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testConfig = `
bdecode:
  log_level: debug
  log_format: json
  metrics_addr: 0.0.0.0:6880
  http:
    addr: 0.0.0.0:6881
    read_timeout: 5s
    write_timeout: 5s
    max_body_size: 1048576
  storage:
    name: redis
    config:
      redis_broker: redis://pwd@127.0.0.1:6379/0
      redis_read_timeout: 15s
`

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "bdecode.yaml")
	require.Nil(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestParseConfigFile(t *testing.T) {
	path := writeConfig(t, testConfig)

	cfgFile, err := ParseConfigFile(path)
	require.Nil(t, err)

	cfg := cfgFile.Bdecode
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, "0.0.0.0:6880", cfg.MetricsAddr)
	require.Equal(t, "0.0.0.0:6881", cfg.HTTPConfig.Addr)
	require.Equal(t, 5*time.Second, cfg.HTTPConfig.ReadTimeout)
	require.Equal(t, int64(1048576), cfg.HTTPConfig.MaxBodySize)
	require.Equal(t, "redis", cfg.Storage.Name)
	require.NotNil(t, cfg.Storage.Config)
}

func TestParseConfigFileExpandsEnv(t *testing.T) {
	path := writeConfig(t, "bdecode:\n  http:\n    addr: 127.0.0.1:0\n")
	t.Setenv("BDECODE_TEST_CONFIG_DIR", filepath.Dir(path))

	cfgFile, err := ParseConfigFile("$BDECODE_TEST_CONFIG_DIR/bdecode.yaml")
	require.Nil(t, err)
	require.Equal(t, "127.0.0.1:0", cfgFile.Bdecode.HTTPConfig.Addr)
	require.Equal(t, "memory", cfgFile.Bdecode.Storage.Name)
}

func TestParseConfigFileErrors(t *testing.T) {
	_, err := ParseConfigFile("")
	require.NotNil(t, err)

	_, err = ParseConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NotNil(t, err)

	_, err = ParseConfigFile(writeConfig(t, "bdecode: [\n"))
	require.NotNil(t, err)
}

func TestApplyLoggingRejectsUnknownValues(t *testing.T) {
	require.NotNil(t, Config{LogLevel: "loud"}.ApplyLogging())
	require.NotNil(t, Config{LogFormat: "xml"}.ApplyLogging())
}

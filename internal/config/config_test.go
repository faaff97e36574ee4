package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"testbin"}, args...)
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "data", c.DataDir)
	assert.Equal(t, filepath.Join("data", "base.html"), c.TemplatePath)
	assert.Equal(t, "127.0.0.1", c.ListenHost)
	assert.Equal(t, 8200, c.BasePort)
	assert.Equal(t, 100, c.PortAttempts)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "json", c.LogFormat)
	assert.Equal(t, 5*time.Second, c.ShutdownTimeout)
	assert.Equal(t, "snapshots", c.S3Prefix)
	assert.False(t, c.BackupEnabled())
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expected    func(c *Config)
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"-d", "/var/wiki", "-t", "/var/wiki/base.html", "-h", "0.0.0.0", "-p", "9100",
				"-l", "debug", "-f", "text", "-w", "a, b,,c", "-watch", "-b", "bucket", "-g", "eu-west-1", "-e", "http://minio:9000"},
			expected: func(c *Config) {
				c.DataDir = "/var/wiki"
				c.TemplatePath = "/var/wiki/base.html"
				c.ListenHost = "0.0.0.0"
				c.BasePort = 9100
				c.LogLevel = "debug"
				c.LogFormat = "text"
				c.OpenDocuments = []string{"a", "b", "c"}
				c.WatchSnapshots = true
				c.S3Bucket = "bucket"
				c.S3Region = "eu-west-1"
				c.S3BaseEndpoint = "http://minio:9000"
			},
		},
		{
			name:     "unknown flags are ignored",
			args:     []string{"-x", "1", "-c", "cfg.json", "-p", "0"},
			expected: func(c *Config) { c.BasePort = 0 },
		},
		{name: "bad port", args: []string{"-p", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)
			withArgs(t, tt.args...)

			cfg := defaults()
			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(cfg) })
				return
			}

			require.NotPanics(t, func() { parseFlags(cfg) })
			want := defaults()
			tt.expected(want)
			assert.Empty(t, cmp.Diff(want, cfg))
		})
	}
}

func TestParseFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"data_dir": "/srv/wiki",
		"base_port": 0,
		"shutdown_timeout": "2s",
		"open_documents": ["x"],
		"s3_bucket": "b",
		"s3_access_key": "ak"
	}`), 0o600))
	withArgs(t, "-config", path)

	cfg := defaults()
	parseFile(cfg)

	want := defaults()
	want.DataDir = "/srv/wiki"
	want.BasePort = 0
	want.ShutdownTimeout = 2 * time.Second
	want.OpenDocuments = []string{"x"}
	want.S3Bucket = "b"
	want.S3AccessKey = "ak"
	assert.Empty(t, cmp.Diff(want, cfg))
	assert.True(t, cfg.BackupEnabled())
}

func TestParseFile_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir = "/srv/wiki"
listen_host = "localhost"
port_attempts = 5
watch_snapshots = true
shutdown_timeout = "750ms"
open_documents = ["a", "b"]
`), 0o600))
	withArgs(t, "-c", path)

	cfg := defaults()
	parseFile(cfg)

	assert.Equal(t, "/srv/wiki", cfg.DataDir)
	assert.Equal(t, "localhost", cfg.ListenHost)
	assert.Equal(t, 5, cfg.PortAttempts)
	assert.True(t, cfg.WatchSnapshots)
	assert.Equal(t, 750*time.Millisecond, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"a", "b"}, cfg.OpenDocuments)
	assert.Equal(t, 8200, cfg.BasePort, "absent keys keep defaults")
}

func TestParseFile_Errors(t *testing.T) {
	dir := t.TempDir()

	badJSON := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badJSON, []byte(`{ not json`), 0o600))
	badTOML := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(badTOML, []byte(`data_dir = `), 0o600))
	badDuration := filepath.Join(dir, "dur.json")
	require.NoError(t, os.WriteFile(badDuration, []byte(`{"shutdown_timeout": "soon"}`), 0o600))

	for _, path := range []string{badJSON, badTOML, badDuration, filepath.Join(dir, "missing.json")} {
		withArgs(t, "-c", path)
		require.Panics(t, func() { parseFile(defaults()) }, path)
	}
}

func TestParseFile_NoFlag(t *testing.T) {
	withArgs(t)

	cfg := defaults()
	parseFile(cfg)
	assert.Empty(t, cmp.Diff(defaults(), cfg))
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data_dir": "/from/file", "log_level": "warn"}`), 0o600))
	withArgs(t, "-c", path, "-d", "/from/flag")

	cfg := LoadConfig()
	assert.Equal(t, "/from/flag", cfg.DataDir)
	assert.Equal(t, "warn", cfg.LogLevel)
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml"

	"github.com/ykanchan/pywebview-tw/internal/flagx"
	"github.com/ykanchan/pywebview-tw/internal/timex"
)

// FileConfig is the DTO the config file is decoded into. TOML files are
// converted to the same JSON shape first, so both formats share the
// timex.Duration handling.
type FileConfig struct {
	DataDir         string         `json:"data_dir"`
	TemplatePath    string         `json:"template_path"`
	ListenHost      string         `json:"listen_host"`
	BasePort        int            `json:"base_port"`
	PortAttempts    int            `json:"port_attempts"`
	LogLevel        string         `json:"log_level"`
	LogFormat       string         `json:"log_format"`
	OpenDocuments   []string       `json:"open_documents"`
	WatchSnapshots  bool           `json:"watch_snapshots"`
	ShutdownTimeout timex.Duration `json:"shutdown_timeout"`
	S3Bucket        string         `json:"s3_bucket"`
	S3Region        string         `json:"s3_region"`
	S3BaseEndpoint  string         `json:"s3_base_endpoint"`
	S3AccessKey     string         `json:"s3_access_key"`
	S3SecretKey     string         `json:"s3_secret_key"`
	S3Prefix        string         `json:"s3_prefix"`
}

func toFile(c *Config) FileConfig {
	return FileConfig{
		DataDir:         c.DataDir,
		TemplatePath:    c.TemplatePath,
		ListenHost:      c.ListenHost,
		BasePort:        c.BasePort,
		PortAttempts:    c.PortAttempts,
		LogLevel:        c.LogLevel,
		LogFormat:       c.LogFormat,
		OpenDocuments:   c.OpenDocuments,
		WatchSnapshots:  c.WatchSnapshots,
		ShutdownTimeout: timex.Duration{Duration: c.ShutdownTimeout},
		S3Bucket:        c.S3Bucket,
		S3Region:        c.S3Region,
		S3BaseEndpoint:  c.S3BaseEndpoint,
		S3AccessKey:     c.S3AccessKey,
		S3SecretKey:     c.S3SecretKey,
		S3Prefix:        c.S3Prefix,
	}
}

func (fc FileConfig) apply(c *Config) {
	c.DataDir = fc.DataDir
	c.TemplatePath = fc.TemplatePath
	c.ListenHost = fc.ListenHost
	c.BasePort = fc.BasePort
	c.PortAttempts = fc.PortAttempts
	c.LogLevel = fc.LogLevel
	c.LogFormat = fc.LogFormat
	c.OpenDocuments = fc.OpenDocuments
	c.WatchSnapshots = fc.WatchSnapshots
	c.ShutdownTimeout = fc.ShutdownTimeout.Duration
	c.S3Bucket = fc.S3Bucket
	c.S3Region = fc.S3Region
	c.S3BaseEndpoint = fc.S3BaseEndpoint
	c.S3AccessKey = fc.S3AccessKey
	c.S3SecretKey = fc.S3SecretKey
	c.S3Prefix = fc.S3Prefix
}

// tomlToJSON re-encodes a TOML document as JSON.
func tomlToJSON(data []byte) ([]byte, error) {
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse toml: %w", err)
	}
	return json.Marshal(tree.ToMap())
}

// parseFile overlays cfg with the file named by -c/-config. Keys absent
// from the file keep their current values. Read and decode errors panic.
func parseFile(cfg *Config) {
	path := flagx.ConfigFile()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	if strings.HasSuffix(strings.ToLower(path), ".toml") {
		if data, err = tomlToJSON(data); err != nil {
			panic(err)
		}
	}

	fc := toFile(cfg)
	if err := json.Unmarshal(data, &fc); err != nil {
		panic(err)
	}
	fc.apply(cfg)
}

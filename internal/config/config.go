package config

import (
	"path/filepath"
	"time"
)

// Config holds runtime settings for the sync server.
type Config struct {
	DataDir         string
	TemplatePath    string
	ListenHost      string
	BasePort        int
	PortAttempts    int
	LogLevel        string
	LogFormat       string
	OpenDocuments   []string
	WatchSnapshots  bool
	ShutdownTimeout time.Duration
	S3Bucket        string
	S3Region        string
	S3BaseEndpoint  string
	S3AccessKey     string
	S3SecretKey     string
	S3Prefix        string
}

// LoadDefaults populates c with defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = "data"
	c.TemplatePath = filepath.Join("data", "base.html")
	c.ListenHost = "127.0.0.1"
	c.BasePort = 8200
	c.PortAttempts = 100
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.OpenDocuments = nil
	c.WatchSnapshots = false
	c.ShutdownTimeout = 5 * time.Second
	c.S3Region = "us-east-1"
	c.S3Prefix = "snapshots"
}

// BackupEnabled reports whether snapshots are mirrored to S3.
func (c *Config) BackupEnabled() bool {
	return c.S3Bucket != ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}

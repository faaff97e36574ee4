// Package config loads runtime configuration for the sync server.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected via -c or -config. Files ending in
//     .toml are read as TOML, anything else as JSON.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string   data directory
//	-t string   template copied into new documents
//	-h string   listen host
//	-p int      first port tried for document listeners (0 = ephemeral)
//	-l string   log level (debug, info, warn, error)
//	-f string   log format (json, text)
//	-w string   comma-separated ids of documents to open (default: all)
//	-watch      watch snapshot files for rewrites by other programs
//	-b string   S3 bucket for snapshot mirroring (empty = off)
//	-g string   S3 region
//	-e string   S3 base endpoint
//
// # File schema
//
// Keys missing from the file keep their defaults. Durations are strings
// like "5s" or integer nanoseconds:
//
//	{
//	  "data_dir": "data",
//	  "base_port": 8200,
//	  "shutdown_timeout": "5s",
//	  "s3_bucket": "wikis"
//	}
package config

package config

import (
	"flag"
	"os"
	"strings"

	"github.com/ykanchan/pywebview-tw/internal/flagx"
)

// parseFlags populates Config fields from command-line flags. Only the
// flags handled here are passed on to the flag set (see flagx.FilterArgs).
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-t", "-h", "-p", "-l", "-f", "-w", "-watch", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.TemplatePath, "t", cfg.TemplatePath, "template for new documents")
	fs.StringVar(&cfg.ListenHost, "h", cfg.ListenHost, "listen host")
	fs.IntVar(&cfg.BasePort, "p", cfg.BasePort, "first port for document listeners (0 = ephemeral)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format (json, text)")
	docs := fs.String("w", strings.Join(cfg.OpenDocuments, ","), "comma-separated document ids to open")
	fs.BoolVar(&cfg.WatchSnapshots, "watch", cfg.WatchSnapshots, "watch snapshot files for external rewrites")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket for snapshot mirroring")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OpenDocuments = splitList(*docs)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

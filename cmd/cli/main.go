package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ykanchan/pywebview-tw/internal/catalog"
	"github.com/ykanchan/pywebview-tw/internal/cli"
	"github.com/ykanchan/pywebview-tw/internal/config"
	"github.com/ykanchan/pywebview-tw/internal/flagx"
	"github.com/ykanchan/pywebview-tw/internal/logging"
)

// Flags that consume the following argument.
var valuedFlags = []string{"-c", "-config", "-d", "-t", "-h", "-p", "-l", "-f", "-w", "-b", "-g", "-e"}

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	cat, err := catalog.New(cfg.DataDir, cfg.TemplatePath, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	args := flagx.Positional(os.Args[1:], valuedFlags)
	if err := cli.NewApp(cat, os.Stdout).Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}

}

package main

import (
	"context"
	"log"
	"os"

	"github.com/ykanchan/pywebview-tw/internal/app"
	"github.com/ykanchan/pywebview-tw/internal/buildinfo"
	"github.com/ykanchan/pywebview-tw/internal/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(ctx, cfg, os.Stdout)

	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := a.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}

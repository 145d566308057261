package main

import (
	"context"
	"log"
	"os"

	"github.com/antong314/dayly/internal/buildinfo"
	"github.com/antong314/dayly/internal/client/cli"
	"github.com/antong314/dayly/internal/client/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)
}

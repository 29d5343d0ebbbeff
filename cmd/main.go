package main

import (
	"context"
	"flag"
	"log"

	"github.com/R-Kotenko/ImbalanceTracker/internal/app"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	flag.Parse()

	application, err := app.NewApp(*configPath)
	if err != nil {
		log.Fatalf("failed to create application: %v", err)
	}

	ctx := context.Background()
	if err := application.Init(ctx); err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

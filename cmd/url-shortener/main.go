package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/ClementLG/UrlShortener/internal/app"
	"github.com/ClementLG/UrlShortener/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}

	if err := app.Run(ctx, cfg); err != nil {
		panic(err)
	}
}

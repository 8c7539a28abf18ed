package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JoshPattman/cvwizard/app"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		fail(err)
	}
	logger := app.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.BuildApp(ctx, cfg, logger)
	if err != nil {
		fail(err)
	}
	if err := a.Run(ctx); err != nil {
		fail(err)
	}
}

func fail(args ...any) {
	fmt.Println(args...)
	os.Exit(1)
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"civicdesk/backend/internal/config"
	"civicdesk/backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	a := &app{
		cfg: cfg,
		open: func(ctx context.Context, migrate bool) (storage.Storage, error) {
			return storage.Open(ctx, cfg, migrate)
		},
	}
	if err := newRootCmd(a).Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/msg43/getreceipts-web/internal/cli"
	"github.com/msg43/getreceipts-web/internal/config"
	"github.com/msg43/getreceipts-web/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "getreceipts: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("getreceipts starting", "config", cfg.Redacted())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(cli.Deps{
		Config: cfg,
		Logger: log,
		Out:    os.Stdout,
		Err:    os.Stderr,
	})
	if err := root.ExecuteContext(ctx); err != nil {
		logger.ErrorObj("command failed", "error", err.Error())
		return err
	}
	return nil
}

// Command ticket-mcp serves the ticket tools over MCP stdio. Logs go to
// stderr so stdout carries only protocol frames.
package main

import (
	"context"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/helpline-oss/support-desk/internal/api/mcptools"
	"github.com/helpline-oss/support-desk/internal/bootstrap"
	"github.com/helpline-oss/support-desk/internal/config"
	"github.com/helpline-oss/support-desk/internal/observability"
)

func main() {
	flags := pflag.NewFlagSet("ticket-mcp", pflag.ExitOnError)
	overrides := config.BindFlags(flags)
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := overrides.Apply(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	desk, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start ticket store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer desk.Close()
	desk.Start(ctx)

	s := mcptools.NewServer(cfg.App.Name, cfg.App.Version, mcptools.NewTools(desk.Tickets, logger))
	if err := server.ServeStdio(s); err != nil {
		logger.Error("mcp server stopped", zap.Error(err))
	}
}

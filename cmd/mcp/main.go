// Package main serves the expert finder as an MCP tool over stdio.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/olusayo/zendesk-sme-finder/internal/bootstrap"
	"github.com/olusayo/zendesk-sme-finder/internal/config"
	"github.com/olusayo/zendesk-sme-finder/internal/tools"
	"github.com/olusayo/zendesk-sme-finder/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		logLevel   string
	)
	flags := pflag.NewFlagSet("sme-finder-mcp", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flags.StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// stdout carries the protocol.
	log, err := logger.New(cfg.LogLevel, "stderr")
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	app, err := bootstrap.Build(context.Background(), cfg, log)
	if err != nil {
		return fmt.Errorf("building expert finder: %w", err)
	}
	defer app.Close()

	log.Info("serving MCP over stdio", zap.String("version", tools.Version))
	return server.ServeStdio(tools.NewServer(app.Finder))
}

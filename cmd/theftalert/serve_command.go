package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"theftalert/internal/daemon"
	"theftalert/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon with HTTP and optional AMQP ingress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx)
		},
	}
}

func runServe(cmdCtx context.Context, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	a, err := buildApp(signalCtx, cfg, logger, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := daemon.New(cfg, daemon.Dependencies{
		Processor: a.engine,
		Health:    a.store.Ping,
		Metrics:   a.metrics.WithRuntimeCollectors().Handler(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if err := d.Start(signalCtx); err != nil {
		return err
	}
	defer d.Stop()

	<-signalCtx.Done()
	logger.Info("shutdown requested")
	return nil
}

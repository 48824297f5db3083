package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/p-blackswan/lifeos/internal/api"
	"github.com/p-blackswan/lifeos/internal/cleanup"
	"github.com/p-blackswan/lifeos/internal/health"
)

const (
	shutdownTimeout = 30 * time.Second
	housekeepEvery  = time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Run one chat turn and print the reply JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		reply, turnErr := a.assistant.Handle(cmd.Context(), strings.Join(args, " "))
		if err := printJSON(reply); err != nil {
			return err
		}
		return turnErr
	},
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Print the context snapshot the next turn would see",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.assistant.Snapshot(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(snap)
	},
}

func runServe(ctx context.Context) error {
	logger.Info().
		Str("environment", cfg.Environment).
		Str("addr", cfg.HTTPListenAddr).
		Str("db", cfg.DBPath).
		Str("llm_provider", cfg.LLMProvider).
		Bool("llm_enabled", cfg.LLMEnabled()).
		Msg("starting lifeos")

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	checker := health.NewChecker(logger)
	checker.Register("store", health.PingCheck(a.store))
	checker.Register("model", health.ConfiguredCheck(a.client.IsConfigured))

	srv, err := api.NewServer(api.ServerConfig{
		ListenAddr:  cfg.HTTPListenAddr,
		CORSOrigins: strings.Join(cfg.CORSOriginList(), ","),
		RateLimit: api.RateLimitConfig{
			RPS:     cfg.RateLimitRPS,
			Burst:   cfg.RateLimitBurst,
			Clients: cfg.RateLimitClients,
		},
	}, a.assistant, a.store, checker, a.metrics, logger)
	if err != nil {
		return err
	}

	cleaner := cleanup.NewCleaner(cleanup.Config{
		Retention:     cfg.ConversationRetention,
		CheckInterval: housekeepEvery,
	}, a.store, a.metrics, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		cleaner.Run(gctx)
		return nil
	})

	err = g.Wait()
	logger.Info().Msg("lifeos stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/ent0n29/frontdesk/internal/app"
	"github.com/ent0n29/frontdesk/internal/canned"
	"github.com/ent0n29/frontdesk/internal/config"
	"github.com/ent0n29/frontdesk/internal/dispatch"
	"github.com/ent0n29/frontdesk/internal/httpapi"
)

type rootFlags struct {
	addr     string
	answers  string
	logLevel string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:          "frontdesk",
		Short:        "Conversational front door with canned answers and an LLM fallback",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.addr, "addr", "", "listen address (overrides APP_BIND_ADDR)")
	root.PersistentFlags().StringVar(&flags.answers, "answers", "", "canned-answer file (overrides CANNED_ANSWERS_PATH)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "debug|info|warn|error (overrides LOG_LEVEL)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	})
	root.AddCommand(newAnswersCommand())
	root.AddCommand(newAskCommand(flags))
	return root
}

func loadConfig(flags *rootFlags) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	if flags.addr != "" {
		cfg.BindAddr = flags.addr
	}
	if flags.answers != "" {
		cfg.CannedAnswersPath = flags.answers
	}
	if flags.logLevel != "" {
		cfg.LogLevel = strings.ToLower(flags.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func runServe(cmd *cobra.Command, flags *rootFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	built, err := app.Build(ctx, cfg, logger, nil)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			logger.Warn("cleanup failed", zap.Error(err))
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           built.API.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	built.Sessions.StartJanitor(gctx, 5*time.Second)

	g.Go(func() error {
		logger.Info("server listening",
			zap.String("addr", cfg.BindAddr),
			zap.String("conversation_scope", cfg.ConversationScope),
			zap.Bool("gate_enabled", cfg.ProxySecret != ""),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", zap.Error(err))
			_ = httpServer.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func newAnswersCommand() *cobra.Command {
	answers := &cobra.Command{
		Use:   "answers",
		Short: "Inspect canned-answer files",
	}
	answers.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Load and validate a canned-answer file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := canned.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d triggers\n", args[0], idx.Len())
			for _, key := range idx.Keys() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", key)
			}
			return nil
		},
	})
	return answers
}

func newAskCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Answer one message through the full pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			cfg.DatabaseURL = ""
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			built, err := app.Build(cmd.Context(), cfg, logger, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer func() { _ = built.Cleanup() }()

			res, err := built.Dispatcher.Handle(cmd.Context(), dispatch.Request{
				Scope:   "cli",
				Message: strings.Join(args, " "),
			})
			reply := res.Reply
			var callErr *dispatch.ExternalCallError
			switch {
			case errors.Is(err, dispatch.ErrEmptyInput):
				reply = httpapi.EmptyInputReply
			case err != nil && !errors.As(err, &callErr):
				reply = built.Dispatcher.FailureReply()
			}
			out := cmd.OutOrStdout()
			if res.Source != "" {
				fmt.Fprintf(out, "[%s] ", res.Source)
			}
			fmt.Fprintln(out, reply)
			return nil
		},
	}
}

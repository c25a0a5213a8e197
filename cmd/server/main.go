// Package main runs the RoamFree planner as a local web server.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"roamfree/internal/config"
	"roamfree/internal/handlers"
	"roamfree/internal/server"
)

const appName = "roamfree-server"

type flags struct {
	configPath string
	addr       string
	logLevel   string
	noBrowser  bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Plan exploration walks around you",
		Long: `RoamFree serves a local planner that asks a language model for
walking routes near your location, summarizes them, suggests
alternatives for current conditions and keeps a wishlist.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&f.addr, "addr", "", "Listen address, overrides SERVER_ADDR")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&f.noBrowser, "no-browser", false, "Do not open a browser on start")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, handlers.Version)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration ok (store=%s, model=%s)\n", cfg.Store.Driver, cfg.LLM.Model)
			return nil
		},
	})

	return cmd
}

// loadConfig reads .env, the config file and the environment, then applies flags
func loadConfig(f flags) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.noBrowser {
		cfg.Server.OpenBrowser = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, logOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := cfg.Log.NewLogger(logOut)
	slog.SetDefault(logger)

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	actualAddr, err := srv.Start()
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	if cfg.Server.OpenBrowser {
		// Open browser after a short delay to ensure server is ready
		go func() {
			time.Sleep(500 * time.Millisecond)
			url := fmt.Sprintf("http://%s", actualAddr)
			if err := server.OpenBrowser(url); err != nil {
				logger.Warn("could not open browser", "url", url, "error", err)
			} else {
				logger.Info("opened browser", "url", url)
			}
		}()
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	sig := <-shutdown
	logger.Info("starting graceful shutdown", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("could not gracefully shutdown the server: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// Command ai-gateway runs the StarNote LLM gateway.
//
// Usage:
//
//	ai-gateway serve [--config FILE] [--port PORT] [--debug]
//	ai-gateway check [--config FILE]
//	ai-gateway version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/starnote/ai-gateway/internal/config"
	"github.com/starnote/ai-gateway/internal/gateway"
	"github.com/starnote/ai-gateway/internal/monitoring"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	configPath string
	portFlag   int
	debugFlag  bool
)

var configFlag = &cli.StringFlag{
	Name:        "config",
	Usage:       "Path to the gateway config file (YAML)",
	Aliases:     []string{"c"},
	EnvVars:     []string{"AI_GATEWAY_CONFIG"},
	Destination: &configPath,
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Start the gateway HTTP server",
	Flags: []cli.Flag{
		configFlag,
		&cli.IntFlag{
			Name:        "port",
			Usage:       "Listen port (overrides server.port)",
			Aliases:     []string{"p"},
			Destination: &portFlag,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "Enable debug logging",
			Aliases:     []string{"d"},
			Destination: &debugFlag,
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if portFlag > 0 {
			cfg.Server.Port = portFlag
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		closeLog, err := setupLogging(cfg.Logging, debugFlag)
		if err != nil {
			return err
		}
		defer closeLog()

		return runServer(c.Context, cfg)
	},
}

var checkCommand = &cli.Command{
	Name:  "check",
	Usage: "Validate the config and print the effective settings",
	Flags: []cli.Flag{configFlag},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			printError(c.App.Writer, err.Error())
			return err
		}
		printSummary(c.App.Writer, cfg)
		if err := cfg.Validate(); err != nil {
			printError(c.App.Writer, err.Error())
			return fmt.Errorf("invalid config: %w", err)
		}
		printSuccess(c.App.Writer, "config is valid")
		return nil
	},
}

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "Print the version",
	Action: func(c *cli.Context) error {
		_, _ = fmt.Fprintf(c.App.Writer, "ai-gateway %s\n", Version)
		return nil
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "ai-gateway",
		Usage:    "Authenticating, quota-enforcing streaming gateway for LLM providers",
		Version:  Version,
		Commands: []*cli.Command{serveCommand, checkCommand, versionCommand},
		Before: func(*cli.Context) error {
			loadEnvFiles()
			return nil
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads path, or builds the config from defaults and environment
// when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("error loading config '%s': %w", path, err)
	}
	return cfg, nil
}

// runServer starts the gateway and blocks until SIGINT/SIGTERM, then shuts
// down gracefully.
func runServer(parent context.Context, cfg *config.Config) error {
	tracker, err := monitoring.NewTracker(cfg.Monitoring.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	gw, err := gateway.New(cfg, gateway.Deps{Tracker: tracker})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- gw.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
	defer cancel()
	if err := gw.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

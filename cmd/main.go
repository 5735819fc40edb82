package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/coursechat/internal/shared"
	"github.com/urfave/cli/v3"
)

// envConfigPath overrides the default config file location.
const envConfigPath = "COURSECHAT_CONFIG"

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnvFile(); err != nil {
		logger.Warn("ignoring .env file", "error", err)
	}

	configPath := "config.toml"
	if v := os.Getenv(envConfigPath); v != "" {
		configPath = v
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}

	if err := config.ApplyEnv(); err != nil {
		logger.Fatalf("invalid environment: %v", err)
	}

	if lvl, err := shared.ParseLevel(config.Logging.Level); err == nil {
		shared.SetLogLevel(logger, lvl)
	} else {
		logger.Warn("unknown log level, using info", "level", config.Logging.Level)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "coursechat",
		Usage:    "Chat with an assistant that builds courses for you",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		stop()
		logger.Fatalf("application error: %v", err)
	}
}

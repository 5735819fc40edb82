package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/desertthunder/coursechat/internal/identity"
	"github.com/desertthunder/coursechat/internal/repositories"
	"github.com/desertthunder/coursechat/internal/server"
	"github.com/desertthunder/coursechat/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, prepares the data directory, runs migrations and resolves
// the installation identity.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		if loaded, err := shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
		} else {
			config = loaded
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
		}
	}

	if err := config.ApplyEnv(); err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}
	r.config = config

	if err := os.MkdirAll(config.DataDir(), 0755); err != nil {
		return fmt.Errorf("%w: failed to create data directory: %v", shared.ErrPersistenceFailed, err)
	}

	r.logger.Info("initializing database", "path", config.DatabasePath())
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	userID, err := identity.NewInstallation(repositories.NewInstallationRepository(db), r.logger).Load()
	if err != nil {
		return err
	}

	r.writePlain("✓ Setup complete\n")
	r.writePlain("Database:  %s\n", config.DatabasePath())
	r.writePlain("Courses:   %s\n", config.CoursesPath())
	r.writePlain("User ID:   %s\n", userID)
	r.writePlainln("Next steps:")
	r.writePlain("1. Point backend.base_url in %s at your assistant (or run 'coursechat devserver')\n", configPath)
	r.writePlain("2. Run 'coursechat chat' to start talking\n")
	return nil
}

// DevServer runs the local development backend until interrupted.
func (r *Runner) DevServer(ctx context.Context, cmd *cli.Command) error {
	host := r.config.DevServer.Host
	if v := cmd.String("host"); v != "" {
		host = v
	}
	port := r.config.DevServer.Port
	if v := int(cmd.Int("port")); v != 0 {
		port = v
	}
	delay := r.config.DevServer.Delay
	if cmd.IsSet("delay") {
		delay = cmd.Duration("delay")
	}

	if port <= 0 || port > 65535 {
		return fmt.Errorf("%w: port %d", shared.ErrInvalidArgument, port)
	}

	srv := server.New(server.Opts{
		Addr:   net.JoinHostPort(host, strconv.Itoa(port)),
		Delay:  delay,
		Logger: r.logger,
	})

	r.logger.Info("starting development backend", "host", host, "port", port, "delay", delay)
	return srv.ListenAndServe(ctx)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/coursechat/internal/identity"
	"github.com/desertthunder/coursechat/internal/repositories"
	"github.com/desertthunder/coursechat/internal/services"
	"github.com/desertthunder/coursechat/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIEndpoints lists the endpoints the backend exposes.
func (r *Runner) APIEndpoints(ctx context.Context, cmd *cli.Command) error {
	for _, e := range services.Endpoints {
		if err := r.writePlain("POST %s\n", e); err != nil {
			return err
		}
	}
	return nil
}

// APIPost makes a direct POST request to a backend endpoint.
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("endpoint")
	data := cmd.String("data")
	pretty := cmd.Bool("pretty")

	if name == "" {
		return fmt.Errorf("%w: endpoint is required", shared.ErrMissingArgument)
	}
	endpoint, ok := services.ParseEndpoint(name)
	if !ok {
		return fmt.Errorf("%w: unknown endpoint %q", shared.ErrInvalidArgument, name)
	}

	payload := map[string]any{}
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return fmt.Errorf("%w: data is not a JSON object: %v", shared.ErrInvalidInput, err)
	}

	if _, ok := payload[services.FieldUserID]; !ok {
		userID, err := r.userID()
		if err != nil {
			return err
		}
		payload[services.FieldUserID] = userID
	}

	r.logger.Info("POST request", "endpoint", endpoint)

	resp, err := r.backend().Send(ctx, endpoint, payload)
	if err != nil {
		return err
	}
	return r.writeJSON(resp, pretty)
}

// userID resolves the installation identity without starting a session.
func (r *Runner) userID() (string, error) {
	db, err := r.openDatabase()
	if err != nil {
		return "", err
	}
	defer db.Close()

	return identity.NewInstallation(repositories.NewInstallationRepository(db), r.logger).Load()
}

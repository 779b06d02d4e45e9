// Package grievance provides the log-grievance capability.
package grievance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/rhuss/servicedesk/pkg/capability"
	"github.com/rhuss/servicedesk/pkg/storage"
)

// Name is the capability name the oracle sees.
const Name = "log-grievance"

// New returns the capability appending to log.
func New(log storage.GrievanceLog) capability.Capability {
	return capability.New(capability.Declaration{
		Name:        Name,
		Description: "Log a complaint about a fellow colleague when prompted by the user",
		Parameters: capability.ObjectSchema(
			[]string{"complainant", "accused", "description"},
			map[string]*jsonschema.Schema{
				"complainant": capability.StringProperty("Name of the person raising the complaint"),
				"accused":     capability.StringProperty("Name of the person the complaint is about"),
				"description": capability.StringProperty("What happened"),
			},
		),
	}, func(ctx context.Context, args map[string]any) (string, error) {
		g, err := log.Append(ctx, storage.GrievanceDraft{
			Complainant: capability.StringArg(args, "complainant"),
			Accused:     capability.StringArg(args, "accused"),
			Description: capability.StringArg(args, "description"),
		})
		if err != nil {
			return "", fmt.Errorf("logging grievance: %w", err)
		}

		slog.Info("grievance logged", "id", g.ID)
		return fmt.Sprintf("Complaint logged successfully. Reference number: %d.", g.ID), nil
	})
}

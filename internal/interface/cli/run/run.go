package run

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tsubakihara/ringi/internal/domain/model"
	"github.com/tsubakihara/ringi/internal/interface/cli/common"
)

// NewCommand creates the run command
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <workflow-id>",
		Short: "Start a workflow and drive it until the next gate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.NewWorkflowIDFromString(args[0])
			if err != nil {
				return err
			}

			container, err := common.InitializeContainer()
			if err != nil {
				return fmt.Errorf("failed to initialize container: %w", err)
			}
			defer container.Close()

			ctx := context.Background()
			engine := container.Engine()

			if _, err := engine.Run(ctx, id, "auto"); err != nil {
				return err
			}

			snap, err := engine.Status(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("ID      : %s\n", snap.ID)
			fmt.Printf("Gate    : %s\n", snap.Gate)
			fmt.Printf("Phase   : %s\n", snap.Phase)
			fmt.Printf("Status  : %s\n", snap.Status)
			if snap.NextStep != "" {
				fmt.Printf("Next    : %s\n", snap.NextStep)
			}
			return nil
		},
	}
	return cmd
}

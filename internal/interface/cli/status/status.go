package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tsubakihara/ringi/internal/domain/model"
	"github.com/tsubakihara/ringi/internal/interface/cli/common"
)

// NewCommand creates the status command
func NewCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status <workflow-id>",
		Short: "Show current workflow status",
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

			snap, err := container.Engine().Status(context.Background(), id)
			if err != nil {
				return err
			}

			if jsonOutput {
				b, err := json.Marshal(snap)
				if err != nil {
					return fmt.Errorf("marshal json: %w", err)
				}
				fmt.Println(string(b))
				return nil
			}

			fmt.Printf("ID      : %s\n", snap.ID)
			fmt.Printf("Gate    : %s\n", snap.Gate)
			fmt.Printf("Phase   : %s\n", snap.Phase)
			fmt.Printf("Status  : %s\n", snap.Status)
			if snap.NextStep != "" {
				fmt.Printf("Next    : %s\n", snap.NextStep)
			}
			fmt.Printf("Steps   : %d/%d\n", snap.Passed, snap.TotalSteps)
			fmt.Printf("Updated : %s\n", snap.UpdatedAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status in JSON format")

	return cmd
}

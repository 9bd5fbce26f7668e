package abort

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tsubakihara/ringi/internal/domain/model"
	"github.com/tsubakihara/ringi/internal/interface/cli/common"
)

// NewCommand creates the abort command
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "abort <workflow-id> [reason...]",
		Short: "Halt a workflow without rolling back approved steps",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.NewWorkflowIDFromString(args[0])
			if err != nil {
				return err
			}
			reason := strings.Join(args[1:], " ")
			if reason == "" {
				reason = "operator cancelled"
			}

			container, err := common.InitializeContainer()
			if err != nil {
				return fmt.Errorf("failed to initialize container: %w", err)
			}
			defer container.Close()

			wf, err := container.Engine().Abort(context.Background(), id, reason)
			if err != nil {
				return err
			}

			fmt.Printf("ID      : %s\n", wf.ID())
			fmt.Printf("Status  : %s\n", wf.Status())
			return nil
		},
	}
	return cmd
}

package list

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tsubakihara/ringi/internal/interface/cli/common"
)

// NewCommand creates the list command
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all workflow instances, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := common.InitializeContainer()
			if err != nil {
				return fmt.Errorf("failed to initialize container: %w", err)
			}
			defer container.Close()

			workflows, err := container.WorkflowRepository().List(context.Background())
			if err != nil {
				return err
			}
			if len(workflows) == 0 {
				fmt.Println("No workflows found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tGATE\tPHASE\tSTATUS\tCREATED")
			for _, wf := range workflows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					wf.ID(), wf.Gate(), wf.Phase(), wf.Status(),
					wf.CreatedAt().Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

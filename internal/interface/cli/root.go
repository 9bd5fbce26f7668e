package cli

import (
	"github.com/spf13/cobra"

	"github.com/tsubakihara/ringi/internal/interface/cli/abort"
	"github.com/tsubakihara/ringi/internal/interface/cli/approve"
	initcmd "github.com/tsubakihara/ringi/internal/interface/cli/init"
	"github.com/tsubakihara/ringi/internal/interface/cli/list"
	"github.com/tsubakihara/ringi/internal/interface/cli/run"
	"github.com/tsubakihara/ringi/internal/interface/cli/status"
	"github.com/tsubakihara/ringi/internal/interface/cli/version"
)

// NewRoot creates the root ringi command
func NewRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ringi",
		Short:        "Ringi governed workflow engine",
		Long:         "Ringi drives approval pipelines of gates and phases backed by persisted evidence.",
		SilenceUsage: true,
		RunE:         func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.AddCommand(initcmd.NewCommand())
	cmd.AddCommand(run.NewCommand())
	cmd.AddCommand(status.NewCommand())
	cmd.AddCommand(list.NewCommand())
	cmd.AddCommand(approve.NewCommand())
	cmd.AddCommand(abort.NewCommand())
	cmd.AddCommand(version.NewCommand())
	return cmd
}

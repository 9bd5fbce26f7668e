package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tsubakihara/ringi/internal/buildinfo"
)

// NewCommand creates the version command
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("ringi %s (%s/%s)\n", buildinfo.GetVersion(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}

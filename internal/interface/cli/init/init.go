package initcmd

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tsubakihara/ringi/internal/domain/profile"
	"github.com/tsubakihara/ringi/internal/domain/sequence"
	"github.com/tsubakihara/ringi/internal/infrastructure/config"
	"github.com/tsubakihara/ringi/internal/interface/cli/common"
)

// NewCommand creates the init command
func NewCommand() *cobra.Command {
	var profilePath string
	var sequencePath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new governed workflow instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := afero.NewOsFs()

			raw := profile.Raw{}
			if profilePath != "" {
				loaded, err := config.LoadProfile(fs, profilePath)
				if err != nil {
					return err
				}
				raw = loaded
			}

			table := sequence.Default()
			if sequencePath != "" {
				loaded, err := config.LoadSequence(fs, sequencePath)
				if err != nil {
					return err
				}
				table = loaded
			}

			container, err := common.InitializeContainer()
			if err != nil {
				return fmt.Errorf("failed to initialize container: %w", err)
			}
			defer container.Close()

			wf, err := container.Engine().Init(context.Background(), raw, table)
			if err != nil {
				return err
			}

			fmt.Printf("ID      : %s\n", wf.ID())
			fmt.Printf("Gate    : %s\n", wf.Gate())
			fmt.Printf("Phase   : %s\n", wf.Phase())
			fmt.Printf("Status  : %s\n", wf.Status())
			return nil
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "", "Path to enforcement profile YAML (defaults apply if omitted)")
	cmd.Flags().StringVar(&sequencePath, "sequence", "", "Path to sequence table YAML (default interleave if omitted)")

	return cmd
}

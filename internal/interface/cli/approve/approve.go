package approve

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"github.com/tsubakihara/ringi/internal/domain/model"
	workflowmodel "github.com/tsubakihara/ringi/internal/domain/model/workflow"
	"github.com/tsubakihara/ringi/internal/interface/cli/common"
)

// NewCommand creates the approve command
func NewCommand() *cobra.Command {
	var approvedBy string
	var evidenceRefs []string
	var metricArgs []string

	cmd := &cobra.Command{
		Use:   "approve <workflow-id> <step>",
		Short: "Submit evidence and request approval for the next step",
		Long: `Submit evidence for the next expected gate or phase and request its
approval. Gate evidence is evaluated against the instance's enforcement
profile; any violated threshold records the step REJECTED.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.NewWorkflowIDFromString(args[0])
			if err != nil {
				return err
			}
			step, err := model.ParseStepRef(args[1])
			if err != nil {
				return err
			}

			measurements, err := parseMetrics(metricArgs)
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

			evidence := workflowmodel.Evidence{
				Refs:         evidenceRefs,
				Measurements: measurements,
			}
			// Operator identity may arrive in any Unicode composition form
			approver := norm.NFC.String(strings.TrimSpace(approvedBy))

			rec, err := engine.RequestApproval(ctx, id, step, evidence, approver)
			if err != nil {
				return err
			}

			if rec.Outcome == model.OutcomeRejected {
				fmt.Printf("Step    : %s\n", rec.Step)
				fmt.Printf("Outcome : %s\n", rec.Outcome)
				for _, v := range rec.Violations {
					fmt.Printf("  violation: %s\n", v)
				}
				return fmt.Errorf("step %s rejected: %s", rec.Step, strings.Join(rec.Violations, "; "))
			}

			wf, err := engine.Advance(ctx, id)
			if err != nil {
				return err
			}

			fmt.Printf("Step    : %s\n", rec.Step)
			fmt.Printf("Outcome : %s\n", rec.Outcome)
			fmt.Printf("Gate    : %s\n", wf.Gate())
			fmt.Printf("Phase   : %s\n", wf.Phase())
			fmt.Printf("Status  : %s\n", wf.Status())
			return nil
		},
	}

	cmd.Flags().StringVar(&approvedBy, "by", "operator", "Identity of the approving operator")
	cmd.Flags().StringArrayVar(&evidenceRefs, "evidence", nil, "Opaque evidence reference (repeatable)")
	cmd.Flags().StringArrayVar(&metricArgs, "metric", nil, "Measured metric as name=value (repeatable)")

	return cmd
}

// parseMetrics converts name=value pairs into a measurement map
func parseMetrics(args []string) (map[string]float64, error) {
	if len(args) == 0 {
		return nil, nil
	}
	measurements := make(map[string]float64, len(args))
	for _, arg := range args {
		name, rawValue, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid metric %q (expected name=value)", arg)
		}
		value, err := strconv.ParseFloat(rawValue, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid metric value in %q: %w", arg, err)
		}
		measurements[name] = value
	}
	return measurements, nil
}

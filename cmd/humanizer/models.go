package main

import (
	"errors"
	"fmt"

	"github.com/nao1215/humanizer/internal/model"
	"github.com/nao1215/humanizer/internal/registry"
	"github.com/nao1215/humanizer/internal/report"
	"github.com/nao1215/humanizer/internal/service"
	"github.com/spf13/cobra"
)

// NewModelsCmd creates the models command.
func NewModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the available detectors and generators",
		Long: `Models lists the model catalog with the performance, speed and accuracy
ranks of every model (1 is best).

Examples:
  # Every model
  humanizer models

  # The three fastest detectors
  humanizer models --role detector --top 3 --by speed

  # The generator recommended for a goal
  humanizer models --goal creative`,
		Args: cobra.NoArgs,
		RunE: runModelsCmd,
	}

	cmd.Flags().String("role", "", "Only list models of this role: detector or generator")
	cmd.Flags().Int("top", 0, "Only list the N best models of --role")
	cmd.Flags().String("by", string(registry.ByPerformance), "Ranking used by --top: performance, speed or accuracy")
	cmd.Flags().String("goal", "", "Show the generator recommended for a goal: quality, speed, balanced, creative or accuracy")
	addReportFlags(cmd)

	cmd.AddCommand(newModelsLoadCmd())
	return cmd
}

func newModelsLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load ID",
		Short: "Make a generator resident on the backend",
		Long: `Load asks the backend to load a generator ahead of its first use, evicting
the generator that was resident before.`,
		Args: cobra.ExactArgs(1),
		RunE: runModelsLoadCmd,
	}
}

// runModelsCmd executes the models command.
func runModelsCmd(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	role := stringFlag(cmd, "role")
	top, err := cmd.Flags().GetInt("top")
	if err != nil {
		return err
	}

	var listing *service.ModelListing
	switch goal := stringFlag(cmd, "goal"); {
	case goal != "":
		desc, err := a.svc.Recommend(goal)
		if err != nil {
			return err
		}
		listing = &service.ModelListing{Models: []model.ModelDescriptor{desc}}
	case top > 0:
		if role == "" {
			return errors.New("--top requires --role")
		}
		if listing, err = a.svc.TopModels(ctx, role, top, stringFlag(cmd, "by")); err != nil {
			return err
		}
	default:
		if listing, err = a.svc.ListModels(ctx, role); err != nil {
			return err
		}
	}

	return a.outputReport(cmd, func(w report.Writer) (int, error) {
		return w.WriteModels(listing)
	})
}

// runModelsLoadCmd executes the models load command.
func runModelsLoadCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	current, err := a.svc.LoadModel(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Loaded model: %s\n", current)
	return nil
}

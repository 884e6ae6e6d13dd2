package main

import (
	"context"
	"errors"

	"github.com/nao1215/humanizer/internal/pipeline"
	"github.com/nao1215/humanizer/internal/registry"
	"github.com/nao1215/humanizer/internal/report"
	"github.com/nao1215/humanizer/internal/service"
	"github.com/spf13/cobra"
)

// NewHumanizeCmd creates the humanize command.
func NewHumanizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "humanize [text]",
		Short: "Rewrite text so it reads less like AI output",
		Long: `Humanize paraphrases the text with a transformer model and then applies the
built-in rewriter. A failing stage is reported and skipped; its input is
passed on unchanged.

With --verify, the text is scored before and after rewriting with the same
detectors and threshold, and the drop in AI probability is reported.

Examples:
  # Paraphrase with the resident or recommended model, then rewrite
  humanizer humanize -f draft.txt

  # Rule based rewriting only, no backend needed
  humanizer humanize --no-paraphrase --enhanced "It is important to note that..."

  # Paraphrase with a chosen model and verify the improvement
  humanizer humanize -f draft.txt --model tuner007/pegasus_paraphrase --verify`,
		RunE: runHumanizeCmd,
	}

	cmd.Flags().String("model", "", "Paraphrasing model (default: resident or recommended)")
	cmd.Flags().Bool("no-paraphrase", false, "Skip the paraphrasing stage")
	cmd.Flags().BoolP("enhanced", "e", false, "Use the enhanced rewriter")
	cmd.Flags().Bool("verify", false, "Score the text before and after rewriting")
	cmd.Flags().String("policy", pipeline.PolicyKeepLast.String(),
		"Resident model after --verify: keep-last or restore")
	addInputFlag(cmd)
	addDetectionFlags(cmd)
	addReportFlags(cmd)
	return cmd
}

// NewPipelineCmd creates the pipeline command.
func NewPipelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline [--model ID]... [text]",
		Short: "Pass text through a chain of generator models",
		Long: `Pipeline feeds the text through the given generators in order. Without
--model, every transformer generator runs in catalog order. A step that
fails is recorded and its input is passed to the next step. A model that
cannot be loaded aborts the run.

The resident model is swapped as needed. With --policy restore, the model
that was resident before the run is loaded again afterwards.

Examples:
  humanizer pipeline -f draft.txt --model Vamsi/T5_Paraphrase_Paws --model local-rewriter-enhanced
  humanizer pipeline --model t5-base --model facebook/bart-base --policy restore --json "Some text"`,
		RunE: runPipelineCmd,
	}

	cmd.Flags().StringArray("model", nil, "Generator model id; repeat for each step")
	cmd.Flags().String("policy", pipeline.PolicyKeepLast.String(),
		"Resident model after the run: keep-last or restore")
	addInputFlag(cmd)
	addReportFlags(cmd)
	return cmd
}

// runHumanizeCmd executes the humanize command.
func runHumanizeCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	src, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	if boolFlag(cmd, "verify") {
		return runVerify(ctx, cmd, a, src.Text)
	}

	h, err := a.svc.Humanize(ctx, service.HumanizeRequest{
		Text:       src.Text,
		Paraphrase: !boolFlag(cmd, "no-paraphrase"),
		Enhanced:   boolFlag(cmd, "enhanced"),
		ModelID:    stringFlag(cmd, "model"),
	})
	if err != nil {
		return err
	}
	return a.outputReport(cmd, func(w report.Writer) (int, error) {
		return w.WriteHumanization(h)
	})
}

func runVerify(ctx context.Context, cmd *cobra.Command, a *app, text string) error {
	policy, err := pipeline.ParsePolicy(stringFlag(cmd, "policy"))
	if err != nil {
		return err
	}
	sel, err := detectorSelection(cmd)
	if err != nil {
		return err
	}
	ids, err := verifyModels(cmd, a.svc)
	if err != nil {
		return err
	}

	v, err := a.svc.HumanizeAndVerify(ctx, service.VerifyRequest{
		Text:      text,
		ModelIDs:  ids,
		Policy:    policy,
		Selection: sel,
	})
	if err != nil {
		return err
	}
	return a.outputReport(cmd, func(w report.Writer) (int, error) {
		return w.WriteVerification(v)
	})
}

// verifyModels turns the humanize flags into pipeline steps. Nil leaves
// the choice to the service.
func verifyModels(cmd *cobra.Command, svc *service.Service) ([]string, error) {
	modelID := stringFlag(cmd, "model")
	noParaphrase := boolFlag(cmd, "no-paraphrase")
	if modelID == "" && !noParaphrase && !cmd.Flags().Changed("enhanced") {
		return nil, nil
	}

	ids := make([]string, 0, 2)
	if !noParaphrase {
		if modelID == "" {
			rec, err := svc.Recommend(string(registry.DefaultGoal))
			if err != nil {
				return nil, err
			}
			modelID = rec.ID
		}
		ids = append(ids, modelID)
	}
	if boolFlag(cmd, "enhanced") {
		ids = append(ids, registry.LocalRewriterEnhancedID)
	} else {
		ids = append(ids, registry.LocalRewriterID)
	}
	return ids, nil
}

// runPipelineCmd executes the pipeline command.
func runPipelineCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	ids, err := cmd.Flags().GetStringArray("model")
	if err != nil {
		return err
	}
	policy, err := pipeline.ParsePolicy(stringFlag(cmd, "policy"))
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()

	src, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	run, runErr := a.svc.RunPipeline(ctx, src.Text, ids, policy)
	if run == nil {
		return runErr
	}
	// An aborted run still reports the steps that completed.
	err = a.outputReport(cmd, func(w report.Writer) (int, error) {
		return w.WriteRun(run)
	})
	return errors.Join(runErr, err)
}

package main

import (
	"fmt"

	"github.com/nao1215/humanizer/internal/config"
	"github.com/nao1215/humanizer/internal/highlight"
	"github.com/nao1215/humanizer/internal/registry"
	"github.com/nao1215/humanizer/internal/report"
	"github.com/nao1215/humanizer/internal/service"
	"github.com/nao1215/humanizer/internal/textsource"
	"github.com/spf13/cobra"
)

// NewDetectCmd creates the detect command.
func NewDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect [text]",
		Short: "Estimate the probability that text is AI generated",
		Long: `Detect scores text with an ensemble of AI text detectors and reports the
weighted AI probability together with every detector's score.

The text is taken from the arguments, from --file, or from stdin. HTML files
are reduced to their visible text.

Examples:
  # Score text with the configured detectors
  humanizer detect "It is important to delve into the details."

  # Score a file with two chosen detectors
  humanizer detect -f essay.txt --detectors chatgpt-detector,local-stylometric

  # Score every sentence and report as Markdown
  humanizer detect -f essay.txt --segments --markdown -o report.md

  # Use the three fastest detectors
  humanizer detect -f essay.txt --top 3 --by speed`,
		RunE: runDetectCmd,
	}

	cmd.Flags().BoolP("segments", "s", false, "Score each segment of the text separately")
	addInputFlag(cmd)
	addDetectionFlags(cmd)
	addReportFlags(cmd)
	return cmd
}

// NewHighlightCmd creates the highlight command.
func NewHighlightCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "highlight [text]",
		Short: "Mark the segments of text that read as AI generated",
		Long: `Highlight scores every segment of the text and prints the text with the
segments at or above the threshold marked.

Formats:
  markdown  **segment** (default)
  html      <mark>segment</mark>
  plain     [segment]

Examples:
  humanizer highlight -f essay.txt
  humanizer highlight -f essay.txt --format html --granularity line`,
		RunE: runHighlightCmd,
	}

	cmd.Flags().String("format", string(highlight.FormatMarkdown), "Marker format: markdown, html or plain")
	addInputFlag(cmd)
	addDetectionFlags(cmd)
	addReportFlags(cmd)
	return cmd
}

func addInputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", `Read the text from a file ("-" for stdin)`)
}

func addDetectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("detectors", nil, "Detector ids to score with (default: configured detectors)")
	cmd.Flags().Int("top", 0, "Score with the N best detectors instead of a list")
	cmd.Flags().String("by", string(registry.ByPerformance), "Ranking used by --top: performance, speed or accuracy")
	cmd.Flags().Float64P("threshold", "t", config.DefaultThreshold, "AI probability at or above which text is flagged")
	cmd.Flags().StringP("granularity", "g", config.DefaultGranularity, "Segmentation: sentence, line or chunk")
	cmd.Flags().Int("min-length", config.DefaultMinSegmentLength, "Merge segments shorter than this many characters")
	cmd.Flags().Int("chunk-size", config.DefaultChunkSize, "Window size in characters for chunk segmentation")
}

// readInput resolves the text of a command from its arguments, --file or
// stdin.
func readInput(cmd *cobra.Command, args []string) (*textsource.Source, error) {
	src, err := textsource.Read(args, stringFlag(cmd, "file"), cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return src, nil
}

// detectorSelection returns the detectors chosen on the command line, or
// nil to use the configured ones.
func detectorSelection(cmd *cobra.Command) (*registry.Selection, error) {
	ids, err := cmd.Flags().GetStringSlice("detectors")
	if err != nil {
		return nil, err
	}
	top, err := cmd.Flags().GetInt("top")
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 && top == 0 {
		return nil, nil
	}
	sel, err := registry.ParseSelection(ids, top, stringFlag(cmd, "by"))
	if err != nil {
		return nil, err
	}
	return &sel, nil
}

// runDetectCmd executes the detect command.
func runDetectCmd(cmd *cobra.Command, args []string) error {
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
	sel, err := detectorSelection(cmd)
	if err != nil {
		return err
	}
	a.logger.Debug("detecting", "origin", src.Origin, "kind", src.Kind, "length", len(src.Text))

	if boolFlag(cmd, "segments") {
		analysis, err := a.svc.DetectSegments(ctx, service.SegmentRequest{Text: src.Text, Selection: sel})
		if err != nil {
			return err
		}
		return a.outputReport(cmd, func(w report.Writer) (int, error) {
			return w.WriteSegments(analysis)
		})
	}

	detection, err := a.svc.Detect(ctx, service.DetectRequest{Text: src.Text, Selection: sel})
	if err != nil {
		return err
	}
	return a.outputReport(cmd, func(w report.Writer) (int, error) {
		return w.WriteDetection(detection)
	})
}

// runHighlightCmd executes the highlight command.
func runHighlightCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	format, err := highlight.ParseFormat(stringFlag(cmd, "format"))
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
	sel, err := detectorSelection(cmd)
	if err != nil {
		return err
	}

	result, err := a.svc.Highlight(ctx, service.HighlightRequest{
		SegmentRequest: service.SegmentRequest{Text: src.Text, Selection: sel},
		Format:         format,
	})
	if err != nil {
		return err
	}
	return a.outputReport(cmd, func(w report.Writer) (int, error) {
		return w.WriteHighlight(result)
	})
}

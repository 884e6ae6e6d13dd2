package main

import (
	"github.com/nao1215/humanizer/internal/config"
	"github.com/nao1215/humanizer/internal/database"
	"github.com/nao1215/humanizer/internal/report"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded pipeline runs and detections",
		Long: `History lists the results recorded with --history or --history-dir, newest
first. Only digests of the texts are stored, never the texts themselves.

Without --history-dir, the database under the XDG data directory is read.

Examples:
  # The 20 most recent pipeline runs
  humanizer history

  # One run with its steps
  humanizer history run 3f2a9c1e-...

  # Every recorded detection of a file's text
  humanizer history detections -f essay.txt`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}
	addHistoryFlags(cmd)

	run := &cobra.Command{
		Use:   "run ID",
		Short: "Show one recorded pipeline run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryRunCmd,
	}
	addReportFlags(run)

	detections := &cobra.Command{
		Use:   "detections [text]",
		Short: "List recorded detections, optionally of one text only",
		RunE:  runHistoryDetectionsCmd,
	}
	addHistoryFlags(detections)
	detections.Flags().StringP("file", "f", "", "Only list detections of the text in this file")

	cmd.AddCommand(run, detections)
	return cmd
}

func addHistoryFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("limit", "n", config.DefaultHistoryLimit, "Maximum number of entries")
	addReportFlags(cmd)
}

// newHistoryApp builds an app that always has a history database.
func newHistoryApp(cmd *cobra.Command) (*app, error) {
	return newApp(cmd.Context(), cmd, func(cfg *config.Config) {
		if cfg.DBDir == "" {
			cfg.DBDir = config.XDGDataDir()
		}
	})
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	a, err := newHistoryApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	runs, err := a.svc.RunHistory(cmd.Context(), limit)
	if err != nil {
		return err
	}
	return a.outputReport(cmd, func(w report.Writer) (int, error) {
		return w.WriteRunHistory(runs)
	})
}

// runHistoryRunCmd executes the history run command.
func runHistoryRunCmd(cmd *cobra.Command, args []string) error {
	a, err := newHistoryApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	run, err := a.svc.Run(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return a.outputReport(cmd, func(w report.Writer) (int, error) {
		return w.WriteRunHistory([]database.RunRecord{*run})
	})
}

// runHistoryDetectionsCmd executes the history detections command.
func runHistoryDetectionsCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	a, err := newHistoryApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	text := ""
	if len(args) > 0 || stringFlag(cmd, "file") != "" {
		src, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		text = src.Text
	}

	records, err := a.svc.DetectionHistory(cmd.Context(), text, limit)
	if err != nil {
		return err
	}
	return a.outputReport(cmd, func(w report.Writer) (int, error) {
		return w.WriteDetectionHistory(records)
	})
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for humanizer.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "humanizer",
		Short: "Detect AI generated text and rewrite it to read more naturally",
		Long: `humanizer scores text with an ensemble of AI text detectors and rewrites
it through chains of paraphrasing models.

Transformer models are served by an inference backend (--backend). The
built-in stylometric detector and rule based rewriters work without one.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file (default: .humanizer in the current or home directory)")
	cmd.PersistentFlags().String("backend", "",
		"Base URL of the inference backend (empty string uses built-in models only)")
	cmd.PersistentFlags().String("log-format", "", "Log format: text or json")
	cmd.PersistentFlags().Bool("history", false,
		"Record results in the history database under the XDG data directory")
	cmd.PersistentFlags().String("history-dir", "",
		"Record results in the history database in this directory")

	// Add subcommands
	cmd.AddCommand(NewDetectCmd())
	cmd.AddCommand(NewHighlightCmd())
	cmd.AddCommand(NewHumanizeCmd())
	cmd.AddCommand(NewPipelineCmd())
	cmd.AddCommand(NewModelsCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

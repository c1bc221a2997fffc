// Package commands implements webnav's cobra command tree, grounded in
// jholhewres-goclaw's cmd/copilot/commands package.
package commands

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the root command with every subcommand registered.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "webnav",
		Short: "Browser automation for LLM agents: outlines, not screenshots",
		Long: `webnav drives a real browser and presents pages to an LLM agent as
compact, reference-tagged accessibility outlines instead of screenshots.

Examples:
  webnav run https://example.com "find the pricing page"
  webnav daemon
  webnav ctl snapshot`,
		Version: version,
	}

	root.PersistentFlags().Bool("verbose", false, "enable debug-level logging")
	root.AddCommand(newRunCmd(), newDaemonCmd(), newCtlCmd())
	return root
}

func newLogger(cmd *cobra.Command) zerolog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

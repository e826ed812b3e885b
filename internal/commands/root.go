package commands

import (
	"github.com/spf13/cobra"

	"github.com/fincopilot/fincopilot/internal/buildinfo"
)

// rootOptions holds the persistent flags every subcommand reads.
type rootOptions struct {
	dir      string
	logLevel string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "fincopilot",
		Short:   "Bank transaction ingestion and personal finance store",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.dir, "dir", ".", "project directory holding fincopilot.yaml")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newInitCommand(opts),
		newCheckCommand(opts),
		newIngestCommand(opts),
		newVerifyCommand(opts),
		newTransactionsCommand(opts),
		newExportCommand(opts),
		newGoalCommand(opts),
		newSuggestionCommand(opts),
		newSettingCommand(opts),
		newRunsCommand(opts),
	)

	return rootCmd
}

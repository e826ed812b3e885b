package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fincopilot/fincopilot/internal/store"
)

func newCheckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify store integrity and show row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			status, err := a.store.IntegrityCheck(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			statusColor := color.New(color.FgGreen, color.Bold)
			if status != store.HealthyStatus {
				statusColor = color.New(color.FgRed, color.Bold)
			}
			fmt.Fprintf(out, "store:     %s\n", a.store.Path())
			fmt.Fprintf(out, "integrity: %s\n", statusColor.Sprint(status))

			label := color.New(color.FgCyan)
			for _, k := range store.Kinds {
				n, err := a.store.Count(ctx, k)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-14s %d\n", label.Sprint(k.Table()), n)
			}
			return nil
		},
	}
}

package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fincopilot/fincopilot/internal/export"
	"github.com/fincopilot/fincopilot/internal/model"
	"github.com/fincopilot/fincopilot/internal/store"
)

func newVerifyCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <ref_no>",
		Short: "Show the stored transaction with a reference number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			t, found, err := a.store.TransactionByRef(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !found {
				fmt.Fprintf(out, "%s: not found\n", args[0])
				return nil
			}
			fmt.Fprintf(out, "%s: found (id %d)\n", args[0], t.ID)
			return writeTransactions(out, []model.Transaction{t})
		},
	}
}

// filterFlags are the transaction filters shared by list and export.
type filterFlags struct {
	account string
	from    string
	to      string
	typ     string
	limit   int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.account, "account", "", "only this account")
	cmd.Flags().StringVar(&f.from, "from", "", "earliest date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.to, "to", "", "latest date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.typ, "type", "", "CREDIT or DEBIT")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum rows (0 = all)")
}

func (f *filterFlags) filter() (store.TransactionFilter, error) {
	filter := store.TransactionFilter{Account: f.account, Limit: f.limit}
	var err error
	if f.from != "" {
		if filter.From, err = time.Parse(model.DateFormat, f.from); err != nil {
			return filter, fmt.Errorf("--from: %w", err)
		}
	}
	if f.to != "" {
		if filter.To, err = time.Parse(model.DateFormat, f.to); err != nil {
			return filter, fmt.Errorf("--to: %w", err)
		}
	}
	if f.typ != "" {
		filter.Type = model.TxnType(strings.ToUpper(f.typ))
		if !filter.Type.Valid() {
			return filter, fmt.Errorf("--type must be CREDIT or DEBIT, got %q", f.typ)
		}
	}
	return filter, nil
}

func newTransactionsCommand(opts *rootOptions) *cobra.Command {
	txnCmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txn"},
		Short:   "Query stored transactions",
	}

	var flags filterFlags
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions ordered by date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			txns, err := a.store.ListTransactions(ctx, filter)
			if err != nil {
				return err
			}
			return writeTransactions(cmd.OutOrStdout(), txns)
		},
	}
	flags.register(listCmd)
	txnCmd.AddCommand(listCmd)

	return txnCmd
}

func writeTransactions(out io.Writer, txns []model.Transaction) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tACCOUNT\tREF\tDESCRIPTION")
	for _, t := range txns {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Date.Format(model.DateFormat), t.Signed().StringFixed(2),
			model.DerefString(t.Account), model.DerefString(t.RefNo), t.Description)
	}
	return tw.Flush()
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var flags filterFlags
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored transactions as canonical CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			txns, err := a.store.ListTransactions(ctx, filter)
			if err != nil {
				return err
			}

			if outPath == "" || outPath == "-" {
				return export.WriteTransactions(cmd.OutOrStdout(), txns)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outPath, err)
			}
			if err := export.WriteTransactions(f, txns); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", outPath, err)
			}
			a.log.Info().Str("path", outPath).Int("rows", len(txns)).Msg("export written")
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file, - for stdout")

	return cmd
}

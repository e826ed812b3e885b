package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/fincopilot/fincopilot/internal/importer"
	"github.com/fincopilot/fincopilot/internal/ingest"
)

func newIngestCommand(opts *rootOptions) *cobra.Command {
	var (
		text      bool
		format    string
		modeFlag  string
		account   string
		importDir bool
	)

	cmd := &cobra.Command{
		Use:   "ingest [file|-]",
		Short: "Load bank transactions into the store",
		Long: `Load bank transactions from a CSV file, from stdin ("-"), from literal
text (--text) or from every CSV in the import directory (--import-dir).

Modes:
  (default)  append every row
  add        skip rows whose ref_no is already stored
  overwrite  replace stored rows in each account's date range`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := ingest.ParseMode(modeFlag)
			if err != nil {
				return err
			}
			if importDir == (len(args) == 1) {
				return errors.New("give exactly one of a file argument or --import-dir")
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			imp := a.cfg.Import
			if format != "" {
				imp.Format = format
			}
			if account != "" {
				imp.DefaultAccount = account
			}
			n, err := importer.NewNormalizer(importer.DefaultRegistry(), importer.Options{
				Format:         imp.Format,
				Source:         imp.Source,
				DefaultAccount: imp.DefaultAccount,
				DateLayouts:    imp.DateLayouts,
			}, a.log)
			if err != nil {
				return err
			}
			svc := ingest.NewService(a.store, n, a.log)
			out := cmd.OutOrStdout()

			if importDir {
				return runImportDir(ctx, out, svc, imp.Dir, mode)
			}

			src, label, err := sourceFor(cmd.InOrStdin(), args[0], text)
			if err != nil {
				return err
			}
			res, err := svc.Ingest(ctx, src, mode)
			if err != nil {
				return err
			}
			printResult(out, label, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&text, "text", false, "treat the argument as CSV content instead of a path")
	cmd.Flags().StringVar(&format, "format", "", "input format (canonical, tsv, chase); defaults to import.format")
	cmd.Flags().StringVar(&modeFlag, "mode", "", "ingest mode: add or overwrite")
	cmd.Flags().StringVar(&account, "account", "", "account for rows that have none")
	cmd.Flags().BoolVar(&importDir, "import-dir", false, "ingest every CSV in import.dir and move it to processed/")

	return cmd
}

// sourceFor maps the command argument to a normalizer Source.
func sourceFor(stdin io.Reader, arg string, text bool) (importer.Source, string, error) {
	switch {
	case arg == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("reading stdin: %w", err)
		}
		return importer.Text(data), "stdin", nil
	case text:
		return importer.Text(arg), "text", nil
	default:
		return importer.Path(arg), arg, nil
	}
}

func runImportDir(ctx context.Context, out io.Writer, svc *ingest.Service, dir string, mode ingest.Mode) error {
	files, err := importer.Scan(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "No CSV files in %s\n", dir)
		return nil
	}

	for _, f := range files {
		res, err := svc.Ingest(ctx, importer.Path(f.Path), mode)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		if err := importer.MarkProcessed(dir, f.Name); err != nil {
			return err
		}
		printResult(out, fmt.Sprintf("%s (%s)", f.Name, humanize.Bytes(uint64(f.Size))), res)
	}
	return nil
}

func printResult(out io.Writer, label string, res ingest.Result) {
	fmt.Fprintf(out, "%s: read %d, inserted %d, skipped %d, replaced %d (run %s)\n",
		label, res.Read, res.Inserted, res.Skipped, res.Replaced, res.RunID)
}

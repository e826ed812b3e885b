package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fincopilot/fincopilot/internal/config"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	var format string
	var account string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new fincopilot project and create its store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.dir
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(absDir, format, account); err != nil {
				return err
			}

			// The store is created with the resolved config so env overrides apply.
			initOpts := *opts
			initOpts.dir = absDir
			a, err := openApp(cmd.Context(), &initOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Initialized fincopilot project at %s (store: %s)\n", absDir, a.store.Path())
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "canonical", "default import format (canonical, tsv, chase)")
	cmd.Flags().StringVar(&account, "account", "", "account stamped on imported rows that have none")

	return cmd
}

func runInit(dir, format, account string) error {
	// Create directory structure.
	dirs := []string{
		"data",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	// Write fincopilot.yaml unless one is already there.
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); errors.Is(err, fs.ErrNotExist) {
		cfg := config.Default()
		cfg.Import.Format = format
		cfg.Import.DefaultAccount = account
		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("checking config: %w", err)
	}

	// Write .gitignore.
	gitignore := "data/\n.env\nimport/processed/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	// Write import/.gitkeep.
	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}
	return nil
}

package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fincopilot/fincopilot/internal/model"
)

func newGoalCommand(opts *rootOptions) *cobra.Command {
	goalCmd := &cobra.Command{
		Use:   "goal",
		Short: "Manage savings and spending goals",
	}
	goalCmd.AddCommand(
		newGoalAddCommand(opts),
		newGoalListCommand(opts),
		newGoalProgressCommand(opts),
		newGoalActiveCommand(opts, "activate", true),
		newGoalActiveCommand(opts, "deactivate", false),
	)
	return goalCmd
}

func newGoalAddCommand(opts *rootOptions) *cobra.Command {
	var (
		name       string
		goalType   string
		target     string
		current    string
		targetDate string
		monthly    string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g := model.Goal{Name: name, GoalType: model.GoalType(goalType), IsActive: true}
			var err error
			if g.TargetAmount, err = decimal.NewFromString(target); err != nil {
				return fmt.Errorf("--target: %w", err)
			}
			if current != "" {
				if g.CurrentAmount, err = decimal.NewFromString(current); err != nil {
					return fmt.Errorf("--current: %w", err)
				}
			}
			if targetDate != "" {
				d, err := time.Parse(model.DateFormat, targetDate)
				if err != nil {
					return fmt.Errorf("--target-date: %w", err)
				}
				g.TargetDate = &d
			}
			if monthly != "" {
				m, err := decimal.NewFromString(monthly)
				if err != nil {
					return fmt.Errorf("--monthly: %w", err)
				}
				g.MonthlyTarget = &m
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.store.CreateGoal(ctx, g)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created goal %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "goal name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&goalType, "type", string(model.GoalSavings), "savings, spending_limit, debt_payoff or investment")
	cmd.Flags().StringVar(&target, "target", "", "target amount (required)")
	_ = cmd.MarkFlagRequired("target")
	cmd.Flags().StringVar(&current, "current", "", "amount already saved")
	cmd.Flags().StringVar(&targetDate, "target-date", "", "deadline (YYYY-MM-DD)")
	cmd.Flags().StringVar(&monthly, "monthly", "", "monthly contribution target")

	return cmd
}

func newGoalListCommand(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			goals, err := a.store.ListGoals(ctx, !all)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tCURRENT\tTARGET\tPROGRESS\tACTIVE")
			for _, g := range goals {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s%%\t%t\n",
					g.ID, g.Name, g.GoalType,
					g.CurrentAmount.StringFixed(2), g.TargetAmount.StringFixed(2),
					g.Progress().Mul(decimal.NewFromInt(100)).StringFixed(1), g.IsActive)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include inactive goals")
	return cmd
}

func newGoalProgressCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <goal_id> <current_amount>",
		Short: "Record how much of a goal is done",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("goal id: %w", err)
			}
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.UpdateGoalProgress(ctx, id, amount); err != nil {
				return err
			}
			g, err := a.store.Goal(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Goal %d: %s of %s (%s%%)\n", id,
				g.CurrentAmount.StringFixed(2), g.TargetAmount.StringFixed(2),
				g.Progress().Mul(decimal.NewFromInt(100)).StringFixed(1))
			return nil
		},
	}
}

func newGoalActiveCommand(opts *rootOptions, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <goal_id>",
		Short: fmt.Sprintf("Mark a goal %sd", use),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("goal id: %w", err)
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.SetGoalActive(ctx, id, active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Goal %d %sd\n", id, use)
			return nil
		},
	}
}

package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fincopilot/fincopilot/internal/model"
	"github.com/fincopilot/fincopilot/internal/store"
)

func newSuggestionCommand(opts *rootOptions) *cobra.Command {
	sugCmd := &cobra.Command{
		Use:   "suggestion",
		Short: "Manage suggestions attached to goals",
	}
	sugCmd.AddCommand(
		newSuggestionAddCommand(opts),
		newSuggestionListCommand(opts),
		newSuggestionStatusCommand(opts),
	)
	return sugCmd
}

func newSuggestionAddCommand(opts *rootOptions) *cobra.Command {
	var (
		content    string
		sugType    string
		goalID     int64
		priority   int
		reason     string
		impactDesc string
		impact     string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a suggestion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sg := model.Suggestion{
				SuggestionType:    sugType,
				Content:           content,
				Priority:          priority,
				Reason:            model.StringPtr(reason),
				ImpactDescription: model.StringPtr(impactDesc),
			}
			if goalID > 0 {
				sg.GoalID = &goalID
			}
			if impact != "" {
				d, err := decimal.NewFromString(impact)
				if err != nil {
					return fmt.Errorf("--impact: %w", err)
				}
				sg.ImpactNumeric = &d
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.store.CreateSuggestion(ctx, sg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created suggestion %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "what to do (required)")
	_ = cmd.MarkFlagRequired("content")
	cmd.Flags().StringVar(&sugType, "type", "general", "suggestion type")
	cmd.Flags().Int64Var(&goalID, "goal", 0, "goal this suggestion serves")
	cmd.Flags().IntVar(&priority, "priority", 0, "higher is more urgent")
	cmd.Flags().StringVar(&reason, "reason", "", "why it was suggested")
	cmd.Flags().StringVar(&impactDesc, "impact-desc", "", "expected impact, in words")
	cmd.Flags().StringVar(&impact, "impact", "", "expected impact amount")

	return cmd
}

func newSuggestionListCommand(opts *rootOptions) *cobra.Command {
	var goalID int64
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List suggestions, most urgent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.SuggestionFilter{Status: model.SuggestionStatus(status)}
			if cmd.Flags().Changed("goal") {
				filter.GoalID = &goalID
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.store.ListSuggestions(ctx, filter)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPRIORITY\tSTATUS\tGOAL\tTYPE\tCONTENT")
			for _, sg := range list {
				goal := "-"
				if sg.GoalID != nil {
					goal = strconv.FormatInt(*sg.GoalID, 10)
				}
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n",
					sg.ID, sg.Priority, sg.Status, goal, sg.SuggestionType, sg.Content)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Int64Var(&goalID, "goal", 0, "only suggestions for this goal")
	cmd.Flags().StringVar(&status, "status", "", "active, dismissed or implemented")
	return cmd
}

func newSuggestionStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <suggestion_id> <active|dismissed|implemented>",
		Short: "Move a suggestion to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("suggestion id: %w", err)
			}
			status := model.SuggestionStatus(args[1])

			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.SetSuggestionStatus(ctx, id, status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Suggestion %d is %s\n", id, status)
			return nil
		},
	}
}

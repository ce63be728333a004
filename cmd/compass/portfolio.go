package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Manage stored portfolios",
}

var portfolioPutCmd = &cobra.Command{
	Use:   "put ID TICKER=PCT[:CLASS]...",
	Short: "Store the holdings of a portfolio",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPortfolioPut,
}

var portfolioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored portfolios",
	Args:  cobra.NoArgs,
	RunE:  runPortfolioList,
}

var portfolioCheckCmd = &cobra.Command{
	Use:   "check ID",
	Short: "Check a stored portfolio against the current limits",
	Args:  cobra.ExactArgs(1),
	RunE:  runPortfolioCheck,
}

func init() {
	addMarketFlags(portfolioCheckCmd.Flags())
	portfolioCheckCmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")

	rootCmd.AddCommand(portfolioCmd)
	portfolioCmd.AddCommand(portfolioPutCmd)
	portfolioCmd.AddCommand(portfolioListCmd)
	portfolioCmd.AddCommand(portfolioCheckCmd)
}

func runPortfolioPut(cmd *cobra.Command, args []string) error {
	positions, err := parsePositions(args[1:])
	if err != nil {
		return err
	}
	return withEngine(cmd, overrides{}, func(ctx context.Context, st *stack, log *zap.Logger) error {
		if err := st.holdings.Save(ctx, args[0], positions); err != nil {
			return fmt.Errorf("saving portfolio: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %d position(s) in portfolio %s.\n", len(positions), args[0])
		return nil
	})
}

func runPortfolioList(cmd *cobra.Command, args []string) error {
	return withEngine(cmd, overrides{}, func(ctx context.Context, st *stack, log *zap.Logger) error {
		ids, err := st.holdings.IDs(ctx)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No portfolios found.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	})
}

func runPortfolioCheck(cmd *cobra.Command, args []string) error {
	ov := overrides{market: marketOverride(cmd)}
	return withEngine(cmd, ov, func(ctx context.Context, st *stack, log *zap.Logger) error {
		snap, err := st.engine.ValidatePortfolio(ctx, args[0])
		if err != nil {
			return fmt.Errorf("checking portfolio %s: %w", args[0], err)
		}
		return printSnapshot(cmd, snap)
	})
}

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/risk"
)

var validateCmd = &cobra.Command{
	Use:   "validate TICKER=PCT[:CLASS]...",
	Short: "Check a proposed allocation against the current limits",
	Long: `Check positions given as TICKER=PCT, optionally suffixed with :CRYPTO, for example
  compass validate AAPL=8 MSFT=6 BTC=3:CRYPTO --vix 32
The rest of the portfolio is treated as cash.`,
	RunE: runValidate,
}

func init() {
	addMarketFlags(validateCmd.Flags())
	validateCmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	rootCmd.AddCommand(validateCmd)
}

// parsePositions parses TICKER=PCT[:CLASS] arguments.
func parsePositions(args []string) ([]risk.Position, error) {
	positions := make([]risk.Position, 0, len(args))
	for _, arg := range args {
		ticker, rest, ok := strings.Cut(arg, "=")
		if !ok || ticker == "" {
			return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("position %q: expected TICKER=PCT", arg))
		}
		pctStr, classStr, hasClass := strings.Cut(rest, ":")
		pct, err := strconv.ParseFloat(pctStr, 64)
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("position %q: bad percentage: %w", arg, err))
		}
		class := core.AssetEquity
		if hasClass {
			if class, err = core.ParseAssetClass(classStr); err != nil {
				return nil, err
			}
		}
		positions = append(positions, risk.Position{
			Ticker:     strings.ToUpper(ticker),
			AssetClass: class,
			Pct:        pct,
		})
	}
	return positions, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	positions, err := parsePositions(args)
	if err != nil {
		return err
	}

	ov := overrides{market: marketOverride(cmd)}
	return withEngine(cmd, ov, func(ctx context.Context, st *stack, log *zap.Logger) error {
		snap, err := st.engine.ValidateAllocation(ctx, positions)
		if err != nil {
			return fmt.Errorf("validating: %w", err)
		}
		return printSnapshot(cmd, snap)
	})
}

func printSnapshot(cmd *cobra.Command, snap risk.Snapshot) error {
	out := cmd.OutOrStdout()
	if jsonOut {
		return writeJSON(out, snap)
	}

	fmt.Fprintf(out, "Equity: %.2f%%  Crypto: %.2f%%  Cash: %.2f%%\n",
		snap.TotalsByClass[core.AssetEquity], snap.TotalsByClass[core.AssetCrypto], snap.CashPct)

	if snap.Compliance == nil || snap.Compliance.WithinLimits {
		fmt.Fprintln(out, "Within limits.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RULE\tTICKER\tOBSERVED\tLIMIT\t")
	fmt.Fprintln(w, "----\t------\t--------\t-----\t")
	for _, v := range snap.Compliance.Violations {
		ticker := v.Ticker
		if ticker == "" {
			ticker = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f%%\t%.2f%%\t\n", v.Rule, ticker, v.Observed, v.Limit)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return fmt.Errorf("%d limit(s) breached", len(snap.Compliance.Violations))
}

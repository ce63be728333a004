package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var regimeCmd = &cobra.Command{
	Use:   "regime",
	Short: "Show the current market regime and allocation limits",
	Args:  cobra.NoArgs,
	RunE:  runRegime,
}

func init() {
	addMarketFlags(regimeCmd.Flags())
	regimeCmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	rootCmd.AddCommand(regimeCmd)
}

func runRegime(cmd *cobra.Command, args []string) error {
	ov := overrides{market: marketOverride(cmd)}
	return withEngine(cmd, ov, func(ctx context.Context, st *stack, log *zap.Logger) error {
		state, err := st.engine.Regime(ctx)
		if err != nil {
			return fmt.Errorf("detecting regime: %w", err)
		}
		limits, err := st.engine.AllocationLimits(ctx)
		if err != nil {
			return fmt.Errorf("deriving limits: %w", err)
		}

		out := cmd.OutOrStdout()
		if jsonOut {
			return writeJSON(out, map[string]any{"regime": state, "limits": limits})
		}

		fmt.Fprintf(out, "Regime:   %s (score %.2f)\n", state.Regime, state.Score)
		fmt.Fprintf(out, "VIX:      %s\n", optional(state.VIXLevel, "%.2f"))
		fmt.Fprintf(out, "Trend:    %s\n", optional(state.TrendPct, "%+.2f%%"))
		if state.Degraded {
			fmt.Fprintf(out, "Degraded: %s\n", strings.Join(state.Notes, "; "))
		}
		fmt.Fprintln(out)

		eff := limits.Effective()
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "LIMIT\tBASE\tIN FORCE\t")
		fmt.Fprintln(w, "-----\t----\t--------\t")
		fmt.Fprintf(w, "single stock max\t%.1f%%\t%.1f%%\t\n", limits.Base.SingleStockMaxPct, eff.SingleStockMaxPct)
		fmt.Fprintf(w, "single crypto max\t%.1f%%\t%.1f%%\t\n", limits.Base.SingleCryptoMaxPct, eff.SingleCryptoMaxPct)
		fmt.Fprintf(w, "total stocks max\t%.1f%%\t%.1f%%\t\n", limits.Base.TotalStocksMaxPct, eff.TotalStocksMaxPct)
		fmt.Fprintf(w, "total crypto max\t%.1f%%\t%.1f%%\t\n", limits.Base.TotalCryptoMaxPct, eff.TotalCryptoMaxPct)
		fmt.Fprintf(w, "cash min\t%.1f%%\t%.1f%%\t\n", limits.Base.CashMinPct, eff.CashMinPct)
		return w.Flush()
	})
}

package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/decision"
	"github.com/newthinker/compass/internal/provider"
)

var (
	scoreClass     string
	scoreTechnical float64
	scoreMomentum  float64
	scoreML        float64
	scoreExplain   bool
)

var scoreCmd = &cobra.Command{
	Use:   "score TICKER...",
	Short: "Score assets against the current regime",
	Long: `Score one or more assets. Inputs are fetched from the configured sources unless
fixed with --technical, --momentum or --ml.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().StringVar(&scoreClass, "class", "EQUITY", "asset class of every ticker (EQUITY or CRYPTO)")
	scoreCmd.Flags().Float64Var(&scoreTechnical, "technical", 0, "fixed technical score, 0..100")
	scoreCmd.Flags().Float64Var(&scoreMomentum, "momentum", 0, "fixed momentum score, -100..100")
	scoreCmd.Flags().Float64Var(&scoreML, "ml", 0, "fixed model probability, 0..1")
	scoreCmd.Flags().BoolVar(&scoreExplain, "explain", false, "print the factor breakdown")
	scoreCmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	addMarketFlags(scoreCmd.Flags())
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	class, err := core.ParseAssetClass(scoreClass)
	if err != nil {
		return err
	}

	ov := overrides{market: marketOverride(cmd)}
	if cmd.Flags().Changed("technical") || cmd.Flags().Changed("momentum") {
		var tech provider.StaticTechnical
		if cmd.Flags().Changed("technical") {
			tech.Score = core.Float(scoreTechnical)
		}
		if cmd.Flags().Changed("momentum") {
			tech.Momentum = core.Float(scoreMomentum)
		}
		ov.technical = &tech
	}
	if cmd.Flags().Changed("ml") {
		ov.ml = core.Float(scoreML)
	}

	refs := make([]decision.AssetRef, len(args))
	for i, ticker := range args {
		refs[i] = decision.AssetRef{Ticker: ticker, AssetClass: class}
	}

	return withEngine(cmd, ov, func(ctx context.Context, st *stack, log *zap.Logger) error {
		signals, err := st.engine.ScoreBatch(ctx, refs)
		if err != nil {
			return fmt.Errorf("scoring: %w", err)
		}

		out := cmd.OutOrStdout()
		if jsonOut {
			return writeJSON(out, signals)
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TICKER\tCLASS\tREGIME\tSCORE\tSIGNAL\tTECH\tML\tMOM\tNOTES\t")
		fmt.Fprintln(w, "------\t-----\t------\t-----\t------\t----\t--\t---\t-----\t")
		for _, s := range signals {
			signal := string(s.Signal)
			if s.Gated {
				signal += " (gated " + string(s.UngatedSignal) + ")"
			}
			notes := ""
			if s.Degraded {
				notes = "degraded"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\t%s\t%s\t%s\t\n",
				s.Ticker, s.AssetClass, s.Regime, s.CompositeScore, signal,
				optional(s.TechnicalScore, "%.1f"),
				optional(s.MLProbability, "%.2f"),
				optional(s.MomentumScore, "%+.1f"),
				notes)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if !scoreExplain {
			return nil
		}
		for _, s := range signals {
			fmt.Fprintf(out, "\n%s\n", s.Ticker)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "  FACTOR\tRAW\tNORMALIZED\tWEIGHT\tCONTRIBUTION\t")
			for _, f := range s.Explanation {
				fmt.Fprintf(w, "  %s\t%s\t%.2f\t%.3f\t%.2f\t\n",
					f.Name, optional(f.RawValue, "%.2f"), f.Normalized, f.Weight, f.Contribution)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			for _, n := range s.Notes {
				fmt.Fprintf(out, "  note: %s\n", n)
			}
		}
		return nil
	})
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/provider"
)

// commandTimeout bounds one-shot commands.
const commandTimeout = 2 * time.Minute

var (
	vixFlag   float64
	trendFlag float64
	jsonOut   bool
)

// addMarketFlags registers --vix and --trend, which replace live regime inputs.
func addMarketFlags(fs *pflag.FlagSet) {
	fs.Float64Var(&vixFlag, "vix", 0, "use this VIX level instead of fetching it")
	fs.Float64Var(&trendFlag, "trend", 0, "use this index trend % instead of fetching it")
}

func marketOverride(cmd *cobra.Command) provider.StaticMarket {
	var m provider.StaticMarket
	if cmd.Flags().Changed("vix") {
		m.VIXLevel = core.Float(vixFlag)
	}
	if cmd.Flags().Changed("trend") {
		m.Trend = core.Float(trendFlag)
	}
	return m
}

// withEngine handles common setup for one-shot commands.
func withEngine(cmd *cobra.Command, ov overrides, fn func(ctx context.Context, st *stack, log *zap.Logger) error) error {
	log := newLogger("warn")
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	st, err := buildStack(cfg, log, nil, ov)
	if err != nil {
		return fmt.Errorf("wiring engine: %w", err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, commandTimeout)
	defer cancel()
	return fn(ctx, st, log)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

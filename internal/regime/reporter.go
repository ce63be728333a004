package regime

import (
	"strings"

	"go.uber.org/zap"
)

// LogReporter writes degraded regime states to a zap logger.
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter creates a reporter; a nil logger discards output.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReporter{logger: logger}
}

// ReportDegraded logs the fallback that was applied.
func (r *LogReporter) ReportDegraded(st State) {
	fields := []zap.Field{
		zap.String("regime", string(st.Regime)),
		zap.Float64("regime_score", st.Score),
		zap.String("notes", strings.Join(st.Notes, "; ")),
	}
	if st.VIXLevel != nil {
		fields = append(fields, zap.Float64("vix_level", *st.VIXLevel))
	}
	if st.TrendPct != nil {
		fields = append(fields, zap.Float64("trend_pct", *st.TrendPct))
	}
	r.logger.Warn("regime computed from degraded inputs", fields...)
}

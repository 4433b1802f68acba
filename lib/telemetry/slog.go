package telemetry

import (
	"log/slog"
	"os"
)

// InitSlog sets the process-wide default logger. Verbose mode
// enables debug-level output (which also turns on request dumping
// in instrumented resty clients).
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

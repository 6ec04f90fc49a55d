package observability

import (
	"io"
	"log/slog"
	"os"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/lmittmann/tint"

	"github.com/Beck-Develops/smart-cabin-safety-system/internal/config"
)

// NewLogger builds the process logger from cfg and sets it as the slog
// default. LOG_FORMAT=json uses the shared service logger, which writes JSON
// to stdout for log shippers. Text logs go to stderr, leaving stdout for
// command output.
func NewLogger(cfg *config.Config) *slog.Logger {
	if cfg.LogFormat == "json" {
		return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	logger := NewTextLogger(os.Stderr, cfg.LogLevel)
	slog.SetDefault(logger)
	return logger
}

// NewTextLogger builds a tint logger writing to w. Color is enabled only when
// w is a terminal.
func NewTextLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      textLevel(level),
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(w),
	}))
}

// textLevel reads a LOG_LEVEL value in slog's own syntax ("debug", "WARN",
// "info+2"), defaulting to info.
func textLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

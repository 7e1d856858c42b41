package logger

import (
	"log"
	"log/slog"
)

// New returns a printf-style logger that forwards into base with a component
// attribute, for libraries that only accept *log.Logger (cron, telegram).
func New(base *slog.Logger, component string) *log.Logger {
	if base == nil {
		base = slog.Default()
	}
	return slog.NewLogLogger(base.With("component", component).Handler(), slog.LevelInfo)
}

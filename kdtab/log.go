package kdtab

import (
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() { logger.Store(slog.New(slog.DiscardHandler)) }

// SetLogger sets the logger used for index builds and invalidations.
// A nil logger restores the discarding default.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	logger.Store(l)
}

func currentLogger() *slog.Logger { return logger.Load() }

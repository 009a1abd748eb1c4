package erosion

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/san-kum/erosim/internal/compute"
)

// nopHandler discards every record and reports itself disabled so
// callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger for erosion and the compute devices it
// drives. By default nothing is logged; pass nil to restore that.
//
// Levels used:
//   - [slog.LevelDebug]: buffer allocation, per-run parameters
//   - [slog.LevelInfo]: run start and finish
//   - [slog.LevelWarn]: rejected starts, failed runs
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
	compute.SetLogger(l)
}

// Logger returns the logger currently in use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

package pica

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/pica/internal/native"
)

// discardHandler drops every record. Enabled reports false, so log calls
// against it return before building attributes.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

var silent = slog.New(discardHandler{})

// current holds the logger shared by pica and internal/native. The frame
// loop reads it while another goroutine may be swapping it.
var current atomic.Pointer[slog.Logger]

func init() { current.Store(silent) }

// SetLogger routes pica's diagnostics to l. Nothing is logged until it is
// called; passing nil silences pica again. It may be called at any time,
// including while a Context is in use on another goroutine.
//
// Levels:
//   - [slog.LevelDebug]: one record per resource event (create, upload,
//     release) and per sweep that released something
//   - [slog.LevelInfo]: context open, restore and close
//   - [slog.LevelWarn]: allocation failures, context loss, ignored calls
//     on unknown resources
//
// To see everything on stderr:
//
//	pica.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	current.Store(l)
	native.SetLogger(l)
}

// Logger returns the logger set by SetLogger, or a silent one.
func Logger() *slog.Logger {
	return current.Load()
}

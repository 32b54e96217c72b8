package gitview

import (
	"context"
	"log/slog"
)

// logger for the package. By default it discards everything, use [SetLogger]
// to direct the output somewhere.
var logger = slog.New(discardHandler{})

// SetLogger replaces the logger used by the package. Passing nil restores the
// default no-op logger.
func SetLogger(l *slog.Logger) {
	if l == nil {
		logger = slog.New(discardHandler{})
		return
	}

	logger = l
}

type discardHandler struct{}

func (discardHandler) Enabled(_ context.Context, _ slog.Level) bool  { return false }
func (discardHandler) Handle(_ context.Context, _ slog.Record) error { return nil }
func (d discardHandler) WithAttrs(_ []slog.Attr) slog.Handler        { return d }
func (d discardHandler) WithGroup(_ string) slog.Handler             { return d }

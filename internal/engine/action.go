package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/recordupdate/internal/result"
)

// Action is the atomic unit of work in an update.
//
// Perform runs the action's effect and may append children. Children is
// read by the engine only after Perform returns, and must not change
// afterwards.
type Action interface {
	// Name identifies the action kind in logs, metrics and rendered trees.
	Name() string

	// Perform executes the action. Business failures are reported in the
	// result; a returned error aborts the whole request.
	Perform(ctx context.Context) (*result.Result, error)

	// Children returns the actions appended during Perform, in order.
	Children() []Action

	// Attrs returns the diagnostic context attached before Perform runs,
	// typically the record id and agency.
	Attrs() []slog.Attr
}

type loggerKey struct{}

// ContextWithLogger returns a context carrying logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Logger returns the node logger attached by the engine, or slog.Default.
func Logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
